package domain

// GroupMode определяет кардинальность выбора внутри группы опций.
type GroupMode string

const (
	// GroupModeSingle — из группы выбирается ровно один вариант (radio: размер, напиток).
	GroupModeSingle GroupMode = "single"
	// GroupModeMulti — из группы можно выбрать несколько вариантов с количеством (supplements, соусы).
	GroupModeMulti GroupMode = "multi"
)

// Choice описывает один вариант выбора внутри группы опций каталога.
type Choice struct {
	Name string `json:"name" db:"name"`
	// Price — наценка за вариант (за единицу позиции). 0 = бесплатный вариант.
	Price float64 `json:"price" db:"price"`
}

// OptionGroup — именованный набор вариантов с ограничением на выбор.
type OptionGroup struct {
	Name string    `json:"name" db:"name"`
	Mode GroupMode `json:"mode" db:"mode"`
	// MaxChoices ограничивает число вариантов в multi-группе (0 = без ограничения).
	MaxChoices int      `json:"max_choices,omitempty" db:"max_choices"`
	Choices    []Choice `json:"choices"`
}

// Product — запись каталога. Каталог внешний и read-only: движок корзины
// никогда не изменяет продукты и не перечитывает их после создания позиции.
type Product struct {
	ID   int64  `json:"id" db:"id"`
	Slug string `json:"slug" db:"slug"`
	Name string `json:"name" db:"name"`
	// Price может отсутствовать, если цена продукта целиком определяется
	// обязательным выбором размера/варианта.
	Price        *float64      `json:"price" db:"price"`
	OptionGroups []OptionGroup `json:"option_groups,omitempty"`
}

// PriceOrZero возвращает цену продукта либо 0, если она не задана.
func (p Product) PriceOrZero() float64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}

package domain

// ChoicePick фиксирует один выбранный вариант в составе Selection.
// Цена замораживается в момент выбора и не перечитывается из каталога.
type ChoicePick struct {
	Name  string  `json:"name,omitempty"`
	Price float64 `json:"price"`
	// Quantity используется только multi-группами; 0 означает "не выбрано".
	Quantity int `json:"quantity,omitempty"`
}

// GroupSelection — выбор клиента внутри одной группы опций.
// Для single-группы заполняется Choice, для multi-группы — Choices.
type GroupSelection struct {
	Choice  *ChoicePick           `json:"choice,omitempty"`
	Choices map[string]ChoicePick `json:"choices,omitempty"`
}

// Selection — выбранные опции одной позиции корзины: имя группы -> выбор.
// Пустая selection допустима (продукт без опций).
type Selection map[string]GroupSelection

// SizeGroup — зарезервированное имя группы выбора размера/варианта.
// Её цена участвует в резолвинге базовой цены позиции.
const SizeGroup = "size"

// Clone возвращает глубокую копию selection, чтобы позиции корзины
// не делили состояние с вызывающей стороной.
func (s Selection) Clone() Selection {
	if s == nil {
		return nil
	}
	out := make(Selection, len(s))
	for group, gs := range s {
		cp := GroupSelection{}
		if gs.Choice != nil {
			choice := *gs.Choice
			cp.Choice = &choice
		}
		if gs.Choices != nil {
			cp.Choices = make(map[string]ChoicePick, len(gs.Choices))
			for name, pick := range gs.Choices {
				cp.Choices[name] = pick
			}
		}
		out[group] = cp
	}
	return out
}

// Equal сравнивает selections структурно. Именно эта функция определяет
// правило слияния позиций: сравнение по сериализованной строке здесь
// запрещено, потому что оно чувствительно к порядку ключей.
func (s Selection) Equal(other Selection) bool {
	if len(s) != len(other) {
		return false
	}
	for group, gs := range s {
		ogs, ok := other[group]
		if !ok {
			return false
		}
		if !gs.equal(ogs) {
			return false
		}
	}
	return true
}

func (g GroupSelection) equal(other GroupSelection) bool {
	if (g.Choice == nil) != (other.Choice == nil) {
		return false
	}
	if g.Choice != nil && *g.Choice != *other.Choice {
		return false
	}
	if len(g.Choices) != len(other.Choices) {
		return false
	}
	for name, pick := range g.Choices {
		opick, ok := other.Choices[name]
		if !ok || pick != opick {
			return false
		}
	}
	return true
}

// sizePrice возвращает цену выбранного размера, если в selection есть
// single-выбор в группе размера.
func (s Selection) sizePrice() (float64, bool) {
	gs, ok := s[SizeGroup]
	if !ok || gs.Choice == nil {
		return 0, false
	}
	return gs.Choice.Price, true
}

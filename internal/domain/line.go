package domain

import "time"

// Line представляет одну позицию корзины.
type Line struct {
	// ProductID и Slug — ссылки в каталог, не собственные копии продукта.
	ProductID int64  `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	// UnitBasePrice — базовая цена за единицу, зафиксированная при создании
	// позиции. После создания она неизменяема: повторные добавления той же
	// комбинации не переписывают её.
	UnitBasePrice float64 `json:"basePrice"`
	// Quantity всегда >= 1; позиция с нулевым количеством удаляется из корзины.
	Quantity  int       `json:"quantity"`
	Selection Selection `json:"options"`
	// TotalPrice — кэш для отображения. Источником истины не является:
	// агрегаты всегда пересчитываются из (UnitBasePrice, Quantity, Selection).
	TotalPrice float64 `json:"totalPrice"`
	// AddedAt используется только для tie-break между позициями одного slug.
	// Хранится в UTC: RFC3339-форма сортируется лексикографически по моменту.
	AddedAt time.Time `json:"addedAt"`
}

// ComputeLineTotal вычисляет полную цену позиции. Функция чистая:
// не мутирует входы и при одинаковых аргументах возвращает одинаковый результат.
//
// total = base*qty; для каждого multi-выбора с количеством > 0 и наценкой > 0
// добавляется surcharge*chosenQty*qty (наценка применяется на каждую единицу
// позиции); для каждого single-выбора с наценкой > 0 — surcharge*qty.
// Нулевые и отрицательные наценки не учитываются. Группа размера наценкой
// не является: её цена уже вошла в базовую через ResolveBasePrice.
func ComputeLineTotal(unitBasePrice float64, quantity int, selection Selection) float64 {
	if quantity < 1 {
		quantity = 1
	}
	qty := float64(quantity)
	total := unitBasePrice * qty

	for name, group := range selection {
		if name == SizeGroup {
			continue
		}
		if group.Choice != nil && group.Choice.Price > 0 {
			total += group.Choice.Price * qty
		}
		for _, pick := range group.Choices {
			if pick.Quantity > 0 && pick.Price > 0 {
				total += pick.Price * float64(pick.Quantity) * qty
			}
		}
	}
	return total
}

// ResolveBasePrice резолвит базовую цену единицы по убыванию приоритета:
// явный override > цена выбранного размера > собственная цена продукта > 0.
// Отсутствующая цена молча резолвится в 0: неизвестный продукт — это баг
// вызывающей стороны, а не runtime-ошибка движка.
func ResolveBasePrice(product *Product, selection Selection, override *float64) float64 {
	if override != nil {
		return *override
	}
	if price, ok := selection.sizePrice(); ok {
		return price
	}
	if product != nil {
		return product.PriceOrZero()
	}
	return 0
}

// Recalculate обновляет кэш TotalPrice из замороженных входов позиции.
func (l *Line) Recalculate() {
	l.TotalPrice = ComputeLineTotal(l.UnitBasePrice, l.Quantity, l.Selection)
}

// Matches сообщает, описывает ли позиция ту же комбинацию (продукт + опции).
// Идентичность продукта — slug: у позиций вне каталога ProductID нулевой,
// и сравнение по нему слило бы разные неизвестные продукты в одну позицию.
func (l Line) Matches(slug string, selection Selection) bool {
	return l.Slug == slug && l.Selection.Equal(selection)
}

package domain

import "time"

// Cart — упорядоченная (в порядке добавления) последовательность позиций
// плюс производные агрегаты. Корзина мутируется только операциями движка.
type Cart struct {
	Lines []Line
}

// Totals — производные агрегаты корзины.
type Totals struct {
	ItemCount  int     `json:"item_count"`
	TotalPrice float64 `json:"total_price"`
}

// NewCart возвращает пустую корзину.
func NewCart() *Cart {
	return &Cart{}
}

// Add вливает позицию в корзину. Если уже существует позиция с тем же
// продуктом и структурно равной selection, увеличивается её количество,
// а базовая цена существующей позиции побеждает (цена новой отбрасывается).
// Возвращает true при слиянии.
func (c *Cart) Add(line Line) bool {
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	for i := range c.Lines {
		if c.Lines[i].Matches(line.Slug, line.Selection) {
			c.Lines[i].Quantity += line.Quantity
			c.Lines[i].Recalculate()
			return true
		}
	}
	line.Selection = line.Selection.Clone()
	line.Recalculate()
	c.Lines = append(c.Lines, line)
	return false
}

// newestIndexBySlug возвращает индекс последней добавленной позиции slug
// (максимальный AddedAt) или -1. Кнопки +/- на карточке продукта управляют
// самым свежим вариантом продукта, а не произвольным.
func (c *Cart) newestIndexBySlug(slug string) int {
	best := -1
	for i := range c.Lines {
		if c.Lines[i].Slug != slug {
			continue
		}
		if best < 0 || c.Lines[i].AddedAt.After(c.Lines[best].AddedAt) {
			best = i
		}
	}
	return best
}

// Increase увеличивает количество самой свежей позиции slug.
// Возвращает false, если позиций с таким slug нет (это не ошибка).
func (c *Cart) Increase(slug string) bool {
	i := c.newestIndexBySlug(slug)
	if i < 0 {
		return false
	}
	c.Lines[i].Quantity++
	c.Lines[i].Recalculate()
	return true
}

// Decrease уменьшает количество самой свежей позиции slug; позиция с
// количеством 1 удаляется целиком — корзина никогда не хранит quantity 0.
// Второе возвращаемое значение сообщает, была ли позиция удалена.
func (c *Cart) Decrease(slug string) (changed, removed bool) {
	i := c.newestIndexBySlug(slug)
	if i < 0 {
		return false, false
	}
	if c.Lines[i].Quantity > 1 {
		c.Lines[i].Quantity--
		c.Lines[i].Recalculate()
		return true, false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true, true
}

// RemoveBySlug удаляет все позиции slug (не только один вариант).
// Возвращает число удалённых позиций.
func (c *Cart) RemoveBySlug(slug string) int {
	kept := c.Lines[:0]
	removed := 0
	for _, line := range c.Lines {
		if line.Slug == slug {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	c.Lines = kept
	return removed
}

// Clear опустошает корзину.
func (c *Cart) Clear() {
	c.Lines = nil
}

// Totals пересчитывает агрегаты из замороженных входов каждой позиции.
// Кэш TotalPrice на позиции никогда не используется как источник истины.
func (c *Cart) Totals() Totals {
	var t Totals
	for _, line := range c.Lines {
		t.ItemCount += line.Quantity
		t.TotalPrice += ComputeLineTotal(line.UnitBasePrice, line.Quantity, line.Selection)
	}
	return t
}

// QuantityForSlug суммирует количество по всем позициям slug.
func (c *Cart) QuantityForSlug(slug string) int {
	total := 0
	for _, line := range c.Lines {
		if line.Slug == slug {
			total += line.Quantity
		}
	}
	return total
}

// Snapshot возвращает глубокую копию позиций для персистентности и отображения.
func (c *Cart) Snapshot() []Line {
	out := make([]Line, len(c.Lines))
	for i, line := range c.Lines {
		line.Selection = line.Selection.Clone()
		out[i] = line
	}
	return out
}

// Replace замещает содержимое корзины снапшотом целиком (last-writer-wins
// при синхронизации контекстов). Количества нормализуются, кэш пересчитывается.
func (c *Cart) Replace(lines []Line) {
	c.Lines = make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			line.Quantity = 1
		}
		line.Selection = line.Selection.Clone()
		line.Recalculate()
		if line.AddedAt.IsZero() {
			line.AddedAt = time.Now().UTC()
		}
		c.Lines = append(c.Lines, line)
	}
}

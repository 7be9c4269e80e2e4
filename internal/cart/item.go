package cart

import "github.com/angelmondragon/readerpos/pkg/money"

// CustomAmountItemName labels items built from keypad entry.
const CustomAmountItemName = "Custom Amount"

// Item is a single cart line. Two items are equal iff name and price are equal.
type Item struct {
	Name  string      `json:"name"`
	Price money.Money `json:"price"`
}

// NewCustomItem wraps a keypad-entered price.
func NewCustomItem(price money.Money) Item {
	return Item{Name: CustomAmountItemName, Price: price}
}

func (i Item) Equal(other Item) bool {
	return i.Name == other.Name && i.Price.Equal(other.Price)
}

func itemPtrEqual(a, b *Item) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

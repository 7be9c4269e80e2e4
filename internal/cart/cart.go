// Package cart holds the order-entry cart: finalized (closed) line items plus at
// most one open item that keypad entry rewrites digit by digit.
package cart

import (
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
	"github.com/angelmondragon/readerpos/pkg/money"
)

// Cart is a value type; copies share nothing once cloned.
// Invariants: every item is priced in the cart currency, the open item is
// strictly positive, and the total is always derived from the items.
type Cart struct {
	currency    money.Currency
	closedItems []Item
	openItem    *Item
}

// New returns an empty cart for currency.
func New(currency money.Currency) Cart {
	return Cart{currency: currency}
}

func (c Cart) Currency() money.Currency {
	return c.currency
}

// OpenItem returns the pending item, if any.
func (c Cart) OpenItem() (Item, bool) {
	if c.openItem == nil {
		return Item{}, false
	}
	return *c.openItem, true
}

func (c Cart) HasOpenItem() bool {
	return c.openItem != nil
}

// ClosedItems returns a copy of the finalized items in display order.
func (c Cart) ClosedItems() []Item {
	out := make([]Item, len(c.closedItems))
	copy(out, c.closedItems)
	return out
}

// Items returns the closed items followed by the open item when present.
func (c Cart) Items() []Item {
	out := make([]Item, 0, c.Len())
	out = append(out, c.closedItems...)
	if c.openItem != nil {
		out = append(out, *c.openItem)
	}
	return out
}

func (c Cart) Len() int {
	n := len(c.closedItems)
	if c.openItem != nil {
		n++
	}
	return n
}

func (c Cart) IsEmpty() bool {
	return c.Len() == 0
}

// Total sums every item. A currency mismatch panics; the mutators make it unreachable.
func (c Cart) Total() money.Money {
	total := money.Zero(c.currency)
	for _, item := range c.Items() {
		total = total.Add(item.Price)
	}
	return total
}

// SetOpenItem replaces the open item; nil clears it.
func (c *Cart) SetOpenItem(item *Item) error {
	if item == nil {
		c.openItem = nil
		return nil
	}
	if item.Price.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeContractViolation, "open item must have a positive price")
	}
	if item.Price.Currency != c.currency {
		return pkgerrors.Newf(pkgerrors.CodeContractViolation, "expected %s, got %s", c.currency, item.Price.Currency)
	}
	open := *item
	c.openItem = &open
	return nil
}

// CloseOpenItem appends the open item to the closed items and clears the slot.
func (c *Cart) CloseOpenItem() error {
	if c.openItem == nil {
		return pkgerrors.New(pkgerrors.CodeContractViolation, "no open item to close")
	}
	c.closedItems = append(c.closedItems, *c.openItem)
	c.openItem = nil
	return nil
}

// Remove deletes item from the open slot or, failing that, the first equal
// closed item. The remaining closed items keep their order.
func (c *Cart) Remove(item Item) error {
	if c.openItem != nil && c.openItem.Equal(item) {
		c.openItem = nil
		return nil
	}
	for i, closed := range c.closedItems {
		if closed.Equal(item) {
			c.closedItems = append(c.closedItems[:i:i], c.closedItems[i+1:]...)
			return nil
		}
	}
	return pkgerrors.Newf(pkgerrors.CodeContractViolation, "item %q (%s) is not in the cart", item.Name, item.Price)
}

// Reset empties the cart, keeping its currency.
func (c *Cart) Reset() {
	c.openItem = nil
	c.closedItems = nil
}

// Clone returns an independent copy a surface may mutate locally.
func (c Cart) Clone() Cart {
	clone := Cart{currency: c.currency}
	if len(c.closedItems) > 0 {
		clone.closedItems = c.ClosedItems()
	}
	if c.openItem != nil {
		open := *c.openItem
		clone.openItem = &open
	}
	return clone
}

// Equal compares item lists and currency.
func (c Cart) Equal(other Cart) bool {
	if c.currency != other.currency || len(c.closedItems) != len(other.closedItems) {
		return false
	}
	for i := range c.closedItems {
		if !c.closedItems[i].Equal(other.closedItems[i]) {
			return false
		}
	}
	return itemPtrEqual(c.openItem, other.openItem)
}

// String renders one "name: price" line per item followed by the total.
func (c Cart) String() string {
	var b strings.Builder
	for _, item := range c.Items() {
		fmt.Fprintf(&b, "%s: %s\n", item.Name, item.Price)
	}
	fmt.Fprintf(&b, "Total: %s\n", c.Total())
	return b.String()
}

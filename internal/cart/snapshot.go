package cart

import "github.com/angelmondragon/readerpos/pkg/money"

// Snapshot is the read-only, serializable view of a cart.
type Snapshot struct {
	Currency    money.Currency `json:"currency"`
	ClosedItems []Item         `json:"closed_items"`
	OpenItem    *Item          `json:"open_item,omitempty"`
	ItemCount   int            `json:"item_count"`
	Total       money.Money    `json:"total"`
	TotalText   string         `json:"total_text"`
}

func (c Cart) Snapshot() Snapshot {
	snap := Snapshot{
		Currency:    c.currency,
		ClosedItems: c.ClosedItems(),
		ItemCount:   c.Len(),
		Total:       c.Total(),
	}
	if open, ok := c.OpenItem(); ok {
		snap.OpenItem = &open
	}
	snap.TotalText = snap.Total.String()
	return snap
}

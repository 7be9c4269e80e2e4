// Package cartlist is the list surface: it renders cart rows and turns
// swipe-to-delete into an updated cart for the coordinator.
package cartlist

import (
	"context"

	"github.com/angelmondragon/readerpos/internal/cart"
	"github.com/angelmondragon/readerpos/internal/orderentry"
	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
)

const Title = "Cart"

type Row struct {
	Index int       `json:"index"`
	Item  cart.Item `json:"item"`
	Price string    `json:"price"`
	Open  bool      `json:"open"`
}

type View struct {
	Title     string `json:"title"`
	Rows      []Row  `json:"rows"`
	ItemCount int    `json:"item_count"`
	TotalText string `json:"total_text"`
}

type List struct {
	updater orderentry.CartUpdater
	cart    cart.Cart
	view    View
}

var _ orderentry.Observer = (*List)(nil)

func New(updater orderentry.CartUpdater) *List {
	return &List{updater: updater, view: View{Title: Title, Rows: []Row{}}}
}

// CartDidChange rebuilds every row from the snapshot.
func (l *List) CartDidChange(ctx context.Context, c cart.Cart) {
	l.cart = c
	items := c.Items()
	rows := make([]Row, 0, len(items))
	for i, item := range items {
		rows = append(rows, Row{
			Index: i,
			Item:  item,
			Price: item.Price.String(),
			Open:  c.HasOpenItem() && i == len(items)-1,
		})
	}
	l.view = View{
		Title:     Title,
		Rows:      rows,
		ItemCount: len(items),
		TotalText: c.Total().String(),
	}
}

// Delete removes the row at index on a local copy and hands the copy to the coordinator.
func (l *List) Delete(ctx context.Context, index int) error {
	items := l.cart.Items()
	if index < 0 || index >= len(items) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "no cart row at index %d", index)
	}
	updated := l.cart.Clone()
	if err := updated.Remove(items[index]); err != nil {
		return err
	}
	return l.updater.DidRemoveItemFromCart(ctx, updated)
}

func (l *List) View() View {
	return l.view
}

// Package keypad is the quick-entry surface: digit keys build the cart's open
// item, Clear drops it, and Add commits it.
package keypad

import (
	"context"
	"strconv"

	"github.com/angelmondragon/readerpos/internal/cart"
	"github.com/angelmondragon/readerpos/internal/orderentry"
	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
	"github.com/angelmondragon/readerpos/pkg/money"
)

// maxDigits bounds entry so the amount always fits in int64.
const maxDigits = 12

type Key string

const (
	KeyClear     Key = "clear"
	KeyAddItem   Key = "add"
	KeyBackspace Key = "backspace"
)

// ParseKey accepts "0"-"9", "clear", "add", and "backspace".
func ParseKey(raw string) (Key, error) {
	switch key := Key(raw); key {
	case KeyClear, KeyAddItem, KeyBackspace:
		return key, nil
	}
	if len(raw) == 1 && raw[0] >= '0' && raw[0] <= '9' {
		return Key(raw), nil
	}
	return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown key %q", raw)
}

func (k Key) digit() (int, bool) {
	if len(k) == 1 && k[0] >= '0' && k[0] <= '9' {
		return int(k[0] - '0'), true
	}
	return 0, false
}

// View is what the keypad screen renders.
type View struct {
	EnteredPrice       money.Money `json:"entered_price"`
	EnteredPriceText   string      `json:"entered_price_text"`
	EnteredPriceDimmed bool        `json:"entered_price_dimmed"`
	ChargeTotal        money.Money `json:"charge_total"`
	ChargeTotalText    string      `json:"charge_total_text"`
	ChargeEnabled      bool        `json:"charge_enabled"`
	CartItemCount      int         `json:"cart_item_count"`
}

// Keypad tracks the entered price and reports changes through a CartUpdater.
type Keypad struct {
	currency money.Currency
	updater  orderentry.CartUpdater
	openItem *cart.Item
	total    money.Money
	count    int
}

var (
	_ orderentry.Observer      = (*Keypad)(nil)
	_ orderentry.EntryResetter = (*Keypad)(nil)
)

func New(currency money.Currency, updater orderentry.CartUpdater) *Keypad {
	return &Keypad{
		currency: currency,
		updater:  updater,
		total:    money.Zero(currency),
	}
}

// Press handles a keypad button.
func (k *Keypad) Press(ctx context.Context, key Key) error {
	if d, ok := key.digit(); ok {
		return k.appendDigit(ctx, d)
	}
	switch key {
	case KeyClear:
		return k.ResetEnteredPrice(ctx)
	case KeyAddItem:
		return k.closeOpenItem(ctx)
	case KeyBackspace:
		return k.Backspace(ctx)
	default:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown key %q", key)
	}
}

// InsertText maps hardware keyboard input: digits enter, newline adds the item,
// anything else is ignored.
func (k *Keypad) InsertText(ctx context.Context, text string) error {
	switch {
	case text == "\n":
		return k.Press(ctx, KeyAddItem)
	case len(text) == 1 && text[0] >= '0' && text[0] <= '9':
		return k.Press(ctx, Key(text))
	default:
		return nil
	}
}

// Backspace drops the last entered digit; removing the only digit clears the entry.
func (k *Keypad) Backspace(ctx context.Context) error {
	amount := k.enteredAmount() / 10
	if amount == 0 {
		return k.setOpenItem(ctx, nil)
	}
	item := cart.NewCustomItem(money.Money{Amount: amount, Currency: k.currency})
	return k.setOpenItem(ctx, &item)
}

// ResetEnteredPrice clears the open item.
func (k *Keypad) ResetEnteredPrice(ctx context.Context) error {
	return k.setOpenItem(ctx, nil)
}

// CartDidChange re-derives the display from the latest cart.
func (k *Keypad) CartDidChange(ctx context.Context, c cart.Cart) {
	k.currency = c.Currency()
	k.openItem = nil
	if open, ok := c.OpenItem(); ok {
		k.openItem = &open
	}
	k.total = c.Total()
	k.count = c.Len()
}

func (k *Keypad) View() View {
	price := money.Money{Amount: k.enteredAmount(), Currency: k.currency}
	return View{
		EnteredPrice:       price,
		EnteredPriceText:   price.String(),
		EnteredPriceDimmed: k.openItem == nil,
		ChargeTotal:        k.total,
		ChargeTotalText:    k.total.String(),
		ChargeEnabled:      !k.total.IsZero(),
		CartItemCount:      k.count,
	}
}

func (k *Keypad) appendDigit(ctx context.Context, d int) error {
	digits := strconv.FormatInt(k.enteredAmount(), 10) + strconv.Itoa(d)
	if len(digits) > maxDigits {
		return nil
	}
	amount, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || amount == 0 {
		return nil
	}
	item := cart.NewCustomItem(money.Money{Amount: amount, Currency: k.currency})
	return k.setOpenItem(ctx, &item)
}

func (k *Keypad) closeOpenItem(ctx context.Context) error {
	if k.openItem == nil {
		return nil
	}
	if err := k.updater.CloseOpenItem(ctx); err != nil {
		return err
	}
	return k.ResetEnteredPrice(ctx)
}

// setOpenItem reports first and only keeps the new entry once the coordinator accepts it.
func (k *Keypad) setOpenItem(ctx context.Context, item *cart.Item) error {
	if err := k.updater.DidUpdateOpenItem(ctx, item); err != nil {
		return err
	}
	if item == nil {
		k.openItem = nil
		return nil
	}
	next := *item
	k.openItem = &next
	return nil
}

func (k *Keypad) enteredAmount() int64 {
	if k.openItem == nil {
		return 0
	}
	return k.openItem.Price.Amount
}

package orderentry

import (
	"context"

	"github.com/angelmondragon/readerpos/internal/cart"
	"github.com/angelmondragon/readerpos/pkg/money"
)

// Observer renders a cart. It receives a private copy of the full cart on
// every change and must re-derive its state from it.
type Observer interface {
	CartDidChange(ctx context.Context, c cart.Cart)
}

// EntryResetter is the keypad capability used when its open item disappears
// through another surface.
type EntryResetter interface {
	ResetEnteredPrice(ctx context.Context) error
}

// CartUpdater is what surfaces hold to report user intent. Surfaces never own
// the cart; they keep this non-owning reference to the coordinator.
type CartUpdater interface {
	CloseOpenItem(ctx context.Context) error
	DidUpdateOpenItem(ctx context.Context, item *cart.Item) error
	DidRemoveItemFromCart(ctx context.Context, updated cart.Cart) error
}

// ChargeRequest carries the final total to the payment collaborator.
// IdempotencyKey stays the same across retries of the same cart while the
// previous attempt's outcome is unknown.
type ChargeRequest struct {
	SessionID      string
	Total          money.Money
	Cart           cart.Cart
	SourceID       string
	IdempotencyKey string
}

// ChargeResult describes a completed payment.
type ChargeResult struct {
	PaymentID string      `json:"payment_id"`
	ReceiptID string      `json:"receipt_id,omitempty"`
	Status    string      `json:"status"`
	Total     money.Money `json:"total"`
}

// Charger initiates a payment. A nil error means the payment completed;
// canceled, timed-out, and unauthorized payments are reported as typed errors.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// Metrics is the subset of pkg/metrics the coordinator records.
type Metrics interface {
	IncBroadcast(observers int)
	ObserveCharge(outcome string, total money.Money)
}

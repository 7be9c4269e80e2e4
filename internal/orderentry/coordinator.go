// Package orderentry owns the authoritative cart for an order session and keeps
// every presentation surface in sync with it.
package orderentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/readerpos/internal/cart"
	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
	"github.com/angelmondragon/readerpos/pkg/logger"
	"github.com/angelmondragon/readerpos/pkg/money"
)

var (
	errChargerRequired = errors.New("charger is required")
	errLoggerRequired  = errors.New("logger is required")
)

// CoordinatorParams wires a coordinator. Metrics is optional.
type CoordinatorParams struct {
	SessionID string
	Currency  money.Currency
	Charger   Charger
	Logger    *logger.Logger
	Metrics   Metrics
}

// Coordinator is the sole writer of the session cart. It is not safe for
// concurrent use: every call, including observer callbacks, runs on the
// caller's goroutine and must be serialized by the owner (see internal/session).
type Coordinator struct {
	sessionID string
	cart      cart.Cart
	state     State
	observers []Observer
	resetter  EntryResetter
	charger   Charger
	logger    *logger.Logger
	metrics   Metrics

	// pendingKey is reused while pendingCart is unchanged and the last
	// attempt's outcome is unknown.
	pendingKey  string
	pendingCart cart.Cart
}

var _ CartUpdater = (*Coordinator)(nil)

// NewCoordinator starts a session with an empty cart in the given currency.
func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if !params.Currency.IsValid() {
		return nil, fmt.Errorf("invalid session currency %q", params.Currency)
	}
	if params.Charger == nil {
		return nil, errChargerRequired
	}
	if params.Logger == nil {
		return nil, errLoggerRequired
	}
	return &Coordinator{
		sessionID: params.SessionID,
		cart:      cart.New(params.Currency),
		state:     StateEmpty,
		charger:   params.Charger,
		logger:    params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// Subscribe registers a rendering surface and immediately sends it the current cart.
func (c *Coordinator) Subscribe(ctx context.Context, observer Observer) {
	if observer == nil {
		return
	}
	c.observers = append(c.observers, observer)
	observer.CartDidChange(ctx, c.cart.Clone())
}

// SetEntryResetter registers the keypad surface.
func (c *Coordinator) SetEntryResetter(resetter EntryResetter) {
	c.resetter = resetter
}

// Cart returns a copy of the authoritative cart.
func (c *Coordinator) Cart() cart.Cart {
	return c.cart.Clone()
}

func (c *Coordinator) State() State {
	return c.state
}

func (c *Coordinator) SessionID() string {
	return c.sessionID
}

// CloseOpenItem commits the open item and broadcasts.
func (c *Coordinator) CloseOpenItem(ctx context.Context) error {
	if err := c.ensureMutable(); err != nil {
		return err
	}
	if err := c.cart.CloseOpenItem(); err != nil {
		return c.fail(ctx, "cart.close_open_item", err)
	}
	c.changed(ctx, "cart.open_item_closed")
	return nil
}

// DidUpdateOpenItem applies keypad entry. An unchanged open item is ignored,
// which also stops the keypad from echoing a broadcast back as a new update.
func (c *Coordinator) DidUpdateOpenItem(ctx context.Context, item *cart.Item) error {
	current, hasCurrent := c.cart.OpenItem()
	if item == nil && !hasCurrent {
		return nil
	}
	if item != nil && hasCurrent && current.Equal(*item) {
		return nil
	}
	if err := c.ensureMutable(); err != nil {
		return err
	}
	if err := c.cart.SetOpenItem(item); err != nil {
		return c.fail(ctx, "cart.set_open_item", err)
	}
	c.changed(ctx, "cart.open_item_updated")
	return nil
}

// DidRemoveItemFromCart adopts a cart the list surface already mutated. When
// the adopted cart has no open item the keypad is told to clear its display.
func (c *Coordinator) DidRemoveItemFromCart(ctx context.Context, updated cart.Cart) error {
	if err := c.ensureMutable(); err != nil {
		return err
	}
	if updated.Currency() != c.cart.Currency() {
		err := pkgerrors.Newf(pkgerrors.CodeContractViolation, "expected %s cart, got %s", c.cart.Currency(), updated.Currency())
		return c.fail(ctx, "cart.adopt", err)
	}

	c.cart = updated.Clone()
	c.changed(ctx, "cart.item_removed")

	if !c.cart.HasOpenItem() && c.resetter != nil {
		if err := c.resetter.ResetEnteredPrice(ctx); err != nil {
			return err
		}
	}
	return nil
}

// BeginCharge freezes the cart and returns the request to hand to the charger.
// The caller may release its lock while the payment runs; every mutation is
// rejected until FinishCharge.
func (c *Coordinator) BeginCharge(ctx context.Context, sourceID string) (ChargeRequest, error) {
	if err := c.ensureMutable(); err != nil {
		return ChargeRequest{}, err
	}
	total := c.cart.Total()
	if total.IsZero() {
		return ChargeRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	c.state = StateCharging
	key := c.idempotencyKey()
	ctx = c.logger.WithFields(ctx, map[string]any{
		"session_id":      c.sessionID,
		"total":           total.String(),
		"item_count":      c.cart.Len(),
		"idempotency_key": key,
	})
	c.logger.Info(ctx, "charge.requested")

	return ChargeRequest{
		SessionID:      c.sessionID,
		Total:          total,
		Cart:           c.cart.Clone(),
		SourceID:       sourceID,
		IdempotencyKey: key,
	}, nil
}

func (c *Coordinator) idempotencyKey() string {
	if c.pendingKey == "" || !c.pendingCart.Equal(c.cart) {
		c.pendingKey = "charge-" + uuid.NewString()
		c.pendingCart = c.cart.Clone()
	}
	return c.pendingKey
}

// FinishCharge unfreezes the cart. A completed payment replaces the cart with
// a fresh empty one; any other outcome leaves it unchanged.
func (c *Coordinator) FinishCharge(ctx context.Context, req ChargeRequest, result *ChargeResult, chargeErr error) error {
	if c.state != StateCharging {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no charge in progress")
	}

	outcome := ClassifyChargeError(chargeErr)
	if chargeErr == nil && result == nil {
		outcome = OutcomeFailed
		chargeErr = pkgerrors.New(pkgerrors.CodeInternal, "charger returned no result")
	}
	if c.metrics != nil {
		c.metrics.ObserveCharge(outcome, req.Total)
	}

	ctx = c.logger.WithFields(ctx, map[string]any{
		"session_id": c.sessionID,
		"outcome":    outcome,
		"total":      req.Total.String(),
	})

	if !outcomeUnknown(chargeErr) {
		c.pendingKey = ""
	}

	if chargeErr != nil {
		c.state = stateFor(c.cart)
		switch outcome {
		case OutcomeCanceled, OutcomeTimedOut:
			c.logger.Info(ctx, "charge.dismissed")
		case OutcomeUnauthorized:
			c.logger.Warn(ctx, "charge.not_authorized")
		default:
			c.logger.Error(ctx, "charge.failed", chargeErr)
		}
		return chargeErr
	}

	ctx = c.logger.WithFields(ctx, map[string]any{
		"payment_id": result.PaymentID,
		"status":     result.Status,
	})
	c.logger.Info(ctx, "charge.completed")

	c.cart = cart.New(c.cart.Currency())
	c.state = StateEmpty
	c.broadcast(ctx)
	return nil
}

// Charge runs BeginCharge, the charger, and FinishCharge in one call.
func (c *Coordinator) Charge(ctx context.Context, sourceID string) (*ChargeResult, error) {
	req, err := c.BeginCharge(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result, chargeErr := c.charger.Charge(ctx, req)
	c.logger.Debug(c.logger.WithField(ctx, "duration_ms", time.Since(start).Milliseconds()), "charge.returned")
	if err := c.FinishCharge(ctx, req, result, chargeErr); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Coordinator) ensureMutable() error {
	if c.state == StateCharging {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is frozen while a payment is in progress")
	}
	return nil
}

func (c *Coordinator) changed(ctx context.Context, event string) {
	c.state = stateFor(c.cart)
	ctx = c.logger.WithFields(ctx, map[string]any{
		"session_id": c.sessionID,
		"item_count": c.cart.Len(),
		"total":      c.cart.Total().String(),
	})
	c.logger.Debug(ctx, event)
	c.broadcast(ctx)
}

func (c *Coordinator) broadcast(ctx context.Context) {
	for _, observer := range c.observers {
		observer.CartDidChange(ctx, c.cart.Clone())
	}
	if c.metrics != nil {
		c.metrics.IncBroadcast(len(c.observers))
	}
}

func (c *Coordinator) fail(ctx context.Context, op string, err error) error {
	ctx = c.logger.WithFields(ctx, map[string]any{
		"session_id": c.sessionID,
		"operation":  op,
	})
	if pkgerrors.IsFatal(err) {
		c.logger.Error(ctx, "cart.contract_violation", err)
	} else {
		c.logger.Warn(ctx, "cart.rejected")
	}
	return err
}

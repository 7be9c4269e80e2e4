// Package payments charges a finished cart through Square and records the receipt.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/readerpos/internal/orderentry"
	"github.com/angelmondragon/readerpos/internal/receipts"
	"github.com/angelmondragon/readerpos/pkg/enums"
	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
	"github.com/angelmondragon/readerpos/pkg/logger"
	"github.com/angelmondragon/readerpos/pkg/square"
)

type paymentCreator interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
}

// ChargeGuard serializes charges per session across processes (pkg/redis).
type ChargeGuard interface {
	AcquireChargeGuard(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	ReleaseChargeGuard(ctx context.Context, sessionID string) error
}

// Params wires a Charger. Guard is optional.
type Params struct {
	Square          paymentCreator
	Receipts        receipts.Service
	Guard           ChargeGuard
	Logger          *logger.Logger
	Timeout         time.Duration
	GuardTTL        time.Duration
	DefaultSourceID string
}

// Charger implements orderentry.Charger against Square.
type Charger struct {
	square          paymentCreator
	receipts        receipts.Service
	guard           ChargeGuard
	logger          *logger.Logger
	timeout         time.Duration
	guardTTL        time.Duration
	defaultSourceID string
}

var _ orderentry.Charger = (*Charger)(nil)

func NewCharger(p Params) (*Charger, error) {
	if p.Square == nil {
		return nil, errors.New("square client required")
	}
	if p.Receipts == nil {
		return nil, errors.New("receipts service required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	if p.Timeout <= 0 {
		p.Timeout = time.Minute
	}
	if p.GuardTTL < p.Timeout {
		p.GuardTTL = 2 * p.Timeout
	}
	return &Charger{
		square:          p.Square,
		receipts:        p.Receipts,
		guard:           p.Guard,
		logger:          p.Logger,
		timeout:         p.Timeout,
		guardTTL:        p.GuardTTL,
		defaultSourceID: strings.TrimSpace(p.DefaultSourceID),
	}, nil
}

// Charge creates the payment and, once it completes, stores a receipt. A
// receipt that fails to store is logged; the payment still counts as completed.
// Canceling ctx does not abandon a payment in flight: Square gets the full
// timeout, because a dropped client says nothing about whether the card was
// captured.
func (c *Charger) Charge(ctx context.Context, req orderentry.ChargeRequest) (*orderentry.ChargeResult, error) {
	ctx = context.WithoutCancel(ctx)
	sourceID := strings.TrimSpace(req.SourceID)
	if sourceID == "" {
		sourceID = c.defaultSourceID
	}
	if sourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	}

	if c.guard != nil {
		acquired, err := c.guard.AcquireChargeGuard(ctx, req.SessionID, c.guardTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire charge guard")
		}
		if !acquired {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a charge is already in progress for this session")
		}
		defer func() {
			if err := c.guard.ReleaseChargeGuard(ctx, req.SessionID); err != nil {
				c.logger.Warn(c.logger.WithField(ctx, "error", err.Error()), "charge.guard_release_failed")
			}
		}()
	}

	idempotencyKey := strings.TrimSpace(req.IdempotencyKey)
	if idempotencyKey == "" {
		idempotencyKey = fmt.Sprintf("charge-%s", uuid.NewString())
	}
	payCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payment, err := c.square.CreatePayment(payCtx, square.PaymentCreateParams{
		Amount:         req.Total.Amount,
		Currency:       req.Total.Currency.String(),
		SourceID:       sourceID,
		IdempotencyKey: idempotencyKey,
		ReferenceID:    req.SessionID,
		Note:           fmt.Sprintf("Reader sale, %d items", req.Cart.Len()),
	})
	if err != nil {
		if errors.Is(payCtx.Err(), context.DeadlineExceeded) && !pkgerrors.HasCode(err, pkgerrors.CodePaymentTimeout) {
			return nil, pkgerrors.Wrap(pkgerrors.CodePaymentTimeout, err, "payment timed out")
		}
		return nil, err
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square returned no payment")
	}

	paymentID := stringValue(payment.GetID())
	status, err := enums.ParsePaymentStatus(stringValue(payment.GetStatus()))
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("payment %s", paymentID))
	case status.Captured():
	case status == enums.PaymentStatusCanceled:
		return nil, pkgerrors.Newf(pkgerrors.CodePaymentCanceled, "payment %s canceled", paymentID)
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeDependency, "payment %s ended with status %q", paymentID, status)
	}

	result := &orderentry.ChargeResult{
		PaymentID: paymentID,
		Status:    status.String(),
		Total:     req.Total,
	}
	receipt, err := c.receipts.Record(ctx, receipts.RecordInput{
		SessionID: req.SessionID,
		PaymentID: paymentID,
		Status:    status.String(),
		Cart:      req.Cart,
	})
	if err != nil {
		c.logger.Error(c.logger.WithField(ctx, "payment_id", paymentID), "receipt.record_failed", err)
		return result, nil
	}
	result.ReceiptID = receipt.ID
	return result, nil
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/readerpos/internal/cart"
	"github.com/angelmondragon/readerpos/internal/orderentry"
	"github.com/angelmondragon/readerpos/internal/receipts"
	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
	"github.com/angelmondragon/readerpos/pkg/logger"
	"github.com/angelmondragon/readerpos/pkg/money"
	"github.com/angelmondragon/readerpos/pkg/pagination"
	"github.com/angelmondragon/readerpos/pkg/square"
)

type stubSquare struct {
	params  []square.PaymentCreateParams
	payment *sq.Payment
	err     error
	block   bool
	delay   time.Duration
}

func (s *stubSquare) CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error) {
	s.params = append(s.params, params)
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.payment, s.err
}

type stubReceipts struct {
	inputs []receipts.RecordInput
	err    error
}

func (s *stubReceipts) Record(ctx context.Context, input receipts.RecordInput) (*receipts.ReceiptDTO, error) {
	s.inputs = append(s.inputs, input)
	if s.err != nil {
		return nil, s.err
	}
	return &receipts.ReceiptDTO{ID: "rcpt-1", PaymentID: input.PaymentID}, nil
}

func (s *stubReceipts) Get(ctx context.Context, id string) (*receipts.ReceiptDTO, error) {
	return nil, errors.New("not implemented")
}

func (s *stubReceipts) ListBySession(ctx context.Context, sessionID string, params pagination.Params) (pagination.Page[receipts.ReceiptDTO], error) {
	return pagination.Page[receipts.ReceiptDTO]{}, nil
}

type stubGuard struct {
	held     map[string]bool
	released int
}

func (g *stubGuard) AcquireChargeGuard(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	if g.held[sessionID] {
		return false, nil
	}
	g.held[sessionID] = true
	return true, nil
}

func (g *stubGuard) ReleaseChargeGuard(ctx context.Context, sessionID string) error {
	delete(g.held, sessionID)
	g.released++
	return nil
}

func payment(id, status string) *sq.Payment {
	return &sq.Payment{ID: &id, Status: &status}
}

func chargeRequest(t *testing.T) orderentry.ChargeRequest {
	t.Helper()
	c := cart.New(money.CurrencyUSD)
	item := cart.NewCustomItem(money.Money{Amount: 850, Currency: money.CurrencyUSD})
	if err := c.SetOpenItem(&item); err != nil {
		t.Fatalf("set open: %v", err)
	}
	return orderentry.ChargeRequest{SessionID: "sess-1", Total: c.Total(), Cart: c}
}

func newTestCharger(t *testing.T, sqStub *stubSquare, rec *stubReceipts, guard ChargeGuard, timeout time.Duration) *Charger {
	t.Helper()
	charger, err := NewCharger(Params{
		Square:          sqStub,
		Receipts:        rec,
		Guard:           guard,
		Logger:          logger.Nop(),
		Timeout:         timeout,
		DefaultSourceID: "cnon:card-nonce-ok",
	})
	if err != nil {
		t.Fatalf("new charger: %v", err)
	}
	return charger
}

func TestChargeCompletedRecordsReceipt(t *testing.T) {
	sqStub := &stubSquare{payment: payment("pay-1", "COMPLETED")}
	rec := &stubReceipts{}
	charger := newTestCharger(t, sqStub, rec, nil, time.Second)

	result, err := charger.Charge(context.Background(), chargeRequest(t))
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if result.PaymentID != "pay-1" || result.ReceiptID != "rcpt-1" || result.Status != "COMPLETED" {
		t.Fatalf("unexpected result %+v", result)
	}
	params := sqStub.params[0]
	if params.Amount != 850 || params.Currency != "USD" || params.SourceID != "cnon:card-nonce-ok" || params.ReferenceID != "sess-1" {
		t.Fatalf("unexpected params %+v", params)
	}
	if params.IdempotencyKey == "" {
		t.Fatalf("expected idempotency key")
	}
	if len(rec.inputs) != 1 || rec.inputs[0].Cart.Total().Amount != 850 {
		t.Fatalf("expected receipt for the charged cart")
	}
}

func TestChargeSurvivesCallerHangup(t *testing.T) {
	sqStub := &stubSquare{payment: payment("pay-4", "COMPLETED"), delay: 50 * time.Millisecond}
	rec := &stubReceipts{}
	charger := newTestCharger(t, sqStub, rec, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	req := chargeRequest(t)
	req.IdempotencyKey = "charge-fixed"
	result, err := charger.Charge(ctx, req)
	if err != nil {
		t.Fatalf("payment should finish after the caller hangs up, got %v", err)
	}
	if result.PaymentID != "pay-4" || result.ReceiptID != "rcpt-1" {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := sqStub.params[0].IdempotencyKey; got != "charge-fixed" {
		t.Fatalf("expected request idempotency key, got %q", got)
	}
}

func TestChargeReceiptFailureStillCompletes(t *testing.T) {
	sqStub := &stubSquare{payment: payment("pay-2", "COMPLETED")}
	rec := &stubReceipts{err: errors.New("db down")}
	charger := newTestCharger(t, sqStub, rec, nil, time.Second)

	result, err := charger.Charge(context.Background(), chargeRequest(t))
	if err != nil {
		t.Fatalf("expected completed payment, got %v", err)
	}
	if result.ReceiptID != "" {
		t.Fatalf("expected empty receipt id, got %q", result.ReceiptID)
	}
}

func TestChargeStatusMapping(t *testing.T) {
	cases := map[string]pkgerrors.Code{
		"CANCELED": pkgerrors.CodePaymentCanceled,
		"FAILED":   pkgerrors.CodeDependency,
		"PENDING":  pkgerrors.CodeDependency,
		"":         pkgerrors.CodeDependency,
	}
	for status, code := range cases {
		charger := newTestCharger(t, &stubSquare{payment: payment("pay", status)}, &stubReceipts{}, nil, time.Second)
		_, err := charger.Charge(context.Background(), chargeRequest(t))
		if !pkgerrors.HasCode(err, code) {
			t.Fatalf("status %s: expected %s, got %v", status, code, err)
		}
		if orderentry.ClassifyChargeError(err) == orderentry.OutcomeCompleted {
			t.Fatalf("status %s should not classify as completed", status)
		}
	}
}

func TestChargeTimeout(t *testing.T) {
	charger := newTestCharger(t, &stubSquare{block: true}, &stubReceipts{}, nil, 10*time.Millisecond)

	_, err := charger.Charge(context.Background(), chargeRequest(t))
	if !pkgerrors.HasCode(err, pkgerrors.CodePaymentTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if orderentry.ClassifyChargeError(err) != orderentry.OutcomeTimedOut {
		t.Fatalf("expected timed_out outcome")
	}
}

func TestChargePassesThroughTypedErrors(t *testing.T) {
	unauthorized := pkgerrors.New(pkgerrors.CodeUnauthorized, "token revoked")
	charger := newTestCharger(t, &stubSquare{err: unauthorized}, &stubReceipts{}, nil, time.Second)

	_, err := charger.Charge(context.Background(), chargeRequest(t))
	if !errors.Is(err, unauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestChargeGuardRejectsConcurrentCharge(t *testing.T) {
	guard := &stubGuard{held: map[string]bool{"sess-1": true}}
	sqStub := &stubSquare{payment: payment("pay-3", "COMPLETED")}
	charger := newTestCharger(t, sqStub, &stubReceipts{}, guard, time.Second)

	_, err := charger.Charge(context.Background(), chargeRequest(t))
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(sqStub.params) != 0 {
		t.Fatalf("square must not be called while guarded")
	}

	delete(guard.held, "sess-1")
	if _, err := charger.Charge(context.Background(), chargeRequest(t)); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if guard.released != 1 || guard.held["sess-1"] {
		t.Fatalf("expected guard released after charge")
	}
}

func TestChargeRequiresSource(t *testing.T) {
	charger, err := NewCharger(Params{Square: &stubSquare{}, Receipts: &stubReceipts{}, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("new charger: %v", err)
	}
	_, err = charger.Charge(context.Background(), chargeRequest(t))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

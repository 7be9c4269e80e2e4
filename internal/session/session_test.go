package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/readerpos/internal/keypad"
	"github.com/angelmondragon/readerpos/internal/orderentry"
	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
	"github.com/angelmondragon/readerpos/pkg/logger"
	"github.com/angelmondragon/readerpos/pkg/money"
)

type stubCharger struct {
	mu       sync.Mutex
	started  chan struct{}
	release  chan struct{}
	err      error
	requests []orderentry.ChargeRequest
}

func (s *stubCharger) Charge(ctx context.Context, req orderentry.ChargeRequest) (*orderentry.ChargeResult, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return &orderentry.ChargeResult{PaymentID: "pay-1", Status: "COMPLETED", Total: req.Total}, nil
}

func newTestSession(t *testing.T, charger orderentry.Charger) *Session {
	t.Helper()
	s, err := New(context.Background(), Params{
		ID:       "sess-1",
		Currency: money.CurrencyUSD,
		Charger:  charger,
		Logger:   logger.Nop(),
	})
	require.NoError(t, err)
	return s
}

func pressAll(t *testing.T, s *Session, keys ...keypad.Key) View {
	t.Helper()
	var view View
	for _, key := range keys {
		var err error
		view, err = s.PressKey(context.Background(), key)
		require.NoError(t, err, "press %s", key)
	}
	return view
}

func TestKeypadAndListStayInSync(t *testing.T) {
	s := newTestSession(t, &stubCharger{})

	view := pressAll(t, s, "3", "5", "0", keypad.KeyAddItem, "5", "0", "0")

	assert.Equal(t, orderentry.StateBuilding, view.State)
	assert.Equal(t, int64(850), view.Cart.Total.Amount)
	assert.Equal(t, "$8.50", view.Keypad.ChargeTotalText)
	assert.Equal(t, "$5.00", view.Keypad.EnteredPriceText)
	assert.True(t, view.Keypad.ChargeEnabled)
	require.Len(t, view.List.Rows, 2)
	assert.False(t, view.List.Rows[0].Open)
	assert.True(t, view.List.Rows[1].Open)
	assert.Equal(t, view.Cart.ItemCount, view.Keypad.CartItemCount)
}

func TestDeletingOpenRowClearsKeypad(t *testing.T) {
	s := newTestSession(t, &stubCharger{})
	pressAll(t, s, "3", "5", "0", keypad.KeyAddItem, "5", "0", "0")

	view, err := s.DeleteItem(context.Background(), 1)
	require.NoError(t, err)

	assert.Nil(t, view.Cart.OpenItem)
	assert.Equal(t, int64(350), view.Cart.Total.Amount)
	assert.True(t, view.Keypad.EnteredPriceDimmed)
	assert.Equal(t, int64(0), view.Keypad.EnteredPrice.Amount)
	require.Len(t, view.List.Rows, 1)

	// next digit starts a fresh entry instead of appending to the removed one
	view = pressAll(t, s, "2")
	assert.Equal(t, int64(2), view.Keypad.EnteredPrice.Amount)
	assert.Equal(t, int64(352), view.Cart.Total.Amount)
}

func TestDeletingClosedRowKeepsEntry(t *testing.T) {
	s := newTestSession(t, &stubCharger{})
	pressAll(t, s, "3", "5", "0", keypad.KeyAddItem, "5")

	view, err := s.DeleteItem(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), view.Keypad.EnteredPrice.Amount)
	require.NotNil(t, view.Cart.OpenItem)
	assert.Empty(t, view.Cart.ClosedItems)
}

func TestInsertText(t *testing.T) {
	s := newTestSession(t, &stubCharger{})
	ctx := context.Background()
	for _, text := range []string{"1", "2", "\n"} {
		_, err := s.InsertText(ctx, text)
		require.NoError(t, err)
	}
	view := s.View()
	require.Len(t, view.Cart.ClosedItems, 1)
	assert.Equal(t, int64(12), view.Cart.ClosedItems[0].Price.Amount)
}

func TestChargeCompletesAndResets(t *testing.T) {
	charger := &stubCharger{}
	s := newTestSession(t, charger)
	pressAll(t, s, "8", "5", "0")

	result, view, err := s.Charge(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", result.PaymentID)
	assert.Equal(t, orderentry.StateEmpty, view.State)
	assert.Equal(t, 0, view.Cart.ItemCount)
	assert.False(t, view.Keypad.ChargeEnabled)
	assert.Empty(t, view.List.Rows)
	require.Len(t, charger.requests, 1)
	assert.Equal(t, int64(850), charger.requests[0].Total.Amount)
}

func TestChargeFailureKeepsCart(t *testing.T) {
	charger := &stubCharger{err: pkgerrors.New(pkgerrors.CodePaymentCanceled, "buyer canceled")}
	s := newTestSession(t, charger)
	pressAll(t, s, "4", "2")

	_, view, err := s.Charge(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, orderentry.StateBuilding, view.State)
	assert.Equal(t, int64(42), view.Cart.Total.Amount)
}

func TestMutationsRejectedWhileCharging(t *testing.T) {
	charger := &stubCharger{started: make(chan struct{}), release: make(chan struct{})}
	s := newTestSession(t, charger)
	pressAll(t, s, "9")

	done := make(chan error, 1)
	go func() {
		_, _, err := s.Charge(context.Background(), "")
		done <- err
	}()
	<-charger.started

	view := s.View()
	assert.Equal(t, orderentry.StateCharging, view.State)

	_, err := s.PressKey(context.Background(), "1")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	_, err = s.DeleteItem(context.Background(), 0)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)
	_, _, err = s.Charge(context.Background(), "")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	close(charger.release)
	require.NoError(t, <-done)
	assert.Equal(t, orderentry.StateEmpty, s.View().State)
}

func TestEmptyCartCannotCharge(t *testing.T) {
	charger := &stubCharger{}
	s := newTestSession(t, charger)

	_, _, err := s.Charge(context.Background(), "")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, charger.requests)
}

type panicCharger struct{}

func (panicCharger) Charge(ctx context.Context, req orderentry.ChargeRequest) (*orderentry.ChargeResult, error) {
	panic("terminal disconnected")
}

func TestChargerPanicUnfreezesCart(t *testing.T) {
	s := newTestSession(t, panicCharger{})
	pressAll(t, s, "5")

	assert.PanicsWithValue(t, "terminal disconnected", func() {
		_, _, _ = s.Charge(context.Background(), "")
	})

	view := s.View()
	assert.Equal(t, orderentry.StateBuilding, view.State)
	assert.Equal(t, int64(5), view.Cart.Total.Amount)

	view, err := s.PressKey(context.Background(), "0")
	require.NoError(t, err)
	assert.Equal(t, int64(50), view.Cart.Total.Amount)
}

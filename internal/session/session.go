// Package session owns one order-entry session: the coordinator, its keypad
// and list surfaces, and the lock that serializes every call into them.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/readerpos/internal/cart"
	"github.com/angelmondragon/readerpos/internal/cartlist"
	"github.com/angelmondragon/readerpos/internal/keypad"
	"github.com/angelmondragon/readerpos/internal/orderentry"
	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
	"github.com/angelmondragon/readerpos/pkg/logger"
	"github.com/angelmondragon/readerpos/pkg/money"
)

// Params wires a session. ID defaults to a new UUID; Metrics is optional.
type Params struct {
	ID       string
	Currency money.Currency
	Charger  orderentry.Charger
	Logger   *logger.Logger
	Metrics  orderentry.Metrics
}

// View is the whole register screen at one instant.
type View struct {
	SessionID string           `json:"session_id"`
	State     orderentry.State `json:"state"`
	Cart      cart.Snapshot    `json:"cart"`
	Keypad    keypad.View      `json:"keypad"`
	List      cartlist.View    `json:"list"`
}

type Session struct {
	mu      sync.Mutex
	id      string
	coord   *orderentry.Coordinator
	keypad  *keypad.Keypad
	list    *cartlist.List
	charger orderentry.Charger
	logger  *logger.Logger
}

// New builds the coordinator and subscribes both surfaces to it.
func New(ctx context.Context, p Params) (*Session, error) {
	if p.Charger == nil {
		return nil, errors.New("charger required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	coord, err := orderentry.NewCoordinator(orderentry.CoordinatorParams{
		SessionID: id,
		Currency:  p.Currency,
		Charger:   p.Charger,
		Logger:    p.Logger,
		Metrics:   p.Metrics,
	})
	if err != nil {
		return nil, err
	}

	kp := keypad.New(p.Currency, coord)
	list := cartlist.New(coord)
	coord.Subscribe(ctx, kp)
	coord.Subscribe(ctx, list)
	coord.SetEntryResetter(kp)

	ctx = p.Logger.WithSessionID(ctx, id)
	p.Logger.Info(p.Logger.WithField(ctx, "currency", p.Currency.String()), "session.started")

	return &Session{
		id:      id,
		coord:   coord,
		keypad:  kp,
		list:    list,
		charger: p.Charger,
		logger:  p.Logger,
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// PressKey applies a keypad button.
func (s *Session) PressKey(ctx context.Context, key keypad.Key) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.keypad.Press(s.ctx(ctx), key)
	return s.viewLocked(), err
}

// InsertText applies hardware keyboard input.
func (s *Session) InsertText(ctx context.Context, text string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.keypad.InsertText(s.ctx(ctx), text)
	return s.viewLocked(), err
}

// DeleteItem swipes away the list row at index.
func (s *Session) DeleteItem(ctx context.Context, index int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.list.Delete(s.ctx(ctx), index)
	return s.viewLocked(), err
}

// Charge pays for the cart. The lock is released while the payment runs so
// reads stay responsive; the coordinator rejects mutations until it finishes.
// A panicking charger still unfreezes the cart before the panic propagates.
func (s *Session) Charge(ctx context.Context, sourceID string) (*orderentry.ChargeResult, View, error) {
	ctx = s.ctx(ctx)

	s.mu.Lock()
	req, err := s.coord.BeginCharge(ctx, sourceID)
	if err != nil {
		view := s.viewLocked()
		s.mu.Unlock()
		return nil, view, err
	}
	s.mu.Unlock()

	result, rec, chargeErr := s.runCharger(ctx, req)

	s.mu.Lock()
	finishErr := s.coord.FinishCharge(ctx, req, result, chargeErr)
	view := s.viewLocked()
	s.mu.Unlock()

	if rec != nil {
		panic(rec)
	}
	if finishErr != nil {
		return nil, view, finishErr
	}
	return result, view, nil
}

func (s *Session) runCharger(ctx context.Context, req orderentry.ChargeRequest) (result *orderentry.ChargeResult, rec any, err error) {
	defer func() {
		if rec = recover(); rec != nil {
			result = nil
			err = pkgerrors.Newf(pkgerrors.CodeInternal, "charger panicked: %v", rec)
		}
	}()
	result, err = s.charger.Charge(ctx, req)
	return result, nil, err
}

func (s *Session) ctx(ctx context.Context) context.Context {
	return s.logger.WithSessionID(ctx, s.id)
}

func (s *Session) viewLocked() View {
	return View{
		SessionID: s.id,
		State:     s.coord.State(),
		Cart:      s.coord.Cart().Snapshot(),
		Keypad:    s.keypad.View(),
		List:      s.list.View(),
	}
}

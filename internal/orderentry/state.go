package orderentry

import (
	"github.com/angelmondragon/readerpos/internal/cart"
	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
)

// State tracks where an order session is. Charging freezes the cart.
type State string

const (
	StateEmpty    State = "empty"
	StateBuilding State = "building"
	StateCharging State = "charging"
)

func stateFor(c cart.Cart) State {
	if c.IsEmpty() {
		return StateEmpty
	}
	return StateBuilding
}

// Charge outcomes as recorded in metrics and logs.
const (
	OutcomeCompleted    = "completed"
	OutcomeCanceled     = "canceled"
	OutcomeTimedOut     = "timed_out"
	OutcomeUnauthorized = "unauthorized"
	OutcomeFailed       = "failed"
)

// ClassifyChargeError maps a charger error onto an outcome label.
func ClassifyChargeError(err error) string {
	switch {
	case err == nil:
		return OutcomeCompleted
	case pkgerrors.HasCode(err, pkgerrors.CodePaymentCanceled):
		return OutcomeCanceled
	case pkgerrors.HasCode(err, pkgerrors.CodePaymentTimeout):
		return OutcomeTimedOut
	case pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized):
		return OutcomeUnauthorized
	default:
		return OutcomeFailed
	}
}

// outcomeUnknown reports whether a failed charge may still have been captured
// by the processor, in which case a retry must reuse the idempotency key.
func outcomeUnknown(err error) bool {
	switch {
	case err == nil:
		return false
	case pkgerrors.HasCode(err, pkgerrors.CodePaymentTimeout),
		pkgerrors.HasCode(err, pkgerrors.CodeDependency),
		pkgerrors.HasCode(err, pkgerrors.CodeConflict),
		pkgerrors.HasCode(err, pkgerrors.CodeInternal):
		return true
	default:
		return pkgerrors.As(err) == nil
	}
}

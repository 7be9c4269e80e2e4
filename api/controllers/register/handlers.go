package register

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/readerpos/api/responses"
	"github.com/angelmondragon/readerpos/api/validators"
	"github.com/angelmondragon/readerpos/internal/keypad"
	"github.com/angelmondragon/readerpos/internal/orderentry"
	"github.com/angelmondragon/readerpos/internal/session"
	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
	"github.com/angelmondragon/readerpos/pkg/logger"
)

// Session is the register surface the handlers drive; *session.Session
// satisfies it.
type Session interface {
	View() session.View
	PressKey(ctx context.Context, key keypad.Key) (session.View, error)
	InsertText(ctx context.Context, text string) (session.View, error)
	DeleteItem(ctx context.Context, index int) (session.View, error)
	Charge(ctx context.Context, sourceID string) (*orderentry.ChargeResult, session.View, error)
}

// CartView returns the current register screen.
func CartView(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "register session unavailable"))
			return
		}
		responses.WriteSuccess(w, sess.View())
	}
}

// KeypadInput applies a key press or typed text to the open item.
func KeypadInput(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "register session unavailable"))
			return
		}

		var payload KeypadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := payload.validate(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var (
			view session.View
			err  error
		)
		if payload.Text != "" {
			// keyboard input arrives one character at a time
			for _, ch := range payload.Text {
				view, err = sess.InsertText(r.Context(), string(ch))
				if err != nil {
					break
				}
			}
		} else {
			key, parseErr := keypad.ParseKey(strings.TrimSpace(payload.Key))
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, parseErr)
				return
			}
			view, err = sess.PressKey(r.Context(), key)
		}
		if err != nil {
			responses.WriteErrorWithData(r.Context(), logg, w, err, view)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// DeleteItem removes the list row at {index}.
func DeleteItem(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "register session unavailable"))
			return
		}

		index, err := validators.ParsePathIndex(chi.URLParam(r, "index"), "index")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := sess.DeleteItem(r.Context(), index)
		if err != nil {
			responses.WriteErrorWithData(r.Context(), logg, w, err, view)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Charge pays for the cart. Failed payments leave the cart as it was and the
// response carries the screen so the cashier can retry.
func Charge(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "register session unavailable"))
			return
		}

		var payload ChargeRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		sourceID := validators.SanitizeString(payload.SourceID, maxSourceIDLen)

		result, view, err := sess.Charge(r.Context(), sourceID)
		if err != nil {
			responses.WriteErrorWithData(r.Context(), logg, w, err, view)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ChargeResponse{Payment: result, View: view})
	}
}

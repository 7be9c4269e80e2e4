package receipts

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/readerpos/api/responses"
	"github.com/angelmondragon/readerpos/api/validators"
	receiptsvc "github.com/angelmondragon/readerpos/internal/receipts"
	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
	"github.com/angelmondragon/readerpos/pkg/logger"
	"github.com/angelmondragon/readerpos/pkg/pagination"
)

// ReceiptFetch returns one stored receipt by id.
func ReceiptFetch(svc receiptsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipt service unavailable"))
			return
		}

		receipt, err := svc.Get(r.Context(), chi.URLParam(r, "receiptId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, receipt)
	}
}

// ReceiptList pages through a session's receipts, newest first. The session
// defaults to the register's own.
func ReceiptList(svc receiptsvc.Service, defaultSessionID string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipt service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
		if sessionID == "" {
			sessionID = defaultSessionID
		}

		page, err := svc.ListBySession(r.Context(), sessionID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

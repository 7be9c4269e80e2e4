package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/readerpos/api/responses"
	pkgerrors "github.com/angelmondragon/readerpos/pkg/errors"
	"github.com/angelmondragon/readerpos/pkg/logger"
)

// Recoverer turns handler panics into a 500 envelope. A currency mismatch in
// money arithmetic panics, so this is the last stop for it.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					err := fmt.Errorf("panic: %v", rec)
					ctx := r.Context()
					if logg != nil {
						ctx = logg.WithFields(ctx, map[string]any{
							"panic":  rec,
							"method": r.Method,
							"path":   r.URL.Path,
						})
						logg.Error(ctx, "panic.recovered", err)
					}
					responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

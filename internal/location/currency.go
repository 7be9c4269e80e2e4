// Package location resolves the selling currency of the authorized location.
package location

import (
	"context"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/readerpos/pkg/logger"
	"github.com/angelmondragon/readerpos/pkg/money"
)

type locationGetter interface {
	GetLocation(ctx context.Context, locationID string) (*sq.Location, error)
}

// ResolveCurrency returns the location's currency, or fallback when the
// location cannot be loaded or uses a currency the register does not support.
func ResolveCurrency(ctx context.Context, getter locationGetter, locationID string, fallback money.Currency, logg *logger.Logger) money.Currency {
	if getter == nil {
		return fallback
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"location_id": locationID,
		"fallback":    fallback.String(),
	})

	loc, err := getter.GetLocation(ctx, locationID)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "location.currency_fallback")
		return fallback
	}
	raw := loc.GetCurrency()
	if raw == nil {
		logg.Warn(ctx, "location.currency_missing")
		return fallback
	}
	currency, err := money.ParseCurrency(string(*raw))
	if err != nil {
		logg.Warn(logg.WithField(ctx, "currency", string(*raw)), "location.currency_unsupported")
		return fallback
	}
	logg.Info(logg.WithField(ctx, "currency", currency.String()), "location.currency_resolved")
	return currency
}

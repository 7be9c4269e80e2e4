package location

import (
	"context"
	"errors"
	"testing"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/readerpos/pkg/logger"
	"github.com/angelmondragon/readerpos/pkg/money"
)

type stubGetter struct {
	location *sq.Location
	err      error
}

func (s stubGetter) GetLocation(ctx context.Context, locationID string) (*sq.Location, error) {
	return s.location, s.err
}

func locationWith(currency string) *sq.Location {
	c := sq.Currency(currency)
	return &sq.Location{Currency: &c}
}

func TestResolveCurrency(t *testing.T) {
	tests := []struct {
		name   string
		getter locationGetter
		want   money.Currency
	}{
		{"location currency", stubGetter{location: locationWith("CAD")}, money.CurrencyCAD},
		{"lookup failure", stubGetter{err: errors.New("unauthorized")}, money.CurrencyUSD},
		{"missing currency", stubGetter{location: &sq.Location{}}, money.CurrencyUSD},
		{"unsupported currency", stubGetter{location: locationWith("XAU")}, money.CurrencyUSD},
		{"no client", nil, money.CurrencyUSD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCurrency(context.Background(), tt.getter, "L1", money.CurrencyUSD, logger.Nop())
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

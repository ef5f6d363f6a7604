// Package venue holds one adapter per trading venue. An adapter owns the
// venue-specific request signing and response parsing and exposes a
// single capability: fetch the current account balances, together with
// whatever price snapshot valuation will need, in one call.
package venue

import (
	"context"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/model"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/valuation"
	"github.com/shopspring/decimal"
)

// Venue names as stored in credential records and cache rows.
const (
	Binance  = "binance"
	Kraken   = "kraken"
	Coinbase = "coinbase"
	Capital  = "capital"
)

// RawBalance is one venue-native balance entry, asset code untouched.
type RawBalance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// Snapshot is the result of one adapter call: the raw balance list plus
// the price map obtained in the same round trip. Prices are keyed
// "{CANONICAL}{QUOTE}" — adapters normalize pair naming on the way out
// so valuation stays venue-agnostic.
type Snapshot struct {
	Balances []RawBalance
	Prices   valuation.Snapshot
}

// Adapter is the uniform fetch capability. Errors must be classified
// into the apperrors taxonomy: the cache gate picks its backoff from
// the tag, so an unclassified failure gets the default (medium) policy.
type Adapter interface {
	Name() string
	FetchBalances(ctx context.Context, creds model.Credentials) (*Snapshot, error)
}

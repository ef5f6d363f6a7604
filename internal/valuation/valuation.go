// Package valuation converts canonical holdings into settlement-currency
// value. It is a pure lookup layer: no I/O, no hidden state, fully
// determined by the price snapshot it is handed.
package valuation

import "github.com/shopspring/decimal"

// Settlement is the settlement currency all holdings are priced in.
const Settlement = "USD"

// Snapshot is a venue price map keyed "{CANONICAL}{QUOTE}", e.g. "BTCUSD".
// Adapters normalize their native pair naming before building one.
type Snapshot map[string]decimal.Decimal

// stablecoins value 1:1 against the settlement currency. This is a
// best-effort equity estimate, not a ledger of record; depeg risk is
// accepted.
var stablecoins = map[string]bool{
	"USDT": true, "USDC": true, "DAI": true, "TUSD": true,
	"USDP": true, "BUSD": true, "PYUSD": true, "GUSD": true,
}

// fiatRates are static approximations for non-settlement fiat balances.
var fiatRates = map[string]decimal.Decimal{
	"EUR": decimal.NewFromFloat(1.08),
	"GBP": decimal.NewFromFloat(1.27),
	"JPY": decimal.NewFromFloat(0.0067),
	"CAD": decimal.NewFromFloat(0.74),
	"AUD": decimal.NewFromFloat(0.66),
	"CHF": decimal.NewFromFloat(1.11),
}

// Value prices amount units of a canonical asset in the settlement
// currency. Assets absent from the snapshot value at zero; the caller
// keeps the holding visible rather than dropping it.
func Value(canonicalAsset string, amount decimal.Decimal, snapshot Snapshot) decimal.Decimal {
	if amount.IsZero() {
		return decimal.Zero
	}

	if canonicalAsset == Settlement || stablecoins[canonicalAsset] {
		return amount
	}

	if rate, ok := fiatRates[canonicalAsset]; ok {
		return amount.Mul(rate)
	}

	if price, ok := snapshot[canonicalAsset+Settlement]; ok {
		return amount.Mul(price)
	}
	// Secondary quote: most spot venues list USDT pairs where no direct
	// USD pair exists, and USDT is settlement-equivalent above.
	if price, ok := snapshot[canonicalAsset+"USDT"]; ok {
		return amount.Mul(price)
	}

	return decimal.Zero
}

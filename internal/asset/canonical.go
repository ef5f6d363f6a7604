// Package asset normalizes venue-native asset codes into the canonical
// form the valuation engine and reports use, regardless of which venue's
// naming convention produced them.
package asset

import "strings"

// aliases maps legacy venue ticker codes to canonical ones. Kraken in
// particular still reports its pre-2014 X/Z-prefixed codes on the
// private balance endpoint.
var aliases = map[string]string{
	"XBT":  "BTC",
	"XXBT": "BTC",
	"XETH": "ETH",
	"XETC": "ETC",
	"XLTC": "LTC",
	"XXRP": "XRP",
	"XXLM": "XLM",
	"XXMR": "XMR",
	"XXDG": "DOGE",
	"XDG":  "DOGE",
	"XZEC": "ZEC",
	"XMLN": "MLN",
	"XREP": "REP",
	"ETH2": "ETH",
	"ZUSD": "USD",
	"ZEUR": "EUR",
	"ZGBP": "GBP",
	"ZJPY": "JPY",
	"ZCAD": "CAD",
	"ZAUD": "AUD",
	"ZCHF": "CHF",
}

// stakingSuffixes mark earn/staking variants of an asset. A staked
// variant values identically to the liquid one, so both resolve to the
// same canonical code. This is an intentional merge, not a collision.
var stakingSuffixes = []string{".S", ".M", ".F", ".B", ".P", ".HOLD"}

// prefixExcluded lists codes that legitimately begin with X or Z and
// must never be stripped by the fallback heuristic.
var prefixExcluded = map[string]bool{
	"XRP": true, "XLM": true, "XTZ": true, "XMR": true,
	"XDC": true, "XCN": true,
	"ZEC": true, "ZRX": true, "ZETA": true,
}

// Canonical maps a venue asset code to its canonical form. It is pure,
// deterministic and idempotent: Canonical(Canonical(x)) == Canonical(x).
func Canonical(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return c
	}

	if mapped, ok := aliases[c]; ok {
		return mapped
	}

	for _, suffix := range stakingSuffixes {
		if strings.HasSuffix(c, suffix) && len(c) > len(suffix) {
			return Canonical(strings.TrimSuffix(c, suffix))
		}
	}

	// Kraken disambiguation prefix: a 4-char code starting with X or Z
	// wraps a 3-char ticker, unless the code is a real X/Z asset.
	if len(c) == 4 && (c[0] == 'X' || c[0] == 'Z') && !prefixExcluded[c] {
		return Canonical(c[1:])
	}

	return c
}

package model

import "github.com/shopspring/decimal"

// Holding is one canonicalized asset position at a venue.
type Holding struct {
	Asset    string          `json:"asset"`
	Free     decimal.Decimal `json:"free"`
	Locked   decimal.Decimal `json:"locked"`
	USDValue decimal.Decimal `json:"usdValue"`
}

// VenueReport is the per-venue result of one aggregation cycle.
// Invariant: Connected == false implies empty Holdings and zero TotalUSD.
// Error is set exactly when a fetch or decrypt step failed, or when a
// cached result was substituted for a live one.
type VenueReport struct {
	Venue     string          `json:"venue"`
	Connected bool            `json:"connected"`
	Holdings  []Holding       `json:"holdings"`
	TotalUSD  decimal.Decimal `json:"totalUsd"`
	Error     string          `json:"error,omitempty"`
}

// Disconnected builds the report for a venue that produced no usable data.
func Disconnected(venue, errMsg string) VenueReport {
	return VenueReport{
		Venue:    venue,
		Holdings: []Holding{},
		TotalUSD: decimal.Zero,
		Error:    errMsg,
	}
}

// AggregateResult is the outcome of one full cycle across all venues.
// Success covers the cycle itself; per-venue failures surface only as
// Connected == false entries in Reports.
type AggregateResult struct {
	Success         bool            `json:"success"`
	Reports         []VenueReport   `json:"balances"`
	TotalEquityUSD  decimal.Decimal `json:"totalEquityUsd"`
	ConnectedVenues []string        `json:"connectedExchanges"`
}

package service

import (
	"context"
	"sort"
	"sync"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/asset"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/config"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/gate"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/model"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/apperrors"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/logger"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/metrics"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/valuation"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/vault"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/venue"
	"github.com/shopspring/decimal"
)

// CredResolver yields the decryptable venue credential sets for a user.
type CredResolver interface {
	Resolve(ctx context.Context, userID string) ([]vault.VenueCredentials, error)
}

// SessionRepo is the write side of the user session record; the trading
// engine downstream reads the persisted equity as its current capital.
type SessionRepo interface {
	UpdateEquity(ctx context.Context, userID string, equity decimal.Decimal) error
}

// Aggregator runs one balance aggregation cycle: resolve credentials,
// fan out to every configured venue, merge the per-venue reports and
// persist the aggregate equity.
type Aggregator struct {
	creds    CredResolver
	gate     *gate.Gate
	adapters map[string]venue.Adapter
	sessions SessionRepo
	cfg      *config.Config
}

func NewAggregator(creds CredResolver, g *gate.Gate, adapters []venue.Adapter, sessions SessionRepo, cfg *config.Config) *Aggregator {
	byName := make(map[string]venue.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	return &Aggregator{
		creds:    creds,
		gate:     g,
		adapters: byName,
		sessions: sessions,
		cfg:      cfg,
	}
}

// Aggregate is the cycle entry point. The only fatal condition is a
// failure to resolve the caller's records at all; every venue-level
// failure folds into that venue's report.
func (a *Aggregator) Aggregate(ctx context.Context, userID string) (*model.AggregateResult, error) {
	configured, err := a.creds.Resolve(ctx, userID)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "failed to read credential records", err)
	}

	targets := make([]vault.VenueCredentials, 0, len(configured))
	for _, vc := range configured {
		if a.cfg.Venue(vc.Venue).Enabled {
			targets = append(targets, vc)
		}
	}

	// Fan out and join: every venue settles (fresh result, cached
	// fallback or error report) before the cycle completes, and total
	// latency is bounded by the slowest venue, not the sum.
	reports := make([]model.VenueReport, len(targets))
	var wg sync.WaitGroup
	for i, vc := range targets {
		wg.Add(1)
		go func(i int, vc vault.VenueCredentials) {
			defer wg.Done()
			reports[i] = a.processVenue(ctx, userID, vc)
		}(i, vc)
	}
	wg.Wait()

	total := decimal.Zero
	connected := make([]string, 0, len(reports))
	for _, r := range reports {
		total = total.Add(r.TotalUSD)
		if r.Connected {
			connected = append(connected, r.Venue)
		}
	}
	sort.Strings(connected)

	a.persistEquity(ctx, userID, total, len(connected))

	return &model.AggregateResult{
		Success:         true,
		Reports:         reports,
		TotalEquityUSD:  total,
		ConnectedVenues: connected,
	}, nil
}

func (a *Aggregator) processVenue(ctx context.Context, userID string, vc vault.VenueCredentials) model.VenueReport {
	adapter, ok := a.adapters[vc.Venue]
	if !ok {
		return model.Disconnected(vc.Venue, "unsupported venue")
	}

	decision := a.gate.Decide(ctx, userID, vc.Venue)
	if !decision.ShouldFetch {
		return a.gate.ServeCached(vc.Venue, decision.Cached)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.Venue(vc.Venue).Timeout)
	defer cancel()

	snap, err := adapter.FetchBalances(fetchCtx, vc.Creds)
	if err != nil {
		metrics.VenueFetches.WithLabelValues(vc.Venue, "error").Inc()
		logger.Warn("venue fetch failed",
			"venue", vc.Venue, "user", userID,
			"class", string(apperrors.TypeOf(err)), "error", err.Error())
		a.gate.RecordFailure(ctx, userID, vc.Venue, decision.Cached, err)
		return a.gate.Fallback(vc.Venue, decision.Cached, err)
	}

	metrics.VenueFetches.WithLabelValues(vc.Venue, "success").Inc()
	report := buildReport(vc.Venue, snap)
	a.gate.RecordSuccess(ctx, userID, vc.Venue, report)
	return report
}

// buildReport canonicalizes and prices one venue snapshot. Staked and
// legacy variants of the same asset merge into one holding here.
func buildReport(venueName string, snap *venue.Snapshot) model.VenueReport {
	merged := make(map[string]*model.Holding)
	order := make([]string, 0, len(snap.Balances))
	for _, rb := range snap.Balances {
		code := asset.Canonical(rb.Asset)
		h, ok := merged[code]
		if !ok {
			h = &model.Holding{Asset: code, Free: decimal.Zero, Locked: decimal.Zero}
			merged[code] = h
			order = append(order, code)
		}
		h.Free = h.Free.Add(rb.Free)
		h.Locked = h.Locked.Add(rb.Locked)
	}
	sort.Strings(order)

	total := decimal.Zero
	holdings := make([]model.Holding, 0, len(order))
	for _, code := range order {
		h := merged[code]
		h.USDValue = valuation.Value(code, h.Free.Add(h.Locked), snap.Prices)
		total = total.Add(h.USDValue)
		holdings = append(holdings, *h)
	}

	return model.VenueReport{
		Venue:     venueName,
		Connected: true,
		Holdings:  holdings,
		TotalUSD:  total,
	}
}

// persistEquity writes the aggregate only when it can be trusted: a
// positive total, or an exact zero backed by at least one connected
// venue (a genuinely emptied account). An all-venues-down zero never
// clobbers the last good reading.
func (a *Aggregator) persistEquity(ctx context.Context, userID string, total decimal.Decimal, connectedCount int) {
	if connectedCount == 0 && !total.IsPositive() {
		logger.Warn("skipping equity persist, no venue connected", "user", userID)
		return
	}
	if err := a.sessions.UpdateEquity(ctx, userID, total); err != nil {
		logger.LogError(ctx, err, "failed to persist session equity", "user", userID)
	}
}

// Package gate decides, per (user, venue), whether an aggregation cycle
// may hit the venue's account endpoint or must reuse the durable cache,
// and folds fetch outcomes back into that cache.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/config"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/model"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/apperrors"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/logger"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/metrics"
)

// Repo is the durable cache-row store, upsert-by-(user, venue).
type Repo interface {
	Get(ctx context.Context, userID, venue string) (*model.CacheEntry, error)
	Upsert(ctx context.Context, entry *model.CacheEntry) error
}

// Decision is the gate's verdict for one venue in one cycle.
type Decision struct {
	ShouldFetch bool
	// Cached is the existing row, if any; on ShouldFetch it is the
	// fallback candidate, otherwise it is what gets served.
	Cached *model.CacheEntry
}

type Gate struct {
	repo Repo
	cfg  *config.Config
	now  func() time.Time
}

func New(repo Repo, cfg *config.Config) *Gate {
	return &Gate{repo: repo, cfg: cfg, now: time.Now}
}

// Decide applies the per-venue window to the cached row. A repo read
// error degrades to "no cache": the venue still gets its fetch.
func (g *Gate) Decide(ctx context.Context, userID, venue string) Decision {
	entry, err := g.repo.Get(ctx, userID, venue)
	if err != nil {
		logger.Warn("cache read failed, proceeding without cache",
			"venue", venue, "user", userID, "error", err.Error())
		return Decision{ShouldFetch: true}
	}
	if entry == nil {
		return Decision{ShouldFetch: true}
	}

	sinceAttempt := g.now().Sub(entry.AttemptedAt)
	if sinceAttempt < g.effectiveBackoff(venue, entry) {
		metrics.CacheServes.WithLabelValues(venue, "window").Inc()
		return Decision{ShouldFetch: false, Cached: entry}
	}
	return Decision{ShouldFetch: true, Cached: entry}
}

// effectiveBackoff picks the spacing before the next attempt from the
// outcome of the previous one. Retrying straight into a rate-limit
// rejection only deepens it; a nonce conflict heals on the very next
// call; everything else sits in between.
func (g *Gate) effectiveBackoff(venue string, entry *model.CacheEntry) time.Duration {
	window := g.cfg.Venue(venue).Window
	switch apperrors.ErrorType(entry.LastErrorType) {
	case "":
		return window
	case apperrors.ErrRateLimited:
		return window
	case apperrors.ErrNonce:
		return g.cfg.Cache.ShortBackoff
	default:
		return g.cfg.Cache.MediumBackoff
	}
}

// ServeCached renders the within-window report. A reused result is
// always annotated so callers can tell it from a live read.
func (g *Gate) ServeCached(venue string, entry *model.CacheEntry) model.VenueReport {
	if !g.usable(entry) {
		msg := "venue throttled and no cached balances available"
		if entry.LastErrorType != "" {
			msg = fmt.Sprintf("venue unavailable (%s) and no cached balances available", entry.LastErrorType)
		}
		return model.Disconnected(venue, msg)
	}

	report := entry.Report
	report.Error = fmt.Sprintf("rate limited; serving cached balances from %s ago",
		g.now().Sub(entry.FetchedAt).Round(time.Second))
	return report
}

// Fallback renders the post-failure report: the stale-but-usable cached
// payload when one exists, otherwise an error-only entry.
func (g *Gate) Fallback(venue string, cached *model.CacheEntry, fetchErr error) model.VenueReport {
	if cached == nil || !g.usable(cached) {
		return model.Disconnected(venue, fetchErr.Error())
	}

	metrics.CacheServes.WithLabelValues(venue, "stale_fallback").Inc()
	report := cached.Report
	report.Error = fmt.Sprintf("fetch failed (%s); serving cached balances from %s ago",
		fetchErr.Error(), g.now().Sub(cached.FetchedAt).Round(time.Second))
	return report
}

// usable reports whether the cached payload is inside the staleness
// ceiling. Rows never get deleted; they age out of usefulness here.
func (g *Gate) usable(entry *model.CacheEntry) bool {
	if entry == nil || entry.FetchedAt.IsZero() || !entry.Report.Connected {
		return false
	}
	return g.now().Sub(entry.FetchedAt) <= g.cfg.Cache.StalenessCeiling
}

// RecordSuccess upserts the row with a fresh payload. FetchedAt and
// AttemptedAt both advance.
func (g *Gate) RecordSuccess(ctx context.Context, userID, venue string, report model.VenueReport) {
	now := g.now()
	g.write(ctx, &model.CacheEntry{
		UserID:      userID,
		Venue:       venue,
		Report:      report,
		FetchedAt:   now,
		AttemptedAt: now,
	})
}

// RecordFailure upserts the row advancing only AttemptedAt, keeping the
// previous payload (if any) available for fallback reads, and tagging
// the error class for the next window computation.
func (g *Gate) RecordFailure(ctx context.Context, userID, venue string, cached *model.CacheEntry, fetchErr error) {
	entry := &model.CacheEntry{
		UserID:        userID,
		Venue:         venue,
		AttemptedAt:   g.now(),
		LastErrorType: string(apperrors.TypeOf(fetchErr)),
	}
	if cached != nil {
		entry.Report = cached.Report
		entry.FetchedAt = cached.FetchedAt
	}
	g.write(ctx, entry)
}

func (g *Gate) write(ctx context.Context, entry *model.CacheEntry) {
	if err := g.repo.Upsert(ctx, entry); err != nil {
		// A lost cache write costs one extra fetch later, nothing more.
		logger.Warn("cache upsert failed",
			"venue", entry.Venue, "user", entry.UserID, "error", err.Error())
	}
}

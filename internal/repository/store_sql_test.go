package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/config"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	cfg := &config.Config{
		Database: config.DatabaseConfig{SQLitePath: filepath.Join(t.TempDir(), "test.db")},
	}
	db, err := NewDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLCredentialRepo_UpsertAndList(t *testing.T) {
	db := testDB(t)
	repo := NewSQLCredentialRepo(db)
	ctx := context.Background()

	rec := &model.CredentialRecord{
		UserID: "u1", Venue: "kraken",
		APIKeyEnc: "enc-key", APISecretEnc: "enc-secret",
		IV: "iv-b64", KeyVersion: 1,
	}
	require.NoError(t, repo.Upsert(ctx, rec))

	// Rotation replaces the record wholesale.
	rec.APIKeyEnc = "enc-key-v2"
	rec.KeyVersion = 2
	require.NoError(t, repo.Upsert(ctx, rec))

	records, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "enc-key-v2", records[0].APIKeyEnc)
	assert.Equal(t, 2, records[0].KeyVersion)

	records, err = repo.ListByUser(ctx, "unknown-user")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLCacheRepo_RoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewSQLCacheRepo(db)
	ctx := context.Background()

	entry, err := repo.Get(ctx, "u1", "kraken")
	require.NoError(t, err)
	assert.Nil(t, entry, "missing row must read as nil, not error")

	fetched := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := &model.CacheEntry{
		UserID: "u1",
		Venue:  "kraken",
		Report: model.VenueReport{
			Venue:     "kraken",
			Connected: true,
			Holdings:  []model.Holding{{Asset: "BTC", Free: decimal.NewFromFloat(0.01), USDValue: decimal.NewFromInt(600)}},
			TotalUSD:  decimal.NewFromInt(600),
		},
		FetchedAt:   fetched,
		AttemptedAt: fetched,
	}
	require.NoError(t, repo.Upsert(ctx, in))

	got, err := repo.Get(ctx, "u1", "kraken")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Report.Connected)
	assert.True(t, decimal.NewFromInt(600).Equal(got.Report.TotalUSD))
	assert.True(t, fetched.Equal(got.FetchedAt))

	// A failed attempt advances attempted_at and tags the error but
	// keeps the payload.
	in.AttemptedAt = fetched.Add(2 * time.Minute)
	in.LastErrorType = "RATE_LIMITED"
	require.NoError(t, repo.Upsert(ctx, in))

	got, err = repo.Get(ctx, "u1", "kraken")
	require.NoError(t, err)
	assert.Equal(t, "RATE_LIMITED", got.LastErrorType)
	assert.True(t, fetched.Add(2*time.Minute).Equal(got.AttemptedAt))
	assert.True(t, got.Report.Connected)
}

func TestSQLSessionRepo_Equity(t *testing.T) {
	db := testDB(t)
	repo := NewSQLSessionRepo(db)
	ctx := context.Background()

	got, err := repo.GetEquity(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	require.NoError(t, repo.UpdateEquity(ctx, "u1", decimal.NewFromFloat(1100.00)))
	got, err = repo.GetEquity(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1100).Equal(got))

	require.NoError(t, repo.UpdateEquity(ctx, "u1", decimal.NewFromFloat(950.25)))
	got, err = repo.GetEquity(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromFloat(950.25).Equal(got))
}

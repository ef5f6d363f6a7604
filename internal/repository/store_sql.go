package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// SQLCredentialRepo reads credential records. The aggregation path never
// writes them; onboarding owns that.
type SQLCredentialRepo struct {
	db *sqlx.DB
}

func NewSQLCredentialRepo(db *sqlx.DB) *SQLCredentialRepo {
	return &SQLCredentialRepo{db: db}
}

func (r *SQLCredentialRepo) ListByUser(ctx context.Context, userID string) ([]model.CredentialRecord, error) {
	var records []model.CredentialRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT user_id, venue, api_key_enc, api_secret_enc, identifier_enc, password_enc, iv, key_version
		FROM venue_credentials WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Upsert replaces a venue's credential record wholesale, as rotation
// requires. Exposed for onboarding tooling and tests.
func (r *SQLCredentialRepo) Upsert(ctx context.Context, rec *model.CredentialRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO venue_credentials (user_id, venue, api_key_enc, api_secret_enc, identifier_enc, password_enc, iv, key_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, venue) DO UPDATE SET
			api_key_enc = EXCLUDED.api_key_enc,
			api_secret_enc = EXCLUDED.api_secret_enc,
			identifier_enc = EXCLUDED.identifier_enc,
			password_enc = EXCLUDED.password_enc,
			iv = EXCLUDED.iv,
			key_version = EXCLUDED.key_version`,
		rec.UserID, rec.Venue, rec.APIKeyEnc, rec.APISecretEnc,
		rec.IdentifierEnc, rec.PasswordEnc, rec.IV, rec.KeyVersion)
	return err
}

type cacheRow struct {
	UserID        string `db:"user_id"`
	Venue         string `db:"venue"`
	Payload       string `db:"payload"`
	FetchedAt     int64  `db:"fetched_at"`
	AttemptedAt   int64  `db:"attempted_at"`
	LastErrorType string `db:"last_error_type"`
}

// SQLCacheRepo is the SQL-backed cache-row store, used when Redis is
// not configured.
type SQLCacheRepo struct {
	db *sqlx.DB
}

func NewSQLCacheRepo(db *sqlx.DB) *SQLCacheRepo {
	return &SQLCacheRepo{db: db}
}

func (r *SQLCacheRepo) Get(ctx context.Context, userID, venue string) (*model.CacheEntry, error) {
	var row cacheRow
	err := r.db.GetContext(ctx, &row, `
		SELECT user_id, venue, payload, fetched_at, attempted_at, last_error_type
		FROM balance_cache WHERE user_id = $1 AND venue = $2`, userID, venue)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entry := &model.CacheEntry{
		UserID:        row.UserID,
		Venue:         row.Venue,
		AttemptedAt:   time.Unix(0, row.AttemptedAt),
		LastErrorType: row.LastErrorType,
	}
	if row.FetchedAt > 0 {
		entry.FetchedAt = time.Unix(0, row.FetchedAt)
	}
	if err := json.Unmarshal([]byte(row.Payload), &entry.Report); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	return entry, nil
}

func (r *SQLCacheRepo) Upsert(ctx context.Context, entry *model.CacheEntry) error {
	payload, err := json.Marshal(entry.Report)
	if err != nil {
		return fmt.Errorf("encode cached report: %w", err)
	}

	var fetchedAt int64
	if !entry.FetchedAt.IsZero() {
		fetchedAt = entry.FetchedAt.UnixNano()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO balance_cache (user_id, venue, payload, fetched_at, attempted_at, last_error_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, venue) DO UPDATE SET
			payload = EXCLUDED.payload,
			fetched_at = EXCLUDED.fetched_at,
			attempted_at = EXCLUDED.attempted_at,
			last_error_type = EXCLUDED.last_error_type`,
		entry.UserID, entry.Venue, string(payload), fetchedAt,
		entry.AttemptedAt.UnixNano(), entry.LastErrorType)
	return err
}

// SQLSessionRepo persists the per-user aggregate equity scalar that the
// downstream trading engine reads as its notion of current capital.
type SQLSessionRepo struct {
	db *sqlx.DB
}

func NewSQLSessionRepo(db *sqlx.DB) *SQLSessionRepo {
	return &SQLSessionRepo{db: db}
}

func (r *SQLSessionRepo) UpdateEquity(ctx context.Context, userID string, equity decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_sessions (user_id, total_equity_usd, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			total_equity_usd = EXCLUDED.total_equity_usd,
			updated_at = EXCLUDED.updated_at`,
		userID, equity.String(), time.Now().UnixNano())
	return err
}

func (r *SQLSessionRepo) GetEquity(ctx context.Context, userID string) (decimal.Decimal, error) {
	var raw string
	err := r.db.GetContext(ctx, &raw, `
		SELECT total_equity_usd FROM user_sessions WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

package vault

import (
	"context"
	"fmt"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/model"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/logger"
)

// CredentialRepo is the read side of the record store's credential table.
type CredentialRepo interface {
	ListByUser(ctx context.Context, userID string) ([]model.CredentialRecord, error)
}

// VenueCredentials pairs a venue name with its decrypted credential set.
type VenueCredentials struct {
	Venue string
	Creds model.Credentials
}

// Reader resolves which venues a user has configured and decrypts their
// credentials. Pure decrypt-and-return: no side effects on the store.
type Reader struct {
	repo   CredentialRepo
	cipher *Cipher
}

func NewReader(repo CredentialRepo, cipher *Cipher) *Reader {
	return &Reader{repo: repo, cipher: cipher}
}

// Resolve returns the decryptable venue credential sets for a user.
// A record that fails decryption under every candidate key makes its
// venue unconfigured for this cycle; it never fails the whole call.
func (r *Reader) Resolve(ctx context.Context, userID string) ([]VenueCredentials, error) {
	records, err := r.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load credential records: %w", err)
	}

	out := make([]VenueCredentials, 0, len(records))
	for _, rec := range records {
		creds, err := r.decryptRecord(rec)
		if err != nil {
			logger.Warn("credential decrypt failed, venue skipped this cycle",
				"venue", rec.Venue, "user", userID, "key_version", rec.KeyVersion, "error", err.Error())
			continue
		}
		out = append(out, VenueCredentials{Venue: rec.Venue, Creds: creds})
	}
	return out, nil
}

func (r *Reader) decryptRecord(rec model.CredentialRecord) (model.Credentials, error) {
	var creds model.Credentials
	var err error

	creds.APIKey, err = r.cipher.Decrypt(rec.APIKeyEnc, rec.IV)
	if err != nil {
		return model.Credentials{}, fmt.Errorf("api key: %w", err)
	}

	if rec.APISecretEnc != "" {
		creds.APISecret, err = r.cipher.Decrypt(rec.APISecretEnc, rec.IV)
		if err != nil {
			return model.Credentials{}, fmt.Errorf("api secret: %w", err)
		}
	}
	if rec.IdentifierEnc != "" {
		creds.Identifier, err = r.cipher.Decrypt(rec.IdentifierEnc, rec.IV)
		if err != nil {
			return model.Credentials{}, fmt.Errorf("identifier: %w", err)
		}
	}
	if rec.PasswordEnc != "" {
		creds.Password, err = r.cipher.Decrypt(rec.PasswordEnc, rec.IV)
		if err != nil {
			return model.Credentials{}, fmt.Errorf("password: %w", err)
		}
	}

	return creds, nil
}

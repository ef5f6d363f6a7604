package model

// CredentialRecord is one user's encrypted credential set for one venue,
// as stored in the record store. Written at onboarding or credential
// update, replaced wholesale on key rotation, never mutated in place.
type CredentialRecord struct {
	UserID string `db:"user_id" json:"user_id"`
	Venue  string `db:"venue" json:"venue"`

	// Base64 AES-256-GCM ciphertexts sharing the record's IV.
	APIKeyEnc    string `db:"api_key_enc" json:"api_key_enc"`
	APISecretEnc string `db:"api_secret_enc" json:"api_secret_enc"`
	// Session-auth venues (CFD broker) carry these instead of a secret.
	IdentifierEnc string `db:"identifier_enc" json:"identifier_enc"`
	PasswordEnc   string `db:"password_enc" json:"password_enc"`

	IV         string `db:"iv" json:"iv"`
	KeyVersion int    `db:"key_version" json:"key_version"`
}

// Credentials is a decrypted credential set handed to a venue adapter.
type Credentials struct {
	APIKey     string
	APISecret  string
	Identifier string
	Password   string
}

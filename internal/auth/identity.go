package auth

import "time"

// AccountKey identifies an external identity across all users.
type AccountKey struct {
	OAuthName string // provider name, e.g. "google"
	AccountID string // provider-scoped subject
}

// ExternalAccount binds a local user to one identity-provider account.
// It carries the provider credentials from the most recent callback.
type ExternalAccount struct {
	OAuthName    string
	AccountID    string
	AccountEmail string

	AccessToken  string
	RefreshToken string     // empty when the provider issued none
	ExpiresAt    *time.Time // nil when the provider sent no expiry

	// Claims holds the raw identity payload. Never nil after resolution.
	Claims map[string]any
}

func (a ExternalAccount) Key() AccountKey {
	return AccountKey{OAuthName: a.OAuthName, AccountID: a.AccountID}
}

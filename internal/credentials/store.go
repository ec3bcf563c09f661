package credentials

import (
	"context"
	"time"
)

// Record holds the persisted authentication state for a single user.
// Any subset of fields may be absent until a full authorization flow has
// completed.
type Record struct {
	AccountID    string `json:"account_id,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenExpiry  int64  `json:"token_expiry,omitempty"` // epoch milliseconds
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// ExpiresAt returns the access token expiry as a time.Time.
// The zero time is returned when no expiry is recorded.
func (r Record) ExpiresAt() time.Time {
	if r.TokenExpiry == 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.TokenExpiry)
}

// CanRefresh reports whether the record carries everything needed for a
// refresh-token grant.
func (r Record) CanRefresh() bool {
	return r.RefreshToken != "" && r.ClientID != "" && r.ClientSecret != ""
}

// Partial is a partial update to a Record. Nil fields leave the prior
// value untouched; non-nil fields overwrite it, including with an empty
// value.
type Partial struct {
	AccountID    *string
	AccessToken  *string
	RefreshToken *string
	TokenExpiry  *int64
	ClientID     *string
	ClientSecret *string
}

// Apply merges the partial into r and returns the result.
func (p Partial) Apply(r Record) Record {
	if p.AccountID != nil {
		r.AccountID = *p.AccountID
	}
	if p.AccessToken != nil {
		r.AccessToken = *p.AccessToken
	}
	if p.RefreshToken != nil {
		r.RefreshToken = *p.RefreshToken
	}
	if p.TokenExpiry != nil {
		r.TokenExpiry = *p.TokenExpiry
	}
	if p.ClientID != nil {
		r.ClientID = *p.ClientID
	}
	if p.ClientSecret != nil {
		r.ClientSecret = *p.ClientSecret
	}
	return r
}

// Store reads and writes the credential record.
//
// The store is deliberately forgiving: a record that cannot be read
// degrades to the zero Record and a record that cannot be written is
// dropped with a log line. Losing the ability to persist must never take
// down the serving process.
type Store interface {
	// Load returns the current record. Read or parse failures are logged
	// and degrade to the zero Record.
	Load(ctx context.Context) Record

	// Save persists the record best-effort. Write failures are logged,
	// not propagated.
	Save(ctx context.Context, rec Record)

	// Update loads the current record, merges the partial into it,
	// persists the result and returns it.
	Update(ctx context.Context, p Partial) Record
}

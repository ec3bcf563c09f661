package harvestid

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/startstudio/harvest-mcp/internal/credentials"
)

// expiryMargin guards against the access token expiring between the
// validity check and its use in a request.
const expiryMargin = 60 * time.Second

// defaultHTTPTimeout bounds calls to the identity service.
const defaultHTTPTimeout = 30 * time.Second

// Authority decides whether the stored access token is still usable and
// refreshes it when it is stale or about to expire.
type Authority struct {
	store      credentials.Store
	endpoint   oauth2.Endpoint
	httpClient *http.Client
	now        func() time.Time
}

// AuthorityOption configures an Authority.
type AuthorityOption func(*Authority)

// WithAuthorityEndpoint overrides the OAuth2 endpoint (used in tests).
func WithAuthorityEndpoint(endpoint oauth2.Endpoint) AuthorityOption {
	return func(a *Authority) {
		a.endpoint = endpoint
	}
}

// WithAuthorityHTTPClient overrides the HTTP client for token refresh
// requests.
func WithAuthorityHTTPClient(client *http.Client) AuthorityOption {
	return func(a *Authority) {
		a.httpClient = client
	}
}

// WithAuthorityClock overrides the clock used for expiry checks.
func WithAuthorityClock(now func() time.Time) AuthorityOption {
	return func(a *Authority) {
		a.now = now
	}
}

// NewAuthority creates an Authority backed by the given credential store.
func NewAuthority(store credentials.Store, opts ...AuthorityOption) *Authority {
	a := &Authority{
		store:      store,
		endpoint:   Endpoint,
		httpClient: newHTTPClient(defaultHTTPTimeout),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// EnsureValidToken refreshes the stored access token when it is stale.
//
// The result is advisory: false means the token could not be refreshed
// (missing refresh credentials or a failed refresh call), not that the
// next request is doomed. Callers proceed regardless and let the API give
// the authoritative answer. A failed refresh leaves the stored record
// untouched.
func (a *Authority) EnsureValidToken(ctx context.Context) bool {
	rec := a.store.Load(ctx)

	if !rec.CanRefresh() {
		return false
	}

	// Token still valid, no network call needed.
	if rec.TokenExpiry != 0 && rec.ExpiresAt().After(a.now().Add(expiryMargin)) {
		return true
	}

	cfg := &oauth2.Config{
		ClientID:     rec.ClientID,
		ClientSecret: rec.ClientSecret,
		Endpoint:     a.endpoint,
	}

	// An empty access token forces the refresh-token grant on the first
	// Token call.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	token, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: rec.RefreshToken}).Token()
	if err != nil {
		slog.WarnContext(ctx, "token refresh failed", "error", err)
		return false
	}

	expiry := token.Expiry.UnixMilli()
	a.store.Update(ctx, credentials.Partial{
		AccessToken:  &token.AccessToken,
		RefreshToken: &token.RefreshToken,
		TokenExpiry:  &expiry,
	})

	slog.DebugContext(ctx, "access token refreshed", "expiry", token.Expiry)
	return true
}

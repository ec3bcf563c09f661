package harvestid

import (
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	// AccountsURL is the Harvest ID endpoint listing the accounts
	// reachable with an access token.
	AccountsURL = "https://id.getharvest.com/api/v2/accounts"

	// ProductHarvest identifies Harvest accounts in the accounts listing
	// (Harvest ID also serves Forecast accounts).
	ProductHarvest = "harvest"

	// userAgent is sent on every call to the identity service.
	userAgent = "harvest-mcp"
)

// Endpoint defines the OAuth2 endpoints for Harvest ID. Client credentials
// go in the form body (Harvest does not accept basic auth on the token
// endpoint).
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://id.getharvest.com/oauth2/authorize",
	TokenURL:  "https://id.getharvest.com/api/v2/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// userAgentTransport stamps the provider-required User-Agent header on
// outbound requests. The oauth2 package builds token requests itself, so
// the header has to be injected at the transport level.
type userAgentTransport struct {
	base http.RoundTripper
}

// Compile-time check that userAgentTransport implements http.RoundTripper.
var _ http.RoundTripper = (*userAgentTransport)(nil)

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	newReq := req.Clone(req.Context())
	newReq.Header.Set("User-Agent", userAgent)
	return t.base.RoundTrip(newReq)
}

// newHTTPClient builds the HTTP client used for identity service calls.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &userAgentTransport{
			base: http.DefaultTransport,
		},
	}
}

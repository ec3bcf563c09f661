package harvest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/startstudio/harvest-mcp/internal/credentials"
)

const (
	// DefaultBaseURL is the Harvest v2 API base.
	DefaultBaseURL = "https://api.harvestapp.com/v2"

	// Environment pair that bypasses OAuth entirely: a personal access
	// token plus the account it belongs to. Takes precedence over the
	// persisted record when both variables are set.
	EnvAPIKey    = "HARVEST_API_KEY"
	EnvAccountID = "HARVEST_ACCOUNT_ID"

	userAgent = "harvest-mcp/1.0"

	defaultHTTPTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response makes it into the
	// error message.
	maxErrorBody = 2048
)

// TokenAuthority is the refresh gate invoked before every outbound call.
// Its result is advisory; the gateway proceeds regardless and lets the API
// response be the authoritative verdict.
type TokenAuthority interface {
	EnsureValidToken(ctx context.Context) bool
}

// Client is the request gateway for the Harvest v2 API. Every call runs
// the token authority first, resolves effective credentials (environment
// pair over persisted record) and maps failures to *APIError.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authority  TokenAuthority
	store      credentials.Store
	env        func(string) string
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithEnvLookup overrides environment variable resolution (used in tests).
func WithEnvLookup(env func(string) string) ClientOption {
	return func(c *Client) {
		c.env = env
	}
}

// WithLogger overrides the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a request gateway over the given credential store and
// token authority.
func NewClient(store credentials.Store, authority TokenAuthority, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		authority:  authority,
		store:      store,
		env:        os.Getenv,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resolveAuth returns the effective bearer token and account id.
// The environment pair wins over the persisted record.
func (c *Client) resolveAuth(ctx context.Context) (token, accountID string, ok bool) {
	if key, account := c.env(EnvAPIKey), c.env(EnvAccountID); key != "" && account != "" {
		return key, account, true
	}

	rec := c.store.Load(ctx)
	if rec.AccessToken != "" && rec.AccountID != "" {
		return rec.AccessToken, rec.AccountID, true
	}

	return "", "", false
}

// Do issues an API call and decodes the JSON response into out (skipped
// when out is nil). Failures are always *APIError; typed failures pass
// through unchanged rather than being double-wrapped.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	// Advisory refresh. A false result is not fatal: the request may
	// still succeed with the existing token, or fail with the provider's
	// own verdict.
	_ = c.authority.EnsureValidToken(ctx)

	token, accountID, ok := c.resolveAuth(ctx)
	if !ok {
		return configurationError("authentication not configured: run setup or set " + EnvAPIKey + " and " + EnvAccountID)
	}

	url := c.baseURL + "/" + strings.TrimPrefix(path, "/")

	var reqBody io.Reader
	if body != nil && method != http.MethodGet && method != http.MethodDelete {
		data, err := json.Marshal(body)
		if err != nil {
			return transportError(500, fmt.Sprintf("encoding request body: %v", err), err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return transportError(500, fmt.Sprintf("building request: %v", err), err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Harvest-Account-ID", accountID)
	req.Header.Set("Content-Type", "application/json")

	requestID := uuid.NewString()
	c.logger.DebugContext(ctx, "harvest api request", "request_id", requestID, "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return transportError(500, fmt.Sprintf("harvest request failed: %v", err), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(500, fmt.Sprintf("reading response body: %v", err), err)
	}

	c.logger.DebugContext(ctx, "harvest api response", "request_id", requestID, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(data)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return httpError(resp.StatusCode,
			fmt.Sprintf("HTTP error %d on %s %s: %s", resp.StatusCode, method, path, snippet))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return malformedResponseError(fmt.Sprintf("parsing JSON response: %v", err), err)
		}
	}

	return nil
}

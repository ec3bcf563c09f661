package harvestid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/httplog/v3"
	"golang.org/x/oauth2"

	"github.com/startstudio/harvest-mcp/internal/credentials"
)

// Default callback listener address. Must match the redirect URL
// registered with the OAuth application.
const (
	DefaultCallbackHost = "localhost"
	DefaultCallbackPort = 3000
	DefaultCallbackPath = "/oauth/callback"
)

// flowTimeout is how long the flow waits for the browser callback.
const flowTimeout = 5 * time.Minute

const retryHint = "Please close this window and try again."

// Flow drives one interactive authorization-code exchange: it binds a
// short-lived local callback listener, sends the operator's browser to the
// authorize endpoint, exchanges the redirected code for tokens, discovers
// the Harvest account and persists the result.
//
// A flow settles exactly once, on whichever terminal transition fires
// first (callback outcome, listener error, timeout or context
// cancellation), and the listener is closed on every exit path.
type Flow struct {
	store        credentials.Store
	endpoint     oauth2.Endpoint
	accountsURL  string
	callbackHost string
	callbackPort int
	callbackPath string
	timeout      time.Duration
	httpClient   *http.Client
	launcher     Launcher
	output       io.Writer
	logger       *slog.Logger
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithFlowEndpoint overrides the OAuth2 endpoint (used in tests).
func WithFlowEndpoint(endpoint oauth2.Endpoint) FlowOption {
	return func(f *Flow) {
		f.endpoint = endpoint
	}
}

// WithAccountsURL overrides the accounts discovery endpoint.
func WithAccountsURL(accountsURL string) FlowOption {
	return func(f *Flow) {
		f.accountsURL = accountsURL
	}
}

// WithCallbackAddress overrides the local callback listener address.
// A port of 0 picks a free port; the redirect URL follows the bound port.
func WithCallbackAddress(host string, port int) FlowOption {
	return func(f *Flow) {
		f.callbackHost = host
		f.callbackPort = port
	}
}

// WithCallbackPath overrides the callback path.
func WithCallbackPath(path string) FlowOption {
	return func(f *Flow) {
		f.callbackPath = path
	}
}

// WithFlowTimeout overrides how long the flow waits for the callback.
func WithFlowTimeout(timeout time.Duration) FlowOption {
	return func(f *Flow) {
		f.timeout = timeout
	}
}

// WithFlowHTTPClient overrides the HTTP client for token exchange and
// account discovery.
func WithFlowHTTPClient(client *http.Client) FlowOption {
	return func(f *Flow) {
		f.httpClient = client
	}
}

// WithLauncher overrides the browser launcher.
func WithLauncher(launcher Launcher) FlowOption {
	return func(f *Flow) {
		f.launcher = launcher
	}
}

// WithOutput overrides where operator-facing flow progress is printed.
func WithOutput(w io.Writer) FlowOption {
	return func(f *Flow) {
		f.output = w
	}
}

// NewFlow creates a Flow that persists its outcome to the given store.
func NewFlow(store credentials.Store, opts ...FlowOption) *Flow {
	f := &Flow{
		store:        store,
		endpoint:     Endpoint,
		accountsURL:  AccountsURL,
		callbackHost: DefaultCallbackHost,
		callbackPort: DefaultCallbackPort,
		callbackPath: DefaultCallbackPath,
		timeout:      flowTimeout,
		httpClient:   newHTTPClient(defaultHTTPTimeout),
		launcher:     ExecLauncher{},
		output:       os.Stderr,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type flowOutcome struct {
	account *Account
	err     error
}

// Run executes the authorization flow and blocks until it settles.
// On success the selected Harvest account is returned and the credential
// store holds account id, tokens, expiry and client credentials.
func (f *Flow) Run(ctx context.Context, clientID, clientSecret string) (*Account, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("client id and client secret are required")
	}

	addr := net.JoinHostPort(f.callbackHost, strconv.Itoa(f.callbackPort))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener on %s: %w", addr, err)
	}

	boundPort := listener.Addr().(*net.TCPAddr).Port
	redirectURL := "http://" + net.JoinHostPort(f.callbackHost, strconv.Itoa(boundPort)) + f.callbackPath

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     f.endpoint,
		RedirectURL:  redirectURL,
	}

	resultCh := make(chan flowOutcome, 1)
	var once sync.Once

	mux := http.NewServeMux()
	server := &http.Server{
		Handler:           f.requestLogging(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// settle records the flow outcome and closes the listener exactly
	// once. Terminal transitions race (callback vs timeout vs listener
	// error); the first one wins and the rest are no-ops.
	settle := func(account *Account, err error) {
		once.Do(func() {
			_ = listener.Close()
			go func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}()
			resultCh <- flowOutcome{account: account, err: err}
		})
	}

	// Requests outside the callback path get the mux's 404 and leave the
	// flow state alone.
	mux.HandleFunc(f.callbackPath, func(w http.ResponseWriter, r *http.Request) {
		f.handleCallback(ctx, w, r, oauthCfg, settle)
	})

	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			settle(nil, fmt.Errorf("callback server error: %w", err))
		}
	}()

	authURL := oauthCfg.AuthCodeURL("")

	fmt.Fprintf(f.output, "OAuth server listening on %s\n", redirectURL)
	fmt.Fprintln(f.output, "Opening browser for authentication...")
	if err := f.launcher.Open(authURL); err != nil {
		f.logger.WarnContext(ctx, "failed to open browser", "error", err)
		fmt.Fprintln(f.output, "Please open this URL in your browser:")
	} else {
		fmt.Fprintln(f.output, "If your browser does not open automatically, please go to this URL:")
	}
	fmt.Fprintln(f.output, authURL)

	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	select {
	case out := <-resultCh:
		return out.account, out.err
	case <-timer.C:
		settle(nil, errors.New("authentication timed out"))
	case <-ctx.Done():
		settle(nil, ctx.Err())
	}

	out := <-resultCh
	return out.account, out.err
}

// handleCallback processes the provider redirect. Every branch renders a
// page for the browser before settling the flow.
func (f *Flow) handleCallback(ctx context.Context, w http.ResponseWriter, r *http.Request, oauthCfg *oauth2.Config, settle func(*Account, error)) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		renderErrorPage(w, http.StatusBadRequest, "Authentication Error", errParam, retryHint)
		settle(nil, errors.New(errParam))
		return
	}

	code := query.Get("code")
	if code == "" {
		renderErrorPage(w, http.StatusBadRequest, "Authentication Error", "No authorization code received.", retryHint)
		settle(nil, errors.New("no authorization code received"))
		return
	}

	// The exchange runs on the flow context, not the request context: the
	// browser may drop the connection while the exchange is in flight.
	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	token, err := oauthCfg.Exchange(exchangeCtx, code)
	if err != nil {
		renderErrorPage(w, http.StatusInternalServerError, "Authentication Error", err.Error(), retryHint)
		settle(nil, fmt.Errorf("failed to exchange authorization code: %w", err))
		return
	}

	accountsResp, err := fetchAccounts(ctx, f.httpClient, f.accountsURL, token.AccessToken)
	if err != nil {
		renderErrorPage(w, http.StatusInternalServerError, "Authentication Error", err.Error(), retryHint)
		settle(nil, err)
		return
	}

	matches := accountsResp.HarvestAccounts()
	if len(matches) == 0 {
		renderErrorPage(w, http.StatusBadRequest, "No Harvest Accounts",
			"No Harvest accounts found for this user.",
			"Please close this window and try again with a different account.")
		settle(nil, errors.New("no Harvest accounts found"))
		return
	}

	// Multiple Harvest accounts: take the first in provider order.
	account := matches[0]

	accountID := strconv.FormatInt(account.ID, 10)
	expiry := token.Expiry.UnixMilli()
	f.store.Update(ctx, credentials.Partial{
		AccountID:    &accountID,
		AccessToken:  &token.AccessToken,
		RefreshToken: &token.RefreshToken,
		TokenExpiry:  &expiry,
		ClientID:     &oauthCfg.ClientID,
		ClientSecret: &oauthCfg.ClientSecret,
	})

	renderSuccessPage(w, account.Name)
	settle(&account, nil)
}

// requestLogging logs callback server requests. The authorization code in
// the query string is single-use and already consumed by the time the log
// line is emitted.
func (f *Flow) requestLogging(next http.Handler) http.Handler {
	return httplog.RequestLogger(f.logger, &httplog.Options{
		Schema: httplog.SchemaECS.Concise(true),

		// Never log headers or bodies on the callback server
		LogRequestHeaders:  []string{},
		LogResponseHeaders: []string{},
		LogRequestBody:     nil,
		LogResponseBody:    nil,
	})(next)
}

package harvest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/startstudio/harvest-mcp/internal/credentials"
)

// memStore is an in-memory credentials.Store for tests.
type memStore struct {
	mu  sync.Mutex
	rec credentials.Record
}

func (m *memStore) Load(ctx context.Context) credentials.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec
}

func (m *memStore) Save(ctx context.Context, rec credentials.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = rec
}

func (m *memStore) Update(ctx context.Context, p credentials.Partial) credentials.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = p.Apply(m.rec)
	return m.rec
}

// stubAuthority records how often the refresh gate ran.
type stubAuthority struct {
	result bool
	calls  atomic.Int64
}

func (s *stubAuthority) EnsureValidToken(ctx context.Context) bool {
	s.calls.Add(1)
	return s.result
}

// capturedRequest is what the fake API saw for a single call.
type capturedRequest struct {
	method  string
	path    string
	headers http.Header
	body    []byte
}

// fakeAPI replays a canned status and body and captures every request.
type fakeAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []capturedRequest

	status int
	body   string
}

func newFakeAPI(t *testing.T, status int, body string) *fakeAPI {
	t.Helper()
	api := &fakeAPI{status: status, body: body}
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		api.mu.Lock()
		api.requests = append(api.requests, capturedRequest{
			method:  r.Method,
			path:    r.URL.Path,
			headers: r.Header.Clone(),
			body:    data,
		})
		api.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(api.status)
		_, _ = w.Write([]byte(api.body))
	}))
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) last(t *testing.T) capturedRequest {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	require.NotEmpty(t, a.requests)
	return a.requests[len(a.requests)-1]
}

func (a *fakeAPI) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

func noEnv(string) string {
	return ""
}

func authenticatedRecord() credentials.Record {
	return credentials.Record{
		AccountID:   "12345",
		AccessToken: "oauth-token",
	}
}

func newTestClient(api *fakeAPI, store credentials.Store, authority TokenAuthority, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithBaseURL(api.server.URL),
		WithEnvLookup(noEnv),
	}
	return NewClient(store, authority, append(base, opts...)...)
}

func requireAPIError(t *testing.T, err error, kind ErrorKind) *APIError {
	t.Helper()
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, kind, apiErr.Kind)
	return apiErr
}

func TestDoSendsFixedHeaders(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{}`)
	store := &memStore{rec: authenticatedRecord()}
	authority := &stubAuthority{result: true}
	client := newTestClient(api, store, authority)

	var out map[string]any
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/users/me", nil, &out))

	req := api.last(t)
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/users/me", req.path)
	assert.Equal(t, "harvest-mcp/1.0", req.headers.Get("User-Agent"))
	assert.Equal(t, "Bearer oauth-token", req.headers.Get("Authorization"))
	assert.Equal(t, "12345", req.headers.Get("Harvest-Account-ID"))
	assert.Equal(t, "application/json", req.headers.Get("Content-Type"))

	assert.Equal(t, int64(1), authority.calls.Load(), "refresh gate runs before every call")
}

func TestDoEnvironmentPairWinsOverStoredRecord(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{}`)
	store := &memStore{rec: authenticatedRecord()}
	authority := &stubAuthority{result: false}

	env := map[string]string{
		EnvAPIKey:    "personal-token",
		EnvAccountID: "99999",
	}
	client := newTestClient(api, store, authority, WithEnvLookup(func(key string) string {
		return env[key]
	}))

	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/users/me", nil, nil))

	req := api.last(t)
	assert.Equal(t, "Bearer personal-token", req.headers.Get("Authorization"))
	assert.Equal(t, "99999", req.headers.Get("Harvest-Account-ID"))
	assert.Equal(t, int64(1), authority.calls.Load(), "refresh gate still runs; its verdict is ignored")
}

func TestDoUnconfiguredFailsBeforeNetwork(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{}`)
	store := &memStore{}
	client := newTestClient(api, store, &stubAuthority{result: false})

	err := client.Do(context.Background(), http.MethodGet, "/users/me", nil, nil)

	apiErr := requireAPIError(t, err, ErrorKindConfiguration)
	assert.Equal(t, 401, apiErr.StatusCode)
	assert.Equal(t, 0, api.count(), "no network call without credentials")
}

func TestDoMapsResponseStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, ErrorKindAuthorization},
		{"forbidden", http.StatusForbidden, ErrorKindAuthorization},
		{"not found", http.StatusNotFound, ErrorKindTransport},
		{"unprocessable", http.StatusUnprocessableEntity, ErrorKindTransport},
		{"server error", http.StatusInternalServerError, ErrorKindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, tt.status, `{"error":"nope"}`)
			store := &memStore{rec: authenticatedRecord()}
			client := newTestClient(api, store, &stubAuthority{result: true})

			err := client.Do(context.Background(), http.MethodGet, "/users/me", nil, nil)

			apiErr := requireAPIError(t, err, tt.kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Contains(t, apiErr.Message, "nope", "response body surfaces in the message")
		})
	}
}

func TestDoMalformedResponse(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"first_name": `)
	store := &memStore{rec: authenticatedRecord()}
	client := newTestClient(api, store, &stubAuthority{result: true})

	var out User
	err := client.Do(context.Background(), http.MethodGet, "/users/me", nil, &out)

	apiErr := requireAPIError(t, err, ErrorKindMalformedResponse)
	assert.Equal(t, 500, apiErr.StatusCode)
}

func TestDoConnectionFailureIsTransport(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{}`)
	baseURL := api.server.URL
	api.server.Close()

	store := &memStore{rec: authenticatedRecord()}
	client := NewClient(store, &stubAuthority{result: true},
		WithBaseURL(baseURL), WithEnvLookup(noEnv))

	err := client.Do(context.Background(), http.MethodGet, "/users/me", nil, nil)
	requireAPIError(t, err, ErrorKindTransport)
}

func TestGetCurrentUser(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"id": 7, "first_name": "Tess", "last_name": "Doe", "email": "tess@example.com", "is_active": true}`)
	store := &memStore{rec: authenticatedRecord()}
	client := newTestClient(api, store, &stubAuthority{result: true})

	user, err := client.GetCurrentUser(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "Tess", user.FirstName)
	assert.Equal(t, "/users/me", api.last(t).path)
}

func TestGetProjectAssignments(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{
		"project_assignments": [
			{"id": 1, "is_active": true, "project": {"id": 10, "name": "Website", "code": "WEB"},
			 "client": {"id": 20, "name": "Acme"},
			 "task_assignments": [{"id": 30, "task": {"id": 40, "name": "Design"}}]}
		],
		"per_page": 100, "total_pages": 1, "total_entries": 1, "page": 1
	}`)
	store := &memStore{rec: authenticatedRecord()}
	client := newTestClient(api, store, &stubAuthority{result: true})

	resp, err := client.GetProjectAssignments(context.Background())

	require.NoError(t, err)
	require.Len(t, resp.ProjectAssignments, 1)
	assert.Equal(t, "Website", resp.ProjectAssignments[0].Project.Name)
	assert.Equal(t, "Acme", resp.ProjectAssignments[0].Client.Name)
	require.Len(t, resp.ProjectAssignments[0].TaskAssignments, 1)
	assert.Equal(t, "Design", resp.ProjectAssignments[0].TaskAssignments[0].Task.Name)
	assert.Equal(t, "/users/me/project_assignments", api.last(t).path)
}

func TestCreateTimeEntry(t *testing.T) {
	api := newFakeAPI(t, http.StatusCreated, `{"id": 55, "spent_date": "2026-08-31", "hours": 1.5}`)
	store := &memStore{rec: authenticatedRecord()}
	client := newTestClient(api, store, &stubAuthority{result: true})

	hours := 1.5
	entry, err := client.CreateTimeEntry(context.Background(), CreateTimeEntryInput{
		ProjectID: 10,
		TaskID:    40,
		SpentDate: "2026-08-31",
		Hours:     &hours,
		Notes:     "sprint work",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(55), entry.ID)

	req := api.last(t)
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/time_entries", req.path)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(req.body, &sent))
	assert.Equal(t, float64(10), sent["project_id"])
	assert.Equal(t, float64(40), sent["task_id"])
	assert.Equal(t, "2026-08-31", sent["spent_date"])
	assert.Equal(t, 1.5, sent["hours"])
	assert.Equal(t, "sprint work", sent["notes"])
}

func TestCreateTimeEntryDefaultsSpentDate(t *testing.T) {
	api := newFakeAPI(t, http.StatusCreated, `{"id": 56}`)
	store := &memStore{rec: authenticatedRecord()}
	client := newTestClient(api, store, &stubAuthority{result: true})

	_, err := client.CreateTimeEntry(context.Background(), CreateTimeEntryInput{
		ProjectID: 10,
		TaskID:    40,
	})
	require.NoError(t, err)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(api.last(t).body, &sent))
	assert.NotEmpty(t, sent["spent_date"], "spent_date defaults to the current time")
	_, hasHours := sent["hours"]
	assert.False(t, hasHours, "omitted hours start a running timer")
}

func TestUpdateTimeEntrySendsOnlySetFields(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"id": 55, "notes": "revised"}`)
	store := &memStore{rec: authenticatedRecord()}
	client := newTestClient(api, store, &stubAuthority{result: true})

	notes := "revised"
	entry, err := client.UpdateTimeEntry(context.Background(), UpdateTimeEntryInput{
		ID:    55,
		Notes: &notes,
	})

	require.NoError(t, err)
	assert.Equal(t, "revised", entry.Notes)

	req := api.last(t)
	assert.Equal(t, http.MethodPatch, req.method)
	assert.Equal(t, "/time_entries/55", req.path)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(req.body, &sent))
	assert.Equal(t, map[string]any{"notes": "revised"}, sent, "unset fields stay out of the payload")
}

func TestDeleteTimeEntryToleratesEmptyBody(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, ``)
	store := &memStore{rec: authenticatedRecord()}
	client := newTestClient(api, store, &stubAuthority{result: true})

	require.NoError(t, client.DeleteTimeEntry(context.Background(), 55))

	req := api.last(t)
	assert.Equal(t, http.MethodDelete, req.method)
	assert.Equal(t, "/time_entries/55", req.path)
	assert.Empty(t, req.body)
}

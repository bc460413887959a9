package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Autilos/r107-garage-hub/app/auth"
	"github.com/Autilos/r107-garage-hub/app/database"
	"github.com/Autilos/r107-garage-hub/app/ingest"
)

type fakeAuthorizer struct {
	err   error
	calls int
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, cronHeader, authHeader string) error {
	f.calls++
	return f.err
}

type fakeIdentity struct {
	userID string
	err    error
}

func (f *fakeIdentity) GetUserID(ctx context.Context, token string) (string, error) {
	return f.userID, f.err
}

type fakePipeline struct {
	stats *ingest.Stats
	err   error
	calls int
}

func (f *fakePipeline) Run(ctx context.Context) (*ingest.Stats, error) {
	f.calls++
	return f.stats, f.err
}

type fakeReclassifier struct {
	stats *ingest.ReclassifyStats
	err   error
}

func (f *fakeReclassifier) Run(ctx context.Context) (*ingest.ReclassifyStats, error) {
	return f.stats, f.err
}

type fakeSourceRepo struct {
	database.SourceRepository
	sources []database.Source
}

func (f *fakeSourceRepo) GetSources() ([]database.Source, error) {
	return f.sources, nil
}

func (f *fakeSourceRepo) GetSourceCount() (int, error) {
	return len(f.sources), nil
}

type fakeListingRepo struct {
	database.ListingRepository
	listings []database.Listing
	inserted []database.NewListing
}

func (f *fakeListingRepo) GetListings(filter database.ListingFilter) ([]database.Listing, error) {
	out := []database.Listing{}
	for _, l := range f.listings {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeListingRepo) GetListing(id string) (*database.Listing, error) {
	for i := range f.listings {
		if f.listings[i].ID == id {
			return &f.listings[i], nil
		}
	}
	return nil, nil
}

func (f *fakeListingRepo) GetListingCount() (int, error) {
	return len(f.listings), nil
}

func (f *fakeListingRepo) GetListingStats() (int, int, int, error) {
	return len(f.listings), 0, 0, nil
}

func (f *fakeListingRepo) InsertListing(l database.NewListing) (string, error) {
	f.inserted = append(f.inserted, l)
	return "new-id", nil
}

func (f *fakeListingRepo) UpdateListingStatus(id, status string) error {
	for i := range f.listings {
		if f.listings[i].ID == id {
			f.listings[i].Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

type testEnv struct {
	authorizer  *fakeAuthorizer
	identity    *fakeIdentity
	pipeline    *fakePipeline
	sourceRepo  *fakeSourceRepo
	listingRepo *fakeListingRepo
	server      http.Handler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		authorizer:  &fakeAuthorizer{},
		identity:    &fakeIdentity{userID: "user-1"},
		pipeline:    &fakePipeline{stats: &ingest.Stats{Processed: 3, Allowed: 1, Rejected: 2}},
		sourceRepo:  &fakeSourceRepo{},
		listingRepo: &fakeListingRepo{},
	}

	handler := NewHandler(env.authorizer, env.identity, env.pipeline,
		&fakeReclassifier{stats: &ingest.ReclassifyStats{}}, env.sourceRepo, env.listingRepo)
	env.server = NewServer(handler)

	return env
}

func (env *testEnv) request(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	env.server.ServeHTTP(w, req)
	return w
}

func TestIngestUnauthenticated(t *testing.T) {
	env := newTestEnv()
	env.authorizer.err = auth.ErrUnauthenticated

	w := env.request("POST", "/ingest", "", nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
	if env.pipeline.calls != 0 {
		t.Errorf("Pipeline should not run for unauthenticated caller, ran %d times", env.pipeline.calls)
	}
}

func TestIngestForbidden(t *testing.T) {
	env := newTestEnv()
	env.authorizer.err = auth.ErrForbidden

	w := env.request("POST", "/ingest", "", map[string]string{"Authorization": "Bearer user-token"})

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
	if env.pipeline.calls != 0 {
		t.Errorf("Pipeline should not run for non-admin caller, ran %d times", env.pipeline.calls)
	}
}

func TestIngestSuccess(t *testing.T) {
	env := newTestEnv()

	w := env.request("POST", "/ingest", "", map[string]string{"X-Cron-Secret": "secret"})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if env.pipeline.calls != 1 {
		t.Errorf("Expected 1 pipeline run, got %d", env.pipeline.calls)
	}

	var resp struct {
		Success bool         `json:"success"`
		Results ingest.Stats `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if !resp.Success {
		t.Error("Expected success true")
	}
	if resp.Results.Processed != 3 || resp.Results.Allowed != 1 || resp.Results.Rejected != 2 {
		t.Errorf("Unexpected counters in response: %+v", resp.Results)
	}
}

func TestIngestPipelineFailure(t *testing.T) {
	env := newTestEnv()
	env.pipeline.err = errors.New("sources unavailable")
	env.pipeline.stats = nil

	w := env.request("POST", "/ingest", "", nil)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.Success {
		t.Error("Expected success false")
	}
	if resp.Error != "sources unavailable" {
		t.Errorf("Expected error message in response, got %q", resp.Error)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv()

	w := env.request("OPTIONS", "/listings", "", nil)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for preflight, got %d", w.Code)
	}
	if origin := w.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Expected wildcard CORS origin, got %q", origin)
	}
	if allow := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(allow, "X-Cron-Secret") {
		t.Errorf("Expected X-Cron-Secret in allowed headers, got %q", allow)
	}
}

func TestListListingsOnlyApproved(t *testing.T) {
	env := newTestEnv()
	env.listingRepo.listings = []database.Listing{
		{ID: "a", Status: "approved", Category: "vehicle", Title: "SL 500", CreatedAt: time.Now()},
		{ID: "b", Status: "pending", Category: "part", Title: "Hardtop", CreatedAt: time.Now()},
	}

	w := env.request("GET", "/listings", "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Listings []listingResponse `json:"listings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(resp.Listings) != 1 {
		t.Fatalf("Expected 1 approved listing, got %d", len(resp.Listings))
	}
	if resp.Listings[0].ID != "a" {
		t.Errorf("Expected listing 'a', got %q", resp.Listings[0].ID)
	}
}

func TestGetListingHidesPending(t *testing.T) {
	env := newTestEnv()
	env.listingRepo.listings = []database.Listing{
		{ID: "b", Status: "pending", Category: "part", Title: "Hardtop"},
	}

	w := env.request("GET", "/listings/b", "", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for pending listing, got %d", w.Code)
	}
}

func TestSubmitListingRequiresAuth(t *testing.T) {
	env := newTestEnv()

	w := env.request("POST", "/listings", `{"category":"part","title":"Grille"}`, nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
	if len(env.listingRepo.inserted) != 0 {
		t.Errorf("Expected no insert, got %d", len(env.listingRepo.inserted))
	}
}

func TestSubmitListingEntersPending(t *testing.T) {
	env := newTestEnv()

	body := `{"category":"vehicle","title":"1985 380SL","price":18500,"currency":"USD","country":"US"}`
	w := env.request("POST", "/listings", body, map[string]string{"Authorization": "Bearer user-token"})

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.listingRepo.inserted) != 1 {
		t.Fatalf("Expected 1 insert, got %d", len(env.listingRepo.inserted))
	}

	l := env.listingRepo.inserted[0]
	if l.Status != "pending" {
		t.Errorf("Expected status pending, got %q", l.Status)
	}
	if l.SourceType != "user" {
		t.Errorf("Expected source type user, got %q", l.SourceType)
	}
	if l.UserID == nil || *l.UserID != "user-1" {
		t.Errorf("Expected user id from token, got %v", l.UserID)
	}
}

func TestSubmitListingInvalidCategory(t *testing.T) {
	env := newTestEnv()

	body := `{"category":"boat","title":"Not a car"}`
	w := env.request("POST", "/listings", body, map[string]string{"Authorization": "Bearer user-token"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestAdminStatusUpdate(t *testing.T) {
	env := newTestEnv()
	env.listingRepo.listings = []database.Listing{
		{ID: "b", Status: "pending", Category: "part", Title: "Hardtop"},
	}

	w := env.request("PATCH", "/api/listings/b/status", `{"status":"approved"}`,
		map[string]string{"Authorization": "Bearer admin-token"})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if env.authorizer.calls != 1 {
		t.Errorf("Expected authorization check, got %d calls", env.authorizer.calls)
	}
}

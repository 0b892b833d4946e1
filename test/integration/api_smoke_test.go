package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/app/apiapp"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/config"
	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
	authsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/auth"
)

type emptySessionStore struct{}

func (emptySessionStore) Create(context.Context, authsvc.SessionRecord, string) error { return nil }
func (emptySessionStore) GetSession(context.Context, string) (authsvc.SessionRecord, error) {
	return authsvc.SessionRecord{}, authsvc.ErrSessionNotFound
}
func (emptySessionStore) GetByRefreshToken(context.Context, string) (authsvc.SessionRecord, error) {
	return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
}
func (emptySessionStore) RotateRefresh(context.Context, string, string, string, time.Time) error {
	return nil
}
func (emptySessionStore) DeleteSession(context.Context, string) error { return nil }

type emptyUserStore struct{}

func (emptyUserStore) Create(context.Context, string, string, string) (pgrepo.UserRecord, error) {
	return pgrepo.UserRecord{}, pgrepo.ErrEmailTaken
}
func (emptyUserStore) FindByEmail(context.Context, string) (pgrepo.UserRecord, error) {
	return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
}

type noopProfileStore struct{}

func (noopProfileStore) Ensure(context.Context, int64, string, string) error { return nil }

// Routing smoke tests run against the bare router so they need no live
// postgres or redis.
func newTestRouter() http.Handler {
	jwtManager := authsvc.NewJWTManager("smoke-test-secret", 15*time.Minute)
	authService := authsvc.NewService(jwtManager, emptySessionStore{}, emptyUserStore{}, noopProfileStore{}, 0)

	r := chi.NewRouter()
	apiapp.ApplyMiddlewares(r, zap.NewNop())
	apiapp.RegisterRoutes(r, apiapp.Dependencies{
		AuthService: authService,
		Logger:      zap.NewNop(),
		Config:      config.Default(),
	})
	return r
}

func TestHealthz(t *testing.T) {
	ts := httptest.NewServer(newTestRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusOK)
	}

	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestProductCatalogIsPublic(t *testing.T) {
	ts := httptest.NewServer(newTestRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/products")
	if err != nil {
		t.Fatalf("get products: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusOK)
	}

	var payload struct {
		Products []struct {
			ID          string `json:"id"`
			Kind        string `json:"kind"`
			AmountMinor int64  `json:"amount_minor"`
		} `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Products) == 0 {
		t.Fatal("expected a non-empty product catalog")
	}
	for _, p := range payload.Products {
		if p.ID == "" || p.Kind == "" || p.AmountMinor <= 0 {
			t.Fatalf("malformed product: %+v", p)
		}
	}
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	ts := httptest.NewServer(newTestRouter())
	defer ts.Close()

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/checkout"},
		{http.MethodGet, "/v1/interviews"},
		{http.MethodPost, "/v1/optimize/cv"},
		{http.MethodGet, "/v1/me/dashboard"},
		{http.MethodPost, "/v1/coupons/validate"},
	}

	for _, tc := range paths {
		req, err := http.NewRequest(tc.method, ts.URL+tc.path, nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.method, tc.path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s: got %d, want 401", tc.method, tc.path, resp.StatusCode)
		}
	}
}

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/perkspoint/perkspoint-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"status transition", http.MethodPost, "/api/v1/wallet-events/123/status", criticalIdempotencyTTL, true},
		{"force status", http.MethodPost, "/api/admin/v1/reconcile/force-status", criticalIdempotencyTTL, true},
		{"balances sync", http.MethodPost, "/api/v1/users/456/balances/sync", defaultIdempotencyTTL, true},
		{"auto fix", http.MethodPost, "/api/admin/v1/reconcile/auto-fix", defaultIdempotencyTTL, true},
		{"status verify is read only", http.MethodGet, "/api/v1/wallet-events/123/status/verify", 0, false},
		{"non idempotent", http.MethodPost, "/api/v1/users/456/balances", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/reconcile/auto-fix", strings.NewReader(`{"foo":"bar"}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/reconcile/auto-fix", strings.NewReader(`{"foo":"bar"}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected first response 202 got %d", resp.Code)
	}

	replay := httptest.NewRequest(http.MethodPost, "/api/admin/v1/reconcile/auto-fix", strings.NewReader(`{"foo":"bar"}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, replay)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected replay status 202 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/reconcile/auto-fix", strings.NewReader(`{"foo":"bar"}`))
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := httptest.NewRequest(http.MethodPost, "/api/admin/v1/reconcile/auto-fix", strings.NewReader(`{"foo":"diff"}`))
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

// The middleware is mounted with r.Use inside route groups, where chi has only
// resolved the wildcard mount. The guard must still fire on the leaf routes.
func TestIdempotencyMiddlewareFiresInsideRouteGroup(t *testing.T) {
	store := newFakeStore()
	eventID := uuid.New()
	var calls int

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Post("/wallet-events/{eventID}/status", func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"applied":true}`))
		})
	})

	path := "/api/v1/wallet-events/" + eventID.String() + "/status"

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"target_status":"success"}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d", resp.Code)
	}
	if calls != 0 {
		t.Fatalf("handler ran without an idempotency key")
	}

	first := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"target_status":"success"}`))
	first.Header.Set("Idempotency-Key", "grp-1")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, first)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with idempotency key, got %d", resp.Code)
	}
	if len(store.data) != 1 {
		t.Fatalf("expected one stored record, got %d", len(store.data))
	}

	replay := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"target_status":"success"}`))
	replay.Header.Set("Idempotency-Key", "grp-1")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, replay)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected replayed 200, got %d", resp.Code)
	}
	if strings.TrimSpace(resp.Body.String()) != `{"applied":true}` {
		t.Fatalf("expected stored body on replay, got %s", resp.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

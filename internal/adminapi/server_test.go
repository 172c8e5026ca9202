package adminapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/dreamware/reconcile/internal/reconcile"
)

func testHashKV(key string, value reconcile.TimedValue[[]byte]) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(key)
	_, _ = d.Write(value.Value)
	if value.Tombstone {
		_, _ = d.Write([]byte{1})
	}
	return d.Sum64()
}

func newTestServer(t *testing.T) (*Server, *reconcile.Service[string, []byte]) {
	t.Helper()
	svc, err := reconcile.New(reconcile.Config[string, []byte]{
		Less:   func(a, b string) bool { return a < b },
		HashKV: testHashKV,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return New(svc, nil), svc
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleGetMissingKey(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/store/missing", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandlePutThenGet(t *testing.T) {
	srv, _ := newTestServer(t)

	put := httptest.NewRequest(http.MethodPut, "/store/alpha", strings.NewReader("hello"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, put)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("put status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	get := httptest.NewRequest(http.MethodGet, "/store/alpha", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, get)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != "hello" {
		t.Errorf("body = %q, want %q", got, "hello")
	}
}

func TestHandleDeleteThenGetMisses(t *testing.T) {
	srv, svc := newTestServer(t)
	svc.Insert("beta", []byte("x"), time.Now())

	del := httptest.NewRequest(http.MethodDelete, "/store/beta", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, del)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	get := httptest.NewRequest(http.MethodGet, "/store/beta", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, get)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleListKeys(t *testing.T) {
	srv, svc := newTestServer(t)
	svc.Insert("a", []byte("1"), time.Now())
	svc.Insert("b", []byte("2"), time.Now())

	req := httptest.NewRequest(http.MethodGet, "/store", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body keysResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}
}

func TestHandleStats(t *testing.T) {
	srv, svc := newTestServer(t)
	svc.Insert("a", []byte("12345"), time.Now())

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body statsResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Keys != 1 || body.Bytes != 5 || body.Inserts != 1 {
		t.Errorf("unexpected stats %+v", body)
	}
}

func TestHandlePeersEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/peers", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body peersResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 0 {
		t.Errorf("count = %d, want 0", body.Count)
	}
}

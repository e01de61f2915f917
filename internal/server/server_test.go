package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/vincentbai/browsetrace-server/internal/database"
	"github.com/vincentbai/browsetrace-server/internal/ingest"
	"github.com/vincentbai/browsetrace-server/internal/logger"
	"github.com/vincentbai/browsetrace-server/internal/snapshots"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setupTestServer(t *testing.T, opts Options) (*Server, http.Handler) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewSQLite(dbPath, logger.Nop())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	terms, err := snapshots.Default()
	if err != nil {
		t.Fatalf("Failed to load terms: %v", err)
	}

	dispatcher := ingest.NewDispatcher(logger.Nop(), []string{"yougov"})
	server := NewServer(db, dispatcher, terms, logger.Nop(), "127.0.0.1:0", opts)
	return server, server.setupRoutes()
}

func post(t *testing.T, handler http.Handler, path, body string) ingest.Result {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("POST %s: expected status 200, got %d: %s", path, w.Code, w.Body.String())
	}
	var res ingest.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return res
}

func TestNewServer(t *testing.T) {
	server, _ := setupTestServer(t, Options{})

	if server.db == nil {
		t.Fatal("Expected non-nil database")
	}
	if server.address != "127.0.0.1:0" {
		t.Errorf("Expected address 127.0.0.1:0, got %s", server.address)
	}
	if server.opts.MaxBodyBytes != 64<<20 {
		t.Errorf("Expected default body limit 64 MiB, got %d", server.opts.MaxBodyBytes)
	}
}

func TestHandleHealthz(t *testing.T) {
	_, handler := setupTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("Expected body 'ok', got %q", w.Body.String())
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("Expected a generated X-Request-ID header")
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	_, handler := setupTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("Expected X-Request-ID abc-123, got %q", got)
	}
}

func TestSaveUser(t *testing.T) {
	server, handler := setupTestServer(t, Options{})
	body := `{"user_id":"test-abc","browser":"chrome","consent":true,"version":"1.0"}`

	if res := post(t, handler, "/save_user", body); res.Success != "Saved user." {
		t.Errorf("Expected 'Saved user.', got %+v", res)
	}
	if res := post(t, handler, "/save_user", body); res.Success != "User already saved." {
		t.Errorf("Expected 'User already saved.', got %+v", res)
	}

	exists, err := server.db.Session(context.Background()).UserExists("test-abc")
	if err != nil || !exists {
		t.Errorf("Expected user to be stored, got %v, %v", exists, err)
	}
}

func TestSaveUserMissingID(t *testing.T) {
	_, handler := setupTestServer(t, Options{})

	if res := post(t, handler, "/save_user", `{"browser":"chrome"}`); res.OK() {
		t.Errorf("Expected error for missing user_id, got %+v", res)
	}
}

func TestSaveDataClosedCohort(t *testing.T) {
	_, handler := setupTestServer(t, Options{})

	res := post(t, handler, "/save_data", `{"user_id":"abcdefghijklmn","api":"activity","data":{"url":"u"}}`)
	if res.Error != ingest.ParticipationEnded {
		t.Errorf("Expected participation ended error, got %+v", res)
	}
}

func TestSaveDataGeneric(t *testing.T) {
	_, handler := setupTestServer(t, Options{})

	res := post(t, handler, "/save_data", `{"user_id":"test-abc","api":"ad_preferences","data":{"a":1}}`)
	if res.Success != "[ad_preferences] saved as generic" {
		t.Errorf("Unexpected result %+v", res)
	}
}

func TestSaveDataActivity(t *testing.T) {
	_, handler := setupTestServer(t, Options{})

	body := `{"user_id":"test-abc","api":"activity","data":{"wintab":"1-2","lastwt":"1-1","type":"activated","url":"https://x","html":["<p>a</p>"],"links":[],"tweet_ids":["1"],"youtube_iframes":[]}}`
	if res := post(t, handler, "/save_data", body); res.Success != "[activity] saved" {
		t.Errorf("Unexpected result %+v", res)
	}
}

func TestSaveDataBrowserHistoryReplay(t *testing.T) {
	server, handler := setupTestServer(t, Options{})
	body := `{"user_id":"test-abc","api":"browser_history","data":[
		{"id":"1","url":"https://a.example","visits":[{"visitId":"10","visitTime":"1600000000000.5","transition":"link"},{"visitId":"11","visitTime":1600000001000}]},
		{"id":"2","url":"https://b.example","visits":[{"visitId":"20","visitTime":"1600000002000"}]}
	]}`

	for i := 0; i < 2; i++ {
		if res := post(t, handler, "/save_data", body); res.Success != "[browser_history] received visits" {
			t.Fatalf("Replay %d: unexpected result %+v", i, res)
		}
	}

	keys, err := server.db.Session(context.Background()).VisitKeys("test-abc")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 3 {
		t.Errorf("Expected 3 stored visits after replay, got %d", len(keys))
	}
	for _, k := range []string{"1-10", "1-11", "2-20"} {
		if _, ok := keys[k]; !ok {
			t.Errorf("Expected visit key %s", k)
		}
	}
}

func TestSaveDataInvalidJSON(t *testing.T) {
	_, handler := setupTestServer(t, Options{})

	if res := post(t, handler, "/save_data", `{not json`); res.OK() {
		t.Errorf("Expected error for invalid JSON, got %+v", res)
	}
	if res := post(t, handler, "/save_data", ``); res.OK() {
		t.Errorf("Expected error for empty body, got %+v", res)
	}
}

func TestSaveDataBodyLimit(t *testing.T) {
	_, handler := setupTestServer(t, Options{MaxBodyBytes: 64})

	body := `{"user_id":"test-abc","api":"x","data":"` + strings.Repeat("a", 128) + `"}`
	res := post(t, handler, "/save_data", body)
	if res.Error != "error reading request body" {
		t.Errorf("Expected body limit error, got %+v", res)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, handler := setupTestServer(t, Options{})

	for _, path := range []string{"/save_data", "/save_user", "/update_search_terms"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s: expected status 405, got %d", path, w.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	_, handler := setupTestServer(t, Options{AllowOrigins: []string{"https://study.example.org/"}})

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"chrome-extension://abcdefghijklmnop", true},
		{"moz-extension://0f2b1c4e-1234", true},
		{"https://study.example.org", true},
		{"https://evil.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/save_data", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			req.Header.Set("Access-Control-Request-Headers", "Content-Type")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			got := w.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed {
				if w.Code != http.StatusNoContent {
					t.Errorf("Expected status 204, got %d", w.Code)
				}
				if got != tt.origin {
					t.Errorf("Expected Allow-Origin %q, got %q", tt.origin, got)
				}
			} else if got != "" {
				t.Errorf("Expected no Allow-Origin header, got %q", got)
			}
		})
	}
}

func TestUpdateSearchTerms(t *testing.T) {
	server, handler := setupTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/update_search_terms", bytes.NewBufferString(`{"request_key":"send_me_the_terms"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var urls []string
	if err := json.Unmarshal(w.Body.Bytes(), &urls); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	want := server.terms.URLs()
	if len(urls) != len(want) {
		t.Fatalf("Expected %d urls, got %d", len(want), len(urls))
	}
	if len(server.terms.FrontPages) > 0 && urls[0] != server.terms.FrontPages[0] {
		t.Errorf("Expected front pages first, got %s", urls[0])
	}
}

func TestUpdateSearchTermsWrongKey(t *testing.T) {
	_, handler := setupTestServer(t, Options{})

	if res := post(t, handler, "/update_search_terms", `{"request_key":"nope"}`); res.OK() {
		t.Errorf("Expected error for wrong request key, got %+v", res)
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	server, _ := setupTestServer(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := server.Start(ctx); err != nil {
		t.Errorf("Start() error = %v", err)
	}
}

func TestTracingMiddlewareEnabled(t *testing.T) {
	_, handler := setupTestServer(t, Options{TraceService: "browsetrace-test"})

	res := post(t, handler, "/save_data", `{"user_id":"test-abc","api":"ad_preferences","data":[]}`)
	if !res.OK() {
		t.Errorf("Unexpected result with tracing enabled: %+v", res)
	}
}

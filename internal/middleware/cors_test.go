package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS_AllowedOriginEchoed(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://app.example.org"}))

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/issues", nil)
	req.Header.Set("Origin", "https://app.example.org")
	w := httptest.NewRecorder()

	handler(testHandler).ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.org" {
		t.Errorf("Access-Control-Allow-Origin: got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials: got %q", got)
	}
}

func TestCORS_UnknownOriginGetsNoHeaders(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://app.example.org"}))

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/issues", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	w := httptest.NewRecorder()

	handler(testHandler).ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unknown origin should get no CORS headers, got %q", got)
	}
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://app.example.org"}))

	reached := false
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	req := httptest.NewRequest("OPTIONS", "/api/issues", nil)
	req.Header.Set("Origin", "https://app.example.org")
	w := httptest.NewRecorder()

	handler(testHandler).ServeHTTP(w, req)

	if reached {
		t.Error("preflight request should not reach the next handler")
	}
	if w.Code != http.StatusOK {
		t.Errorf("preflight status: got %d", w.Code)
	}
}

func TestCORS_EmptyOriginListDeniesAll(t *testing.T) {
	handler := CORS(DefaultCORSConfig(nil))

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("GET", "/api/issues", nil)
	req.Header.Set("Origin", "https://app.example.org")
	w := httptest.NewRecorder()

	handler(testHandler).ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("no origins configured should mean no CORS headers, got %q", got)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/IsomerScope/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func corsRequest(t *testing.T, cfg CORSConfig, method, origin string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(method, "/api/v1/isomers/analyze", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	CORS(cfg)(okHandler()).ServeHTTP(w, r)
	return w
}

func TestCORS_Origins(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		wantOrigin string
	}{
		{"exact match", []string{"https://lab.example.org"}, "https://lab.example.org", "https://lab.example.org"},
		{"case insensitive", []string{"https://Lab.Example.org/"}, "https://lab.example.org", "https://lab.example.org"},
		{"not listed", []string{"https://lab.example.org"}, "https://evil.test", ""},
		{"any origin", []string{"*"}, "https://anywhere.test", "*"},
		{"subdomain", []string{"*.example.org"}, "https://chem.example.org", "https://chem.example.org"},
		{"subdomain with port", []string{"*.example.org"}, "http://chem.example.org:8080", "http://chem.example.org:8080"},
		{"suffix is not a subdomain", []string{"*.example.org"}, "https://badexample.org", ""},
		{"bare domain is not a subdomain", []string{"*.example.org"}, "https://example.org", ""},
		{"none configured", nil, "https://lab.example.org", ""},
		{"no origin header", []string{"*"}, "", ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultCORSConfig()
			cfg.AllowedOrigins = tt.allowed

			w := corsRequest(t, cfg, http.MethodGet, tt.origin, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"https://lab.example.org"}
	cfg.MaxAge = 10 * time.Minute

	w := corsRequest(t, cfg, http.MethodOptions, "https://lab.example.org",
		map[string]string{"Access-Control-Request-Method": http.MethodPost})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, w.Header().Values("Vary"), "Access-Control-Request-Method")
}

func TestCORS_PlainOptionsReachesHandler(t *testing.T) {
	t.Parallel()
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}

	w := corsRequest(t, cfg, http.MethodOptions, "https://lab.example.org", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_ExposesRateLimitHeaders(t *testing.T) {
	t.Parallel()
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}

	w := corsRequest(t, cfg, http.MethodPost, "https://lab.example.org", nil)
	exposed := w.Header().Get("Access-Control-Expose-Headers")
	assert.Contains(t, exposed, "X-RateLimit-Remaining")
	assert.Contains(t, exposed, "Retry-After")
	assert.Contains(t, w.Header().Values("Vary"), "Origin")
}

func TestCORS_CredentialsEchoOrigin(t *testing.T) {
	t.Parallel()
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}
	cfg.AllowCredentials = true

	w := corsRequest(t, cfg, http.MethodGet, "https://lab.example.org", nil)
	assert.Equal(t, "https://lab.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSConfigFromServer(t *testing.T) {
	t.Parallel()
	sc := config.ServerConfig{AllowedOrigins: []string{"https://lab.example.org", "*.example.net"}}
	cfg := CORSConfigFromServer(sc)

	assert.Equal(t, sc.AllowedOrigins, cfg.AllowedOrigins)
	assert.NotContains(t, cfg.AllowedMethods, http.MethodDelete)
	assert.False(t, cfg.AllowCredentials)
	assert.Equal(t, 24*time.Hour, cfg.MaxAge)

	sc.AllowedOrigins[0] = "mutated"
	assert.Equal(t, "https://lab.example.org", cfg.AllowedOrigins[0])
	assert.Empty(t, CORSConfigFromServer(config.ServerConfig{}).AllowedOrigins)
}

//Personal.AI order the ending

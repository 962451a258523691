package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/johannth/imdb-watchlist/internal/config"
	"github.com/johannth/imdb-watchlist/internal/handler"
)

func setupRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Load()
	if len(origins) > 0 {
		cfg.CORSAllowOrigins = origins
	}
	r := gin.New()
	RegisterRoutes(r, handler.NewHandler(nil, cfg))
	return r
}

func preflight(r http.Handler, target, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, target, nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSPreflight(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		target  string
		want    string
	}{
		{"any origin", nil, "/api/watchlist", "*"},
		{"enrich", nil, "/api/enrich", "*"},
		{"allowed origin", []string{"http://localhost:3000"}, "/api/justwatch", "http://localhost:3000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := preflight(setupRouter(tt.origins...), tt.target, "http://localhost:3000")
			if w.Code != http.StatusNoContent {
				t.Fatalf("status = %d, want 204", w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
			if w.Header().Get("Access-Control-Allow-Methods") == "" {
				t.Error("missing Access-Control-Allow-Methods")
			}
		})
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	w := preflight(setupRouter("http://localhost:3000"), "/api/watchlist", "http://evil.example")
	if w.Code == http.StatusNoContent {
		t.Fatalf("status = %d, disallowed origin should not pass preflight", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
	}
}

func TestHealthRoute(t *testing.T) {
	w := httptest.NewRecorder()
	r := setupRouter()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/lootcase-bot/internal/httpapi/response"
	"serotonyl.ru/lootcase-bot/internal/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTraceID(t *testing.T) {
	r := gin.New()
	r.Use(TraceID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetTraceID(c)) })

	w := serve(r, http.MethodGet, "/", nil)
	generated := w.Header().Get(TraceIDHeader)
	if len(generated) != 36 {
		t.Fatalf("generated trace id = %q", generated)
	}
	if w.Body.String() != generated {
		t.Errorf("context trace id %q != header %q", w.Body.String(), generated)
	}

	w = serve(r, http.MethodGet, "/", map[string]string{TraceIDHeader: "abc"})
	if got := w.Header().Get(TraceIDHeader); got != "abc" {
		t.Errorf("incoming trace id not kept: %q", got)
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(TraceID(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(r, http.MethodGet, "/boom", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body response.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Code != response.CodeInternal {
		t.Errorf("code = %q", body.Code)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(DefaultCORSConfig([]string{"https://app.example"})))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/", map[string]string{"Origin": "https://app.example"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("allowed origin = %q", got)
	}

	w = serve(r, http.MethodGet, "/", map[string]string{"Origin": "https://evil.example"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin got %q", got)
	}

	w = serve(r, http.MethodOptions, "/", map[string]string{"Origin": "https://app.example"})
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", w.Code)
	}
}

func TestCORS_Wildcard(t *testing.T) {
	r := gin.New()
	r.Use(CORS(DefaultCORSConfig([]string{"*"})))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/", map[string]string{"Origin": "https://any.example"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	rl := ratelimit.New[string](2, time.Minute)
	defer rl.Close()

	r := gin.New()
	r.Use(RateLimit(rl))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if w := serve(r, http.MethodGet, "/", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}
	w := serve(r, http.MethodGet, "/", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	var body response.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Code != response.CodeRateLimited {
		t.Errorf("code = %q", body.Code)
	}
}

func TestLogging_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(TraceID(), Logging("/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	if w := serve(r, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/x", nil); w.Code != http.StatusTeapot {
		t.Errorf("x status = %d", w.Code)
	}
}

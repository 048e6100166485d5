package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catalog/backend/internal/interfaces/http/handler"
	"github.com/catalog/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	var order []string
	group := NewDomainGroup("test", "/test").
		Use(func(c *gin.Context) { order = append(order, "mw"); c.Next() }).
		GET("/ping", func(c *gin.Context) {
			order = append(order, "handler")
			c.String(http.StatusOK, "pong")
		})
	assert.Equal(t, "test", group.Name())
	assert.Equal(t, "/test", group.Prefix())

	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, []string{"mw", "handler"}, order)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDomainGroup_Methods(t *testing.T) {
	engine := gin.New()
	ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }
	NewDomainGroup("items", "/items").
		GET("", ok).
		POST("", ok).
		PATCH("/:id", ok).
		DELETE("/:id", ok).
		RegisterRoutes(engine.Group("/api/v1"))

	for method, path := range map[string]string{
		http.MethodGet:    "/api/v1/items",
		http.MethodPost:   "/api/v1/items",
		http.MethodPatch:  "/api/v1/items/1",
		http.MethodDelete: "/api/v1/items/1",
	} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, method)
		assert.Equal(t, method, w.Body.String())
	}
}

func newTestEngine(t *testing.T, cfg Config) *gin.Engine {
	t.Helper()
	engine, err := New(cfg, Handlers{
		Media:  handler.NewMediaHandler(nil),
		Health: handler.NewHealthHandler("test", nil),
	}, zap.NewNop())
	require.NoError(t, err)
	return engine
}

func TestNew_GlobalMiddleware(t *testing.T) {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = []string{"https://admin.example.com"}
	engine := newTestEngine(t, Config{ServiceName: "catalog-media", CORS: cors})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/media", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/media/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNew_UploadMiddleware(t *testing.T) {
	engine := newTestEngine(t, Config{MaxUploadSize: 16, UploadRateLimit: 1})

	// no multipart body: rejected by the handler, but counted by the limiter
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/media", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/media", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	big := newTestEngine(t, Config{MaxUploadSize: 16})
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", strings.NewReader(strings.Repeat("x", multipartOverhead+17)))
	big.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	big.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/images/original/a.jpg", nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "proxy is not mounted without a handler")
}

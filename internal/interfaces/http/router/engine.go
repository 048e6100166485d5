package router

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/catalog/backend/internal/infrastructure/logger"
	"github.com/catalog/backend/internal/interfaces/http/handler"
	"github.com/catalog/backend/internal/interfaces/http/middleware"
)

// multipartOverhead is the room left for form fields and boundaries on top
// of the largest accepted file
const multipartOverhead = 1 << 20

// Config configures the engine
type Config struct {
	ServiceName    string
	TracingEnabled bool
	CORS           middleware.CORSConfig
	TrustedProxies []string
	MaxUploadSize  int64
	// UploadRateLimit is the number of uploads per client and minute; 0 disables
	UploadRateLimit int
	// ProxyPrefix is where the image proxy is mounted, e.g. /api/images/
	ProxyPrefix string
}

// Handlers are the HTTP handlers mounted by New. A nil Proxy leaves the
// image proxy unmounted.
type Handlers struct {
	Media  *handler.MediaHandler
	Proxy  *handler.ImageProxyHandler
	Health *handler.HealthHandler
}

// New builds the gin engine with the global middleware chain and every route
func New(cfg Config, h Handlers, log *zap.Logger) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.MaxMultipartMemory = cfg.MaxUploadSize + multipartOverhead

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled),
		middleware.SpanEnricher(),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
	)

	engine.GET("/health", h.Health.Health)

	r := NewRouter(engine)
	r.Register(MediaRoutes(h.Media, uploadMiddleware(cfg)...))
	r.Setup()

	if h.Proxy != nil {
		prefix := cfg.ProxyPrefix
		if prefix == "" {
			prefix = "/api/images/"
		}
		engine.GET(strings.TrimSuffix(prefix, "/")+"/*key", h.Proxy.Serve)
	}

	return engine, nil
}

func uploadMiddleware(cfg Config) []gin.HandlerFunc {
	var mw []gin.HandlerFunc
	if cfg.UploadRateLimit > 0 {
		mw = append(mw, middleware.RateLimit(middleware.NewRateLimiter(cfg.UploadRateLimit, time.Minute)))
	}
	if cfg.MaxUploadSize > 0 {
		mw = append(mw, middleware.BodyLimit(cfg.MaxUploadSize+multipartOverhead))
	}
	return mw
}

// MediaRoutes returns the /media routes. uploadMW runs in front of the
// upload handler only.
func MediaRoutes(h *handler.MediaHandler, uploadMW ...gin.HandlerFunc) *DomainGroup {
	upload := append(uploadMW[:len(uploadMW):len(uploadMW)], h.Upload)

	return NewDomainGroup("media", "/media").
		POST("", upload...).
		GET("", h.List).
		GET("/resolve", h.Resolve).
		POST("/sign", h.Sign).
		DELETE("/objects", h.DeleteObject).
		GET("/:id", h.Get).
		PATCH("/:id", h.Update).
		DELETE("/:id", h.Delete)
}

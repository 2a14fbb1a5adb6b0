package httpserver

import (
	"net/http"
	"time"

	"github.com/Pluto-lin/magma/internal/server/httpserver/handler"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Cache serves the admin cache endpoints.
	Cache handler.CacheAdmin

	// Ready reports whether backends are reachable. Nil means always ready.
	Ready func() error

	// Metrics serves /metrics. Nil disables the route.
	Metrics http.Handler

	// IdleTTL is the default idle threshold of the sweep endpoint.
	IdleTTL time.Duration

	// AdminAllowList restricts /admin/. Empty means loopback only.
	AdminAllowList []string

	// Local skips the network allowlist, for routers served on a Unix
	// socket.
	Local bool

	Logger logger.Logger
}

// NewRouter creates the HTTP handler with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With("component", "http")

	h := handler.New(cfg.Cache, cfg.Ready, cfg.IdleTTL, log)
	base := []Middleware{Recover(log), RequestID(), Audit(log)}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", Chain(http.HandlerFunc(h.Health), base...))
	mux.Handle("GET /readyz", Chain(http.HandlerFunc(h.Ready), base...))
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics, Recover(log)))
	}

	admin := append([]Middleware{}, base...)
	if !cfg.Local {
		admin = append(admin, NetworkACL(cfg.AdminAllowList, log))
	}
	mux.Handle("GET /admin/v1/cache", Chain(http.HandlerFunc(h.CacheSummary), admin...))
	mux.Handle("GET /admin/v1/cache/{username}", Chain(http.HandlerFunc(h.CacheEntry), admin...))
	mux.Handle("POST /admin/v1/cache/{username}/evict", Chain(http.HandlerFunc(h.CacheEvict), admin...))
	mux.Handle("POST /admin/v1/cache/sweep", Chain(http.HandlerFunc(h.CacheSweep), admin...))

	return mux
}

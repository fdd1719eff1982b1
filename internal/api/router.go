package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/snaptext/snaptext/internal/api/handlers"
	"github.com/snaptext/snaptext/internal/api/middleware"
	"github.com/snaptext/snaptext/internal/config"
	"github.com/snaptext/snaptext/internal/extraction"
	"github.com/snaptext/snaptext/internal/llm"
)

type Router struct {
	mux   *chi.Mux
	redis *redis.Client
	cfg   *config.Config
	llmGW llm.Gateway
}

// NewRouter wires the extraction stack. rdb may be nil; the rate limiter
// then falls back to an in-process counter.
func NewRouter(rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		redis: rdb,
		cfg:   cfg,
		llmGW: llm.NewGateway(cfg.LLM),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	var counter middleware.CounterStore
	if rt.redis != nil {
		counter = middleware.NewRedisCounter(rt.redis)
	} else {
		counter = middleware.NewMemoryCounter()
	}
	rl := middleware.NewRateLimiter(counter, rt.cfg.RateLimit.Ceiling, rt.cfg.RateLimit.Window)

	// Health endpoints
	health := handlers.NewHealthHandler(rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	extractSvc := extraction.NewService(rt.llmGW, rt.cfg.LLM.DefaultModel, rt.cfg.Extraction.MinImageBytes, nil)
	extractH := handlers.NewExtractHandler(extractSvc)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rl.Limit)
		r.With(maxBody(rt.cfg.Extraction.MaxBodyBytes)).Post("/extract", extractH.Extract)
	})

	return r
}

func maxBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

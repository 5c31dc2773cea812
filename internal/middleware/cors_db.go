package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benvon/smart-snippets/internal/models"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	defaultCORSOrigin = "http://localhost:3000"
	defaultCORSMaxAge = 86400
)

// CorsConfigStore loads the stored CORS settings. A nil config with a nil
// error means nothing is stored.
type CorsConfigStore interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
}

// CORSReloader wraps rs/cors and periodically reloads the allowed origins
type CORSReloader struct {
	repo     CorsConfigStore
	fallback string
	log      *zap.Logger
	interval time.Duration

	initOnce sync.Once
	mu       sync.RWMutex
	current  *cors.Cors
}

// NewCORSReloader creates the reloader. frontendURLFallback is a
// comma-separated origin list used when nothing is stored.
func NewCORSReloader(repo CorsConfigStore, frontendURLFallback string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &CORSReloader{
		repo:     repo,
		fallback: strings.TrimSpace(frontendURLFallback),
		log:      log,
		interval: reloadInterval,
	}
}

// Middleware loads the initial settings on first use and returns the CORS
// middleware. gorilla/mux may call the returned function on every request.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	r.initOnce.Do(func() { r.load(context.Background()) })
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			c := r.current
			r.mu.RUnlock()
			c.Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start reloads on every interval until ctx is cancelled
func (r *CORSReloader) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.load(ctx)
		}
	}
}

func (r *CORSReloader) options(ctx context.Context) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   models.SplitOrigins(r.fallback),
		AllowCredentials: true,
		MaxAge:           defaultCORSMaxAge,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}

	cfg, err := r.repo.Get(ctx)
	if err != nil {
		r.log.Warn("failed_to_load_cors_config_using_fallback", zap.Error(err))
	} else if cfg != nil {
		opts.AllowedOrigins = cfg.Origins()
		opts.AllowCredentials = cfg.AllowCredentials
		opts.MaxAge = cfg.MaxAge
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{defaultCORSOrigin}
	}
	return opts
}

func (r *CORSReloader) load(ctx context.Context) {
	c := cors.New(r.options(ctx))

	r.mu.Lock()
	r.current = c
	r.mu.Unlock()
}

package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"water_service/internal/config"
	"water_service/internal/infrastructure/telemetry"
)

// NewRouter wires the handlers behind the given cross-origin policy.
func NewRouter(h *Handler, corsCfg config.CORSConfig, metricsEnabled bool) http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, fn))
	}
	handle("POST /calculate", h.Calculate)
	handle("GET /api/regions/{name}", h.LookupRegion)
	handle("GET /healthz", h.Health)

	if metricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return cors.New(corsOptions(corsCfg)).Handler(mux)
}

// corsOptions echoes the request origin when a wildcard is combined with
// credentials, since browsers reject "*" on credentialed responses.
func corsOptions(cfg config.CORSConfig) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		AllowCredentials: cfg.AllowCredentials,
	}
	if cfg.AllowCredentials && slices.Contains(cfg.AllowedOrigins, "*") {
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(string) bool { return true }
	}
	return opts
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		telemetry.ObserveHTTPRequest(route, rec.status, time.Since(start))
	})
}

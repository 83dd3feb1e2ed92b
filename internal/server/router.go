package server

import (
	"context"
	"net/http"

	"almmr/internal/handlers"
	applog "almmr/internal/log"
	"almmr/internal/metrics"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("GET /healthz", handlers.Health)
	applog.Debug(context.Background(), "route registered", "path", "/healthz")
	mux.Handle("GET /metrics", metrics.Handler())
	applog.Debug(context.Background(), "route registered", "path", "/metrics")
	handlers.Register(mux, metrics.Instrument)
	return mux
}

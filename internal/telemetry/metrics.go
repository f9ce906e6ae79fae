/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/friendsincode/grimnir_sequencer/internal/version"
)

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Router serves /metrics and /healthz. It carries no sequence API.
func Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"status":"ok","version":%q}`, version.Version)
	})
	return otelhttp.NewHandler(r, "metrics")
}

// MetricsServer is the optional scrape endpoint for long-running commands.
type MetricsServer struct {
	srv    *http.Server
	ln     net.Listener
	logger zerolog.Logger
}

// StartMetricsServer listens on bind and serves Router in the background.
func StartMetricsServer(bind string, logger zerolog.Logger) (*MetricsServer, error) {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", bind, err)
	}

	ms := &MetricsServer{
		srv: &http.Server{
			Handler:           Router(),
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		ln:     ln,
		logger: logger.With().Str("component", "metrics").Logger(),
	}

	go func() {
		if err := ms.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ms.logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	ms.logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
	return ms, nil
}

// Addr returns the bound listen address.
func (m *MetricsServer) Addr() string {
	return m.ln.Addr().String()
}

// Shutdown stops the server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}

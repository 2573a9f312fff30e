// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/roomengine/internal/middleware"
)

// NewRouter builds the chi router for the room engine's HTTP and WebSocket
// surface, applying the shared middleware stack ahead of per-route rate
// limits.
func NewRouter(h *Handler, mwCfg *ChiMiddlewareConfig) http.Handler {
	mw := NewChiMiddleware(mwCfg)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestIDWithLogging())
	r.Use(mw.CORS())
	r.Use(APISecurityHeaders())
	r.Use(middleware.PrometheusMetrics)
	r.Use(E2EDebugLogging())

	r.Route("/healthz", func(r chi.Router) {
		r.Use(mw.RateLimitHealth())
		r.Get("/live", h.Live)
		r.Get("/ready", h.Ready)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/rooms", func(r chi.Router) {
		r.With(mw.RateLimitCreateRoom()).Post("/", h.CreateRoom)
		r.With(mw.RateLimitJoin()).Post("/join", h.JoinRoomByInviteCode)

		r.Route("/{roomID}", func(r chi.Router) {
			r.With(mw.RateLimitJoin()).Post("/join", h.JoinRoom)
			r.With(mw.RateLimit()).Get("/next", h.NextItem)
			r.With(mw.RateLimit()).Get("/progress", h.Progress)
			r.With(mw.RateLimitVote()).Post("/votes", h.Vote)
			r.With(mw.RateLimitCustom(RateLimitWebSocket)).Get("/events", h.SubscribeRoomEvents)
		})
	})

	return r
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

/*
Package api provides the HTTP and WebSocket surface for the room engine.

It is the boundary between network clients and internal/room.Service: handlers
decode requests, delegate to the service, and translate apperr.Kind values
into HTTP status codes and JSON error bodies via ResponseWriter.

Key Components:

  - Router: chi route configuration and middleware stack integration
  - Handler: request handlers for room lifecycle endpoints
  - Response formatting: standardized JSON envelopes with request metadata
  - Error handling: apperr.Kind mapped to HTTP status with structured detail
  - Rate limiting: token-bucket limiting per IP via go-chi/httprate
  - CORS: configurable allowed origins for browser clients

Routes (/api/v1/):

  - POST   /rooms                     createRoom
  - POST   /rooms/{roomID}/join       joinRoom
  - GET    /rooms/{roomID}/next       nextItem
  - POST   /rooms/{roomID}/votes      vote
  - GET    /rooms/{roomID}/events     subscribeRoomEvents (WebSocket upgrade)
  - GET    /healthz/live, /healthz/ready  liveness and readiness probes
  - GET    /metrics                   Prometheus exposition

Usage Example:

	import (
	    "github.com/tomtom215/roomengine/internal/api"
	    "github.com/tomtom215/roomengine/internal/room"
	)

	svc := room.New(builder, store, catalog)
	handler := api.NewHandler(svc, store, feed, metadataClient, hub)
	router := api.NewRouter(handler, api.DefaultChiMiddlewareConfig())

	http.ListenAndServe(":8080", router)

Thread Safety:

All handlers are thread-safe and designed for concurrent request handling.
The underlying room.Service and storage.Store are safe for concurrent use.

Security:

  - Rate limiting per remote IP
  - CORS restricted to an explicit origin allowlist
  - Input validation at the handler boundary before calling into room.Service

See Also:

  - internal/room: room lifecycle orchestration (join, vote, admission)
  - internal/storage: durable state and optimistic-concurrency primitives
  - internal/notify: match event fan-out consumed by subscribeRoomEvents
*/
package api

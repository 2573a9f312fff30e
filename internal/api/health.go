// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/roomengine/internal/storage"
)

// healthcheckKey is never written; Get returning ErrNotFound proves the
// store answered the read rather than hanging or erroring.
const healthcheckKey = "healthcheck:ping"

// Live reports whether the process is up, without touching storage.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(map[string]string{"status": "ok"})
}

// Ready reports whether the store answers reads, the change feed's
// connection is up, and the metadata client's circuit breaker is not open.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	_, err := h.store.Get(r.Context(), healthcheckKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		rw.ServiceUnavailable("storage unreachable")
		return
	}

	if h.feed != nil && !h.feed.Healthy(r.Context()) {
		rw.ServiceUnavailable("change feed unreachable")
		return
	}

	if h.metadata != nil && !h.metadata.Healthy() {
		rw.ServiceUnavailable("metadata client circuit open")
		return
	}

	rw.Success(map[string]string{"status": "ok"})
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

/*
Package middleware provides supplementary HTTP instrumentation that sits
alongside the Chi-native middleware in internal/api.

PrometheusMetrics wraps a handler to record the inbound API request
duration histogram and in-flight request gauge defined in internal/metrics,
keyed by the matched route pattern:

	r.Use(middleware.PrometheusMetrics)

Request ID propagation and structured request logging are handled by
internal/api's RequestIDWithLogging, which layers chi's own RequestID
middleware with this project's logging context; that responsibility does
not live here.
*/
package middleware

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

// Package metadata is the room engine's sole external-network surface: an
// HTTP client to the movie/TV metadata provider, with rate limiting, retry,
// and circuit breaking so every other component can treat it as a reliable
// local call.
package metadata

import (
	"context"

	"github.com/tomtom215/roomengine/internal/roomtypes"
)

// GenreExpr selects how a discover call combines the caller's genre list.
type GenreExpr int

const (
	// GenreAll requires every specified genre to be present (strict tier).
	GenreAll GenreExpr = iota
	// GenreAny requires at least one specified genre (permissive tier).
	GenreAny
	// GenreNone applies no genre constraint (popular tier).
	GenreNone
)

// DiscoverRequest parameterizes one page of the discover endpoint.
type DiscoverRequest struct {
	MediaType roomtypes.MediaType
	Genres    []int
	Expr      GenreExpr
	Page      int
}

// RawItem is a single candidate record as returned by the provider, before
// the Pool Builder's quality gate runs. Movie-only and TV-only fields are
// both present so the gate can detect cross-type contamination.
type RawItem struct {
	ID               int     `json:"id"`
	Title            string  `json:"title,omitempty"`          // movie only
	Name             string  `json:"name,omitempty"`           // tv only
	ReleaseDate      string  `json:"release_date,omitempty"`   // movie only
	FirstAirDate     string  `json:"first_air_date,omitempty"` // tv only
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	OriginalLanguage string  `json:"original_language"`
	GenreIDs         []int   `json:"genre_ids"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Adult            bool    `json:"adult"`
}

// DiscoverResult is one page of a discover response.
type DiscoverResult struct {
	Page         int
	TotalPages   int
	TotalResults int
	Items        []RawItem
}

// Genre is a single provider-defined genre identifier/name pair.
type Genre struct {
	ID   int
	Name string
}

// Client is the metadata provider contract. Implementations must enforce
// the movie/TV endpoint exclusivity, rate limiting, retry, and
// circuit-breaking themselves; callers see only Discover and GenresFor,
// plus Healthy for readiness checks.
type Client interface {
	Discover(ctx context.Context, req DiscoverRequest) (*DiscoverResult, error)
	GenresFor(ctx context.Context, mediaType roomtypes.MediaType) ([]Genre, error)

	// Healthy reports whether the client's circuit breaker is not open,
	// for use by readiness checks. It never makes an outbound call.
	Healthy() bool
}

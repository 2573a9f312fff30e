// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package pool

import (
	"strings"

	"github.com/tomtom215/roomengine/internal/config"
	"github.com/tomtom215/roomengine/internal/metadata"
	"github.com/tomtom215/roomengine/internal/roomtypes"
)

// typeShapeOK rejects cross-type contamination: a movie endpoint item
// carrying TV-shaped fields (or vice versa) fails regardless of every other
// quality-gate condition.
func typeShapeOK(item metadata.RawItem, mediaType roomtypes.MediaType) bool {
	switch mediaType {
	case roomtypes.MediaMovie:
		return item.Title != "" && item.ReleaseDate != "" && item.Name == "" && item.FirstAirDate == ""
	case roomtypes.MediaTV:
		return item.Name != "" && item.FirstAirDate != "" && item.Title == "" && item.ReleaseDate == ""
	default:
		return false
	}
}

func isWesternLanguage(lang string, allowed []string) bool {
	for _, l := range allowed {
		if l == lang {
			return true
		}
	}
	return false
}

func containsAny(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// passesQualityGate is the immutable predicate every candidate must satisfy
// to enter a catalog. It never mutates item or cfg.
func passesQualityGate(item metadata.RawItem, mediaType roomtypes.MediaType, cfg config.PoolConfig) bool {
	if !typeShapeOK(item, mediaType) {
		return false
	}

	overview := strings.TrimSpace(item.Overview)
	if len(overview) <= cfg.MinOverviewLength {
		return false
	}
	if containsAny(overview, cfg.PlaceholderOverviewPhrases) {
		return false
	}

	if item.PosterPath == "" {
		return false
	}
	if !isWesternLanguage(item.OriginalLanguage, cfg.WesternLanguages) {
		return false
	}
	if len(item.GenreIDs) == 0 {
		return false
	}
	if item.VoteAverage < 0 {
		return false
	}
	if item.Adult {
		return false
	}

	title := item.Title
	if mediaType == roomtypes.MediaTV {
		title = item.Name
	}
	if containsAny(title, cfg.InappropriateKeywords) || containsAny(overview, cfg.InappropriateKeywords) {
		return false
	}

	return true
}

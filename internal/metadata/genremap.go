// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package metadata

import "github.com/tomtom215/roomengine/internal/roomtypes"

// movieToTVGenre converts a movie-domain genre identifier to its TV-domain
// equivalent. Identifiers with no TV analogue pass through unchanged.
var movieToTVGenre = map[int]int{
	28:    10759, // Action -> Action & Adventure
	12:    10759, // Adventure -> Action & Adventure
	10752: 10768, // War -> War & Politics
	14:    10765, // Fantasy -> Sci-Fi & Fantasy
	878:   10765, // Science Fiction -> Sci-Fi & Fantasy
}

// normalizeGenres maps each genre identifier to the domain implied by
// mediaType. Movie identifiers pass through unchanged for MOVIE requests.
func normalizeGenres(mediaType roomtypes.MediaType, genres []int) []int {
	if mediaType != roomtypes.MediaTV {
		return genres
	}
	out := make([]int, len(genres))
	for i, g := range genres {
		if mapped, ok := movieToTVGenre[g]; ok {
			out[i] = mapped
		} else {
			out[i] = g
		}
	}
	return out
}

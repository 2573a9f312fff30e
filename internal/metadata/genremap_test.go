// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomtom215/roomengine/internal/roomtypes"
)

func TestNormalizeGenresPassesThroughForMovie(t *testing.T) {
	in := []int{28, 12, 878, 99}
	out := normalizeGenres(roomtypes.MediaMovie, in)
	assert.Equal(t, in, out)
}

func TestNormalizeGenresMapsKnownIDsForTV(t *testing.T) {
	out := normalizeGenres(roomtypes.MediaTV, []int{28, 12, 10752, 14, 878})
	assert.Equal(t, []int{10759, 10759, 10768, 10765, 10765}, out)
}

func TestNormalizeGenresPassesThroughUnmappedIDsForTV(t *testing.T) {
	out := normalizeGenres(roomtypes.MediaTV, []int{99, 10759})
	assert.Equal(t, []int{99, 10759}, out)
}

func TestNormalizeGenresEmptyInput(t *testing.T) {
	out := normalizeGenres(roomtypes.MediaTV, []int{})
	assert.Empty(t, out)
}

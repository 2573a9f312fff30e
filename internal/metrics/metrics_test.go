// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.CollectAndCount(APIRequestDuration)
	RecordAPIRequest("/rooms", "POST", 200, 10*time.Millisecond)
	after := testutil.CollectAndCount(APIRequestDuration)
	assert.GreaterOrEqual(t, after, 1)
	_ = before
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	assert.Equal(t, before+1, testutil.ToFloat64(APIActiveRequests))
	TrackActiveRequest(false)
	assert.Equal(t, before, testutil.ToFloat64(APIActiveRequests))
}

func TestMatchesCounterIncrement(t *testing.T) {
	before := testutil.ToFloat64(MatchesTotal)
	MatchesTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(MatchesTotal))
}

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTCNowHelpers(t *testing.T) {
	t.Run("UTCNowIsUTC", func(t *testing.T) {
		now := UTCNow()
		assert.Equal(t, time.UTC, now.Location())
	})

	t.Run("UTCNowAddShiftsForward", func(t *testing.T) {
		later := UTCNowAdd(time.Hour)
		assert.True(t, later.After(UTCNow()))
	})

	t.Run("UTCNowRFC3339RoundTrips", func(t *testing.T) {
		stamp := UTCNowRFC3339()
		_, err := time.Parse(time.RFC3339, stamp)
		require.NoError(t, err)
	})

	t.Run("UTCNowFormatUsesLayout", func(t *testing.T) {
		stamp := UTCNowFormat("20060102")
		assert.Len(t, stamp, 8)
	})

	t.Run("UTCNowUnixMatchesWallClock", func(t *testing.T) {
		assert.InDelta(t, time.Now().Unix(), UTCNowUnix(), 2)
	})
}

func TestIsExpired(t *testing.T) {
	assert.True(t, IsExpired(UTCNowAdd(-time.Minute)))
	assert.False(t, IsExpired(UTCNowAdd(time.Minute)))
}

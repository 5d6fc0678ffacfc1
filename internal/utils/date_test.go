package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "2024-13-01", "01/03/2024", "2024-03-01T10:00:00Z"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestWindowInclusiveBounds(t *testing.T) {
	end := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	start, stop := Window(end, 5)

	assert.Equal(t, "2024-03-05", FormatDate(start))
	assert.Equal(t, "2024-03-10", FormatDate(stop))

	assert.True(t, InWindow(start, start, stop))
	assert.True(t, InWindow(stop, start, stop))
	assert.False(t, InWindow(start.AddDate(0, 0, -1), start, stop))
	assert.False(t, InWindow(stop.AddDate(0, 0, 1), start, stop))
}

func TestWindowAcrossMonthBoundary(t *testing.T) {
	start, _ := Window(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), 5)
	assert.Equal(t, "2024-02-26", FormatDate(start))
}

package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) Timetable {
	t.Helper()
	return NewTimetable(time.UTC)
}

func TestPeriodEndNeverBeforeStart(t *testing.T) {
	tt := testTable(t)
	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	for p := PeriodMin; p <= PeriodMax; p++ {
		start := tt.StartAt(day, p)
		end := tt.EndAt(day, p)
		assert.False(t, end.Before(start), "period %d: end %v before start %v", p, end, start)
	}
}

func TestEventWindowOrdering(t *testing.T) {
	tt := testTable(t)
	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	for sp := PeriodMin; sp <= PeriodMax; sp++ {
		for ep := sp; ep <= PeriodMax; ep++ {
			start, end := tt.EventWindow(day, sp, ep)
			assert.False(t, end.Before(start), "window %d-%d", sp, ep)
		}
	}
}

func TestKnownPeriodTimes(t *testing.T) {
	tt := testTable(t)
	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	// Period 9 reflects the evening break offset.
	assert.Equal(t, time.Date(2025, 1, 10, 17, 30, 0, 0, time.UTC), tt.StartAt(day, 9))
	assert.Equal(t, time.Date(2025, 1, 10, 18, 25, 0, 0, time.UTC), tt.EndAt(day, 9))

	// Period 2 ends at 09:00 — the attendance cutoff for the 1-2 scenario.
	assert.Equal(t, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), tt.EndAt(day, 2))
}

func TestUnknownPeriodFallsBackToDayBounds(t *testing.T) {
	tt := testTable(t)
	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	for _, p := range []int{0, 13, -1, 99} {
		assert.Equal(t, time.Date(2025, 1, 10, 7, 0, 0, 0, time.UTC), tt.StartAt(day, p), "start fallback for %d", p)
		assert.Equal(t, time.Date(2025, 1, 10, 21, 25, 0, 0, time.UTC), tt.EndAt(day, p), "end fallback for %d", p)
	}
}

func TestValidPeriod(t *testing.T) {
	assert.True(t, ValidPeriod(1))
	assert.True(t, ValidPeriod(12))
	assert.False(t, ValidPeriod(0))
	assert.False(t, ValidPeriod(13))
}

func TestNewTimetableDefaultsToCampusLocation(t *testing.T) {
	tt := NewTimetable(nil)
	require.NotNil(t, tt.Location())
}

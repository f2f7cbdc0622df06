package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFloor(t *testing.T) {
	// 2025-08-27 was a Wednesday.
	wednesday := time.Date(2025, time.August, 27, 15, 42, 7, 0, time.UTC)

	tests := []struct {
		scope Scope
		want  time.Time
	}{
		{ScopeDay, date(2025, time.August, 27)},
		{ScopeWeek, date(2025, time.August, 25)},
		{ScopeMonth, date(2025, time.August, 1)},
		{ScopeYear, date(2025, time.January, 1)},
	}
	for _, tc := range tests {
		t.Run(string(tc.scope), func(t *testing.T) {
			assert.Equal(t, tc.want, Floor(tc.scope, wednesday))
		})
	}
}

func TestFloorWeekOnSunday(t *testing.T) {
	// 2025-08-31 is a Sunday; its ISO week starts the prior Monday.
	sunday := time.Date(2025, time.August, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, date(2025, time.August, 25), Floor(ScopeWeek, sunday))
}

func TestFloorUnknownScopePanics(t *testing.T) {
	assert.Panics(t, func() { Floor(Scope("fortnight"), time.Now()) })
}

func TestShiftLeapDay(t *testing.T) {
	feb28 := date(2020, time.February, 28)
	assert.Equal(t, date(2020, time.February, 29), Shift(feb28, ScopeDay, 1))
	assert.Equal(t, date(2020, time.March, 1), Shift(feb28, ScopeDay, 2))
}

func TestShiftBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		scope Scope
		delta int
		want  time.Time
	}{
		{"day across year end", date(2024, time.December, 31), ScopeDay, 1, date(2025, time.January, 1)},
		{"day backwards across month", date(2025, time.March, 1), ScopeDay, -1, date(2025, time.February, 28)},
		{"week across year end", date(2024, time.December, 30), ScopeWeek, 1, date(2025, time.January, 6)},
		{"month across year end", date(2024, time.November, 1), ScopeMonth, 2, date(2025, time.January, 1)},
		{"month backwards", date(2025, time.January, 1), ScopeMonth, -1, date(2024, time.December, 1)},
		{"year over leap year", date(2020, time.January, 1), ScopeYear, 1, date(2021, time.January, 1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Shift(tc.start, tc.scope, tc.delta))
		})
	}
}

func TestKey(t *testing.T) {
	d := date(2025, time.August, 1)
	assert.Equal(t, "2025-08-01", Key(ScopeDay, d))
	assert.Equal(t, "2025-W31", Key(ScopeWeek, d))
	assert.Equal(t, "2025-08", Key(ScopeMonth, d))
	assert.Equal(t, "2025", Key(ScopeYear, d))
}

func TestKeyISOWeekYearRollover(t *testing.T) {
	// 2024-12-30 is a Monday belonging to ISO week 1 of 2025.
	assert.Equal(t, "2025-W01", Key(ScopeWeek, date(2024, time.December, 30)))
	// 2021-01-01 belongs to ISO week 53 of 2020.
	assert.Equal(t, "2020-W53", Key(ScopeWeek, date(2021, time.January, 1)))
}

func TestWeekStart(t *testing.T) {
	// Week 1 contains January 4th.
	assert.Equal(t, date(2024, time.December, 30), WeekStart(2025, 1))
	assert.Equal(t, date(2020, time.December, 28), WeekStart(2020, 53))
	assert.Equal(t, date(2025, time.July, 28), WeekStart(2025, 31))
}

func TestParseKey(t *testing.T) {
	t.Run("round-trips with Key ordering", func(t *testing.T) {
		for _, scope := range Scopes {
			start := date(2024, time.December, 1)
			previous := int64(-1 << 62)
			for i := 0; i < 20; i++ {
				bucket := Shift(Floor(scope, start), scope, i)
				index, err := ParseKey(scope, Key(scope, bucket))
				require.NoError(t, err)
				assert.Greater(t, index, previous, "scope %s bucket %s", scope, Key(scope, bucket))
				previous = index
			}
		}
	})

	t.Run("consecutive days differ by one", func(t *testing.T) {
		a, err := ParseKey(ScopeDay, "2025-02-28")
		require.NoError(t, err)
		b, err := ParseKey(ScopeDay, "2025-03-01")
		require.NoError(t, err)
		assert.Equal(t, a+1, b)
	})

	t.Run("consecutive months differ by one across years", func(t *testing.T) {
		a, err := ParseKey(ScopeMonth, "2024-12")
		require.NoError(t, err)
		b, err := ParseKey(ScopeMonth, "2025-01")
		require.NoError(t, err)
		assert.Equal(t, a+1, b)
	})

	t.Run("weeks straddling the epoch stay distinct", func(t *testing.T) {
		// ISO Mondays are offset from the Unix epoch (1970-01-01 was a
		// Thursday), so the week index must floor, not truncate.
		w52, err := ParseKey(ScopeWeek, "1969-W52")
		require.NoError(t, err)
		w01, err := ParseKey(ScopeWeek, "1970-W01")
		require.NoError(t, err)
		w02, err := ParseKey(ScopeWeek, "1970-W02")
		require.NoError(t, err)
		assert.Equal(t, w52+1, w01)
		assert.Equal(t, w01+1, w02)
	})

	t.Run("week keys resolve the ISO Monday", func(t *testing.T) {
		a, err := ParseKey(ScopeWeek, "2024-W52")
		require.NoError(t, err)
		b, err := ParseKey(ScopeWeek, "2025-W01")
		require.NoError(t, err)
		assert.Equal(t, a+1, b)
	})

	t.Run("malformed keys error", func(t *testing.T) {
		_, err := ParseKey(ScopeDay, "2025/08/01")
		assert.Error(t, err)
		_, err = ParseKey(ScopeWeek, "2025-31")
		assert.Error(t, err)
		_, err = ParseKey(ScopeYear, "twenty")
		assert.Error(t, err)
	})
}

func TestWindows(t *testing.T) {
	// A known Wednesday: 2025-07-30, in ISO week 31 starting Monday
	// 2025-07-28.
	wednesday := time.Date(2025, time.July, 30, 12, 0, 0, 0, time.UTC)

	set := Windows(ScopeWeek, wednesday)
	require.Len(t, set.Windows, 13)
	assert.Equal(t, 10, set.CurrentIndex)

	current := set.Windows[set.CurrentIndex]
	assert.Equal(t, Key(ScopeWeek, date(2025, time.July, 28)), current.ID)
	assert.Equal(t, "2025-W31", current.ID)
	assert.Equal(t, date(2025, time.July, 28), current.Start)

	for i := 1; i < len(set.Windows); i++ {
		prev, next := set.Windows[i-1], set.Windows[i]
		assert.Equal(t, next.Start, prev.End.Add(time.Millisecond),
			"window %d must start one millisecond after window %d ends", i, i-1)
	}
}

func TestWindowsAllScopes(t *testing.T) {
	now := time.Date(2025, time.August, 29, 9, 30, 0, 0, time.UTC)
	for _, scope := range Scopes {
		t.Run(string(scope), func(t *testing.T) {
			set := Windows(scope, now)
			require.Len(t, set.Windows, 13)
			current := set.Windows[set.CurrentIndex]
			assert.Equal(t, Floor(scope, now), current.Start)
			assert.True(t, !now.Before(current.Start) && now.Before(current.End.Add(time.Millisecond)),
				"now must fall inside the current window")
			for _, w := range set.Windows {
				assert.Equal(t, Key(scope, w.Start), w.ID)
				assert.NotEmpty(t, w.Label)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Wed, Jul 30, 2025", Label(ScopeDay, date(2025, time.July, 30)))
	assert.Equal(t, "W31 (Jul 28–Aug 3)", Label(ScopeWeek, date(2025, time.July, 28)))
	assert.Equal(t, "July 2025", Label(ScopeMonth, date(2025, time.July, 1)))
	assert.Equal(t, "2025", Label(ScopeYear, date(2025, time.January, 1)))
}

func TestParseScope(t *testing.T) {
	scope, err := ParseScope(" Week ")
	require.NoError(t, err)
	assert.Equal(t, ScopeWeek, scope)

	_, err = ParseScope("decade")
	assert.Error(t, err)
}

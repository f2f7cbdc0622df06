package period

import (
	"fmt"
	"time"
)

// windowsBack and windowsAhead fix the shape of the sliding window the
// trackers render: ten past buckets, the current one, two upcoming.
const (
	windowsBack  = 10
	windowsAhead = 2
)

// Window is one bucket of a sliding window, carrying its canonical key,
// a human label, and its inclusive start/end instants.
type Window struct {
	ID    string
	Label string
	Start time.Time
	End   time.Time
}

// WindowSet is the sliding window around "now" for one scope.
// Windows[CurrentIndex] is the bucket containing now.
type WindowSet struct {
	Scope        Scope
	CurrentIndex int
	Windows      []Window
}

// Windows builds the 13-bucket sliding window around now. Consecutive
// windows tile the timeline: each End is the next Start minus one
// millisecond.
func Windows(scope Scope, now time.Time) WindowSet {
	current := Floor(scope, now)

	windows := make([]Window, 0, windowsBack+1+windowsAhead)
	for offset := -windowsBack; offset <= windowsAhead; offset++ {
		start := Shift(current, scope, offset)
		end := Shift(start, scope, 1).Add(-time.Millisecond)
		windows = append(windows, Window{
			ID:    Key(scope, start),
			Label: Label(scope, start),
			Start: start,
			End:   end,
		})
	}

	return WindowSet{
		Scope:        scope,
		CurrentIndex: windowsBack,
		Windows:      windows,
	}
}

// Label formats a bucket start for display: weekday and date for days,
// "W31 (Jul 28–Aug 3)" for weeks, the month name for months, and the
// year number for years.
func Label(scope Scope, start time.Time) string {
	switch scope {
	case ScopeDay:
		return start.Format("Mon, Jan 2, 2006")
	case ScopeWeek:
		_, week := start.ISOWeek()
		weekEnd := start.AddDate(0, 0, 6)
		return fmt.Sprintf("W%02d (%s–%s)", week, start.Format("Jan 2"), weekEnd.Format("Jan 2"))
	case ScopeMonth:
		return start.Format("January 2006")
	case ScopeYear:
		return start.Format("2006")
	}
	panic(badScope(scope))
}

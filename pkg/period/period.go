// Package period implements date-bucket arithmetic for recurring habits
// and trackers: flooring a point in time to the start of its day, week,
// month, or year bucket, shifting between buckets, and mapping buckets
// to and from canonical period keys. Weeks follow ISO 8601: they start
// on Monday and week 1 is the week containing January 4th.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Scope identifies the coarseness of a recurrence bucket.
type Scope string

// Recognized scopes.
const (
	ScopeDay   Scope = "day"
	ScopeWeek  Scope = "week"
	ScopeMonth Scope = "month"
	ScopeYear  Scope = "year"
)

// Scopes lists all recognized scopes in ascending coarseness.
var Scopes = []Scope{ScopeDay, ScopeWeek, ScopeMonth, ScopeYear}

// Valid reports whether s is a recognized scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeDay, ScopeWeek, ScopeMonth, ScopeYear:
		return true
	}
	return false
}

// ParseScope converts a string into a Scope.
func ParseScope(raw string) (Scope, error) {
	s := Scope(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown scope %q", raw)
	}
	return s, nil
}

// An unrecognized scope reaching the bucket math is a programming error,
// not a runtime condition, so the arithmetic functions panic on it.
func badScope(s Scope) string {
	return fmt.Sprintf("period: unknown scope %q", string(s))
}

// Floor truncates t down to the start of its bucket, in t's location.
// Week buckets start on the ISO Monday.
func Floor(scope Scope, t time.Time) time.Time {
	year, month, day := t.Date()
	loc := t.Location()

	switch scope {
	case ScopeDay:
		return time.Date(year, month, day, 0, 0, 0, 0, loc)
	case ScopeWeek:
		midnight := time.Date(year, month, day, 0, 0, 0, 0, loc)
		isoDow := int(midnight.Weekday())
		if isoDow == 0 {
			isoDow = 7 // Sunday
		}
		return midnight.AddDate(0, 0, -(isoDow - 1))
	case ScopeMonth:
		return time.Date(year, month, 1, 0, 0, 0, 0, loc)
	case ScopeYear:
		return time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	}
	panic(badScope(scope))
}

// Shift moves a bucket start by delta whole buckets. Delta may be
// negative. Day and week shifts cross month, year, and leap-day
// boundaries by plain calendar arithmetic.
func Shift(start time.Time, scope Scope, delta int) time.Time {
	switch scope {
	case ScopeDay:
		return start.AddDate(0, 0, delta)
	case ScopeWeek:
		return start.AddDate(0, 0, 7*delta)
	case ScopeMonth:
		return start.AddDate(0, delta, 0)
	case ScopeYear:
		return start.AddDate(delta, 0, 0)
	}
	panic(badScope(scope))
}

// Key formats the canonical period identifier for the bucket containing
// t: YYYY-MM-DD for days, YYYY-Www for ISO weeks, YYYY-MM for months,
// and YYYY for years.
func Key(scope Scope, t time.Time) string {
	switch scope {
	case ScopeDay:
		return t.Format("2006-01-02")
	case ScopeWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case ScopeMonth:
		return t.Format("2006-01")
	case ScopeYear:
		return t.Format("2006")
	}
	panic(badScope(scope))
}

const (
	secondsPerDay  = 24 * 60 * 60
	secondsPerWeek = 7 * secondsPerDay
)

// floorDiv divides rounding toward negative infinity, so indexes stay
// monotone across zero.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// WeekStart resolves the Monday starting ISO week `week` of `year`, in
// UTC. Week 1 is the week containing January 4th.
func WeekStart(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	dowMon0 := (int(jan4.Weekday()) + 6) % 7
	week1Monday := jan4.AddDate(0, 0, -dowMon0)
	return week1Monday.AddDate(0, 0, (week-1)*7)
}

// ParseKey maps a canonical period key back to a comparable numeric
// index: days since the epoch for day scope, whole weeks for week
// scope, months since year zero for month scope, and the year itself
// for year scope. Indexes of the same scope order the same way the
// underlying buckets do.
func ParseKey(scope Scope, key string) (int64, error) {
	switch scope {
	case ScopeDay:
		t, err := time.Parse("2006-01-02", key)
		if err != nil {
			return 0, fmt.Errorf("parse day key %q: %w", key, err)
		}
		return t.Unix() / secondsPerDay, nil
	case ScopeWeek:
		parts := strings.SplitN(key, "-W", 2)
		if len(parts) != 2 {
			return 0, fmt.Errorf("parse week key %q: missing -W separator", key)
		}
		year, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("parse week key %q: %w", key, err)
		}
		week, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("parse week key %q: %w", key, err)
		}
		// Week starts are congruent modulo a week but not aligned to the
		// epoch, so this must be floor division: truncation would merge
		// the weeks straddling 1970.
		return floorDiv(WeekStart(year, week).Unix(), secondsPerWeek), nil
	case ScopeMonth:
		t, err := time.Parse("2006-01", key)
		if err != nil {
			return 0, fmt.Errorf("parse month key %q: %w", key, err)
		}
		return int64(t.Year())*12 + int64(t.Month()) - 1, nil
	case ScopeYear:
		year, err := strconv.Atoi(key)
		if err != nil {
			return 0, fmt.Errorf("parse year key %q: %w", key, err)
		}
		return int64(year), nil
	}
	panic(badScope(scope))
}

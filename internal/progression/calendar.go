package progression

import "time"

// Day truncates t to midnight in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween counts calendar days from earlier to later in loc. It is
// DST-safe because it compares dates, not durations.
func DaysBetween(earlier, later time.Time, loc *time.Location) int {
	a := Day(earlier, loc)
	b := Day(later, loc)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// StreakStep is the outcome of recording activity on a calendar day.
type StreakStep struct {
	Current  int
	Longest  int
	Advanced bool
}

// AdvanceStreak applies one day of activity at now. A second call on the same
// calendar day leaves the streak untouched (Advanced=false). Activity exactly
// one day after last extends the streak; any other gap restarts it at 1.
func AdvanceStreak(current, longest int, last *time.Time, now time.Time, loc *time.Location) StreakStep {
	if last != nil {
		switch DaysBetween(*last, now, loc) {
		case 0:
			return StreakStep{Current: current, Longest: longest}
		case 1:
			current++
		default:
			current = 1
		}
	} else {
		current = 1
	}
	if current > longest {
		longest = current
	}
	return StreakStep{Current: current, Longest: longest, Advanced: true}
}

// CivilDate returns the calendar date of t in loc, expressed as midnight UTC.
// Civil dates compare safely with DaysBetween(a, b, time.UTC) regardless of
// the zone they came from, and round-trip through DATE columns unchanged.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package schedule

import "time"

// PeriodMin and PeriodMax bound the class periods a day is divided into.
const (
	PeriodMin = 1
	PeriodMax = 12
)

// clock is a wall-clock time of day.
type clock struct {
	Hour   int
	Minute int
}

// The start and end tables are intentionally independent: breaks between
// classes mean a period's end is not the next period's start (period 9
// starts 17:30 but ends 18:25).
var periodStarts = map[int]clock{
	1:  {7, 0},
	2:  {8, 0},
	3:  {9, 0},
	4:  {10, 0},
	5:  {13, 0},
	6:  {14, 0},
	7:  {15, 0},
	8:  {16, 0},
	9:  {17, 30},
	10: {18, 25},
	11: {19, 25},
	12: {20, 25},
}

var periodEnds = map[int]clock{
	1:  {8, 0},
	2:  {9, 0},
	3:  {10, 0},
	4:  {11, 0},
	5:  {14, 0},
	6:  {15, 0},
	7:  {16, 0},
	8:  {17, 0},
	9:  {18, 25},
	10: {19, 25},
	11: {20, 25},
	12: {21, 25},
}

// Fallbacks for out-of-table periods: first start and last end of the
// teaching day. Schema validation keeps periods in 1..12, so these only
// matter for rows predating that constraint.
var (
	fallbackStart = clock{7, 0}
	fallbackEnd   = clock{21, 25}
)

// Timetable resolves class periods to concrete timestamps in a fixed
// location. Built once at startup and passed in explicitly; the zero
// value is not usable.
type Timetable struct {
	loc *time.Location
}

// NewTimetable builds a timetable in the given location. A nil location
// falls back to the campus local time (Asia/Ho_Chi_Minh), or UTC if the
// tzdata is unavailable.
func NewTimetable(loc *time.Location) Timetable {
	if loc == nil {
		var err error
		loc, err = time.LoadLocation("Asia/Ho_Chi_Minh")
		if err != nil {
			loc = time.UTC
		}
	}
	return Timetable{loc: loc}
}

// Location returns the timetable's wall-clock location.
func (t Timetable) Location() *time.Location {
	return t.loc
}

// ValidPeriod reports whether p is a known class period.
func ValidPeriod(p int) bool {
	return p >= PeriodMin && p <= PeriodMax
}

// StartAt returns the wall-clock start of the given period on day.
func (t Timetable) StartAt(day time.Time, period int) time.Time {
	c, ok := periodStarts[period]
	if !ok {
		c = fallbackStart
	}
	return t.at(day, c)
}

// EndAt returns the wall-clock end of the given period on day.
func (t Timetable) EndAt(day time.Time, period int) time.Time {
	c, ok := periodEnds[period]
	if !ok {
		c = fallbackEnd
	}
	return t.at(day, c)
}

// EventWindow resolves an event's effective start and end timestamps
// from its day and period range.
func (t Timetable) EventWindow(day time.Time, startPeriod, endPeriod int) (time.Time, time.Time) {
	return t.StartAt(day, startPeriod), t.EndAt(day, endPeriod)
}

func (t Timetable) at(day time.Time, c clock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, t.loc)
}

package timegrid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Clock is a naive wall-clock time expressed as minutes since midnight.
type Clock int

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// ParseClock parses a strict HH:MM value with hour 00-23 and minute 00-59.
func ParseClock(raw string) (Clock, error) {
	m := clockPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, fmt.Errorf("time %q is not in HH:MM format", raw)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return Clock(h*60 + min), nil
}

// MustClock parses raw and panics on malformed input. Intended for constants.
func MustClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Day is an operating day of the week.
type Day string

const (
	Sunday    Day = "Sunday"
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
)

// OperatingDays lists the teaching week in calendar order.
var OperatingDays = []Day{Sunday, Monday, Tuesday, Wednesday, Thursday}

// ParseDay matches raw case-insensitively against days and returns the canonical name.
func ParseDay(raw string, days []Day) (Day, bool) {
	raw = strings.TrimSpace(raw)
	for _, d := range days {
		if strings.EqualFold(raw, string(d)) {
			return d, true
		}
	}
	return "", false
}

// Index returns the position of d in the calendar week (Sunday = 0), or -1.
func (d Day) Index() int {
	for i, od := range OperatingDays {
		if od == d {
			return i
		}
	}
	return -1
}

// Interval is the half-open range [Start, End).
type Interval struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// Minutes returns the interval length.
func (i Interval) Minutes() int {
	return int(i.End - i.Start)
}

// Contains reports whether c falls inside the interval.
func (i Interval) Contains(c Clock) bool {
	return i.Start <= c && c < i.End
}

// Overlaps reports whether two half-open intervals intersect: [a,b) and
// [c,d) intersect iff a < d and c < b. Touching endpoints do not overlap.
func Overlaps(x, y Interval) bool {
	return x.Start < y.End && y.Start < x.End
}

// String renders the interval as HH:MM-HH:MM.
func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

package timegrid

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/course-scheduling-api/pkg/config"
)

// Slot is one legal weekly meeting position.
type Slot struct {
	Day   Day   `json:"day_of_week"`
	Start Clock `json:"start_time"`
	End   Clock `json:"end_time"`
}

// Interval returns the slot's [Start, End) range.
func (s Slot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s", s.Day, s.Interval())
}

// Config holds the grid constants shared by the generator and the validator.
type Config struct {
	Window   Interval
	Duration time.Duration
	Gap      time.Duration
	Blocked  Interval
	Days     []Day
}

// DefaultConfig returns the standard teaching grid: 08:00-20:00, 50 minute
// meetings with a 10 minute gap, lunch blocked 11:50-13:00, Sunday to Thursday.
func DefaultConfig() Config {
	return Config{
		Window:   Interval{Start: MustClock("08:00"), End: MustClock("20:00")},
		Duration: 50 * time.Minute,
		Gap:      10 * time.Minute,
		Blocked:  Interval{Start: MustClock("11:50"), End: MustClock("13:00")},
		Days:     append([]Day(nil), OperatingDays...),
	}
}

// FromSettings builds a validated Config from environment backed settings.
// Empty values fall back to the defaults.
func FromSettings(s config.TimeGridConfig) (Config, error) {
	cfg := DefaultConfig()
	fields := []struct {
		raw    string
		target *Clock
		name   string
	}{
		{s.WindowStart, &cfg.Window.Start, "window start"},
		{s.WindowEnd, &cfg.Window.End, "window end"},
		{s.BlockedStart, &cfg.Blocked.Start, "blocked start"},
		{s.BlockedEnd, &cfg.Blocked.End, "blocked end"},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		c, err := ParseClock(f.raw)
		if err != nil {
			return Config{}, fmt.Errorf("timegrid %s: %w", f.name, err)
		}
		*f.target = c
	}
	if s.MeetingDuration > 0 {
		cfg.Duration = s.MeetingDuration
	}
	if s.SlotGap > 0 {
		cfg.Gap = s.SlotGap
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects constant sets the generator cannot honour. A failure here
// is a deployment mistake and stops startup.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Start >= c.Window.End {
		errs = append(errs, fmt.Errorf("window start %s must precede window end %s", c.Window.Start, c.Window.End))
	}
	if c.Duration <= 0 || c.Duration%time.Minute != 0 {
		errs = append(errs, fmt.Errorf("meeting duration %s must be a positive whole number of minutes", c.Duration))
	}
	if c.Gap < 0 || c.Gap%time.Minute != 0 {
		errs = append(errs, fmt.Errorf("slot gap %s must be a non-negative whole number of minutes", c.Gap))
	}
	if c.Blocked.Start > c.Blocked.End {
		errs = append(errs, fmt.Errorf("blocked start %s must not follow blocked end %s", c.Blocked.Start, c.Blocked.End))
	}
	if c.Window.Start < c.Window.End && c.Duration > 0 && c.durationMinutes() > c.Window.Minutes() {
		errs = append(errs, fmt.Errorf("meeting duration %s exceeds the operating window", c.Duration))
	}
	if len(c.Days) == 0 {
		errs = append(errs, errors.New("at least one operating day is required"))
	}
	for _, d := range c.Days {
		if d.Index() < 0 {
			errs = append(errs, fmt.Errorf("unknown operating day %q", d))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid timegrid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) durationMinutes() int {
	return int(c.Duration / time.Minute)
}

func (c Config) gapMinutes() int {
	return int(c.Gap / time.Minute)
}

// Generate walks a cursor across each operating day and emits every slot
// that fits the window without touching the blocked interval. The result is
// ordered by day then start time and is identical for identical Config.
func Generate(cfg Config) []Slot {
	slots := make([]Slot, 0, len(cfg.Days)*cfg.SlotsPerDay())
	for _, day := range cfg.Days {
		slots = append(slots, cfg.generateDay(day)...)
	}
	return slots
}

// SlotsPerDay reports how many slots Generate emits for a single day.
func (c Config) SlotsPerDay() int {
	return len(c.generateDay(Sunday))
}

func (c Config) generateDay(day Day) []Slot {
	dur := Clock(c.durationMinutes())
	if dur <= 0 {
		return nil
	}
	step := dur + Clock(c.gapMinutes())

	var slots []Slot
	cursor := c.Window.Start
	for {
		if c.intersectsBlocked(Interval{Start: cursor, End: cursor + dur}) {
			cursor = c.Blocked.End
		}
		end := cursor + dur
		if end > c.Window.End {
			return slots
		}
		slots = append(slots, Slot{Day: day, Start: cursor, End: end})
		cursor += step
	}
}

func (c Config) intersectsBlocked(i Interval) bool {
	if c.Blocked.Start == c.Blocked.End {
		return false
	}
	return c.Blocked.Contains(i.Start) || Overlaps(i, c.Blocked)
}

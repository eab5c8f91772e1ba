package timegrid

import "fmt"

// Rule names the slot check that rejected a meeting.
type Rule string

const (
	RuleDay      Rule = "DAY"
	RuleFormat   Rule = "FORMAT"
	RuleDuration Rule = "DURATION"
	RuleWindow   Rule = "WINDOW"
	RuleBlocked  Rule = "BLOCKED"
)

// SlotError describes the first rule a proposed meeting failed.
type SlotError struct {
	Rule    Rule
	Day     string
	Start   string
	End     string
	Message string
}

func (e *SlotError) Error() string {
	return e.Message
}

// Validator applies the slot rules against one Config. It is pure and safe
// for concurrent use.
type Validator struct {
	cfg Config
}

// NewValidator binds a validator to cfg.
func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Config returns the constants the validator enforces.
func (v *Validator) Config() Config {
	return v.cfg
}

// Validate checks a raw (day, start, end) triple. Rules run in order and the
// first failure is returned. On success the parsed Slot is returned.
func (v *Validator) Validate(day, start, end string) (Slot, error) {
	d, err := v.CheckDay(day)
	if err != nil {
		return Slot{}, err
	}
	s, e, err := v.CheckFormat(day, start, end)
	if err != nil {
		return Slot{}, err
	}
	slot := Slot{Day: d, Start: s, End: e}
	if err := v.CheckDuration(slot); err != nil {
		return Slot{}, err
	}
	if err := v.CheckWindow(slot); err != nil {
		return Slot{}, err
	}
	if err := v.CheckBlocked(slot); err != nil {
		return Slot{}, err
	}
	return slot, nil
}

// ValidateSlot runs the time based rules against an already parsed slot.
func (v *Validator) ValidateSlot(slot Slot) error {
	if _, err := v.CheckDay(string(slot.Day)); err != nil {
		return err
	}
	if err := v.CheckDuration(slot); err != nil {
		return err
	}
	if err := v.CheckWindow(slot); err != nil {
		return err
	}
	return v.CheckBlocked(slot)
}

// CheckDay accepts only configured operating days.
func (v *Validator) CheckDay(day string) (Day, error) {
	d, ok := ParseDay(day, v.cfg.Days)
	if !ok {
		return "", &SlotError{Rule: RuleDay, Day: day, Message: fmt.Sprintf("%q is not an operating day", day)}
	}
	return d, nil
}

// CheckFormat parses start and end as strict HH:MM.
func (v *Validator) CheckFormat(day, start, end string) (Clock, Clock, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, 0, &SlotError{Rule: RuleFormat, Day: day, Start: start, End: end, Message: fmt.Sprintf("start %s", err)}
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, 0, &SlotError{Rule: RuleFormat, Day: day, Start: start, End: end, Message: fmt.Sprintf("end %s", err)}
	}
	return s, e, nil
}

// CheckDuration requires the meeting to last exactly the configured duration.
func (v *Validator) CheckDuration(slot Slot) error {
	if slot.Interval().Minutes() != v.cfg.durationMinutes() {
		return v.fail(RuleDuration, slot, fmt.Sprintf("meeting must last exactly %d minutes", v.cfg.durationMinutes()))
	}
	return nil
}

// CheckWindow requires start >= window start and end <= window end.
func (v *Validator) CheckWindow(slot Slot) error {
	if slot.Start < v.cfg.Window.Start || slot.End > v.cfg.Window.End {
		return v.fail(RuleWindow, slot, fmt.Sprintf("meeting must fall within %s", v.cfg.Window))
	}
	return nil
}

// CheckBlocked rejects any meeting whose [start,end) touches the blocked interval.
func (v *Validator) CheckBlocked(slot Slot) error {
	if v.cfg.Blocked.Start < v.cfg.Blocked.End && Overlaps(slot.Interval(), v.cfg.Blocked) {
		return v.fail(RuleBlocked, slot, fmt.Sprintf("meeting intersects the blocked interval %s", v.cfg.Blocked))
	}
	return nil
}

func (v *Validator) fail(rule Rule, slot Slot, msg string) error {
	return &SlotError{
		Rule:    rule,
		Day:     string(slot.Day),
		Start:   slot.Start.String(),
		End:     slot.End.String(),
		Message: msg,
	}
}

package market

import "time"

// Calendar reports whether a market accepts trading at a given instant.
type Calendar interface {
	IsOpen(t time.Time) bool
}

// AlwaysOpen is a Calendar with no closed sessions.
type AlwaysOpen struct{}

func (AlwaysOpen) IsOpen(time.Time) bool { return true }

// ForexCalendar follows the retail FX week: closed all Saturday, closed from
// Friday 16:00 until Sunday 17:00 exchange local time, open otherwise.
// A nil Location evaluates t in its own location.
type ForexCalendar struct {
	Location *time.Location
}

func (c ForexCalendar) IsOpen(t time.Time) bool {
	if c.Location != nil {
		t = t.In(c.Location)
	}
	if !c.DateIsOpen(t) {
		return false
	}
	switch t.Weekday() {
	case time.Friday:
		return t.Hour() < 16
	case time.Sunday:
		return t.Hour() >= 17
	}
	return true
}

// DateIsOpen reports whether any session trades on t's calendar day.
func (c ForexCalendar) DateIsOpen(t time.Time) bool {
	if c.Location != nil {
		t = t.In(c.Location)
	}
	return t.Weekday() != time.Saturday
}

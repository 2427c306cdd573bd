package scheduling

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Scheduler decides whether a submission can settle today or rolls to the next business day.
type Scheduler struct {
	cutoffHour   int
	cutoffMinute int
	loc          *time.Location
	holidays     map[string]struct{}
}

// NewScheduler builds a scheduler from an "HH:MM" cutoff, an IANA zone and YYYY-MM-DD holidays.
func NewScheduler(cutoff, timezone string, holidays []string) (*Scheduler, error) {
	t, err := time.Parse("15:04", cutoff)
	if err != nil {
		return nil, fmt.Errorf("invalid cutoff time %q: %w", cutoff, err)
	}

	loc := time.UTC
	if timezone != "" {
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid cutoff timezone %q: %w", timezone, err)
		}
	}

	s := &Scheduler{
		cutoffHour:   t.Hour(),
		cutoffMinute: t.Minute(),
		loc:          loc,
		holidays:     make(map[string]struct{}, len(holidays)),
	}
	for _, h := range holidays {
		if h == "" {
			continue
		}
		d, err := time.Parse(dateLayout, h)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", h, err)
		}
		s.holidays[d.Format(dateLayout)] = struct{}{}
	}
	return s, nil
}

// IsBusinessDay reports whether the calendar day of t (in the scheduler's zone) settles.
func (s *Scheduler) IsBusinessDay(t time.Time) bool {
	local := t.In(s.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := s.holidays[local.Format(dateLayout)]
	return !holiday
}

// ScheduleNextBusinessDay is true when now is on a non-business day or strictly after the cutoff.
func (s *Scheduler) ScheduleNextBusinessDay(now time.Time) bool {
	if !s.IsBusinessDay(now) {
		return true
	}
	local := now.In(s.loc)
	cutoff := time.Date(local.Year(), local.Month(), local.Day(), s.cutoffHour, s.cutoffMinute, 0, 0, s.loc)
	return local.After(cutoff)
}

// NextBusinessDay returns the first business day strictly after the day of t.
func (s *Scheduler) NextBusinessDay(t time.Time) time.Time {
	local := t.In(s.loc)
	d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	for {
		d = d.AddDate(0, 0, 1)
		if s.IsBusinessDay(d) {
			return d
		}
	}
}

// Schedule returns the frozen scheduling flag and the execution date for a submission at now.
func (s *Scheduler) Schedule(now time.Time) (bool, string) {
	if s.ScheduleNextBusinessDay(now) {
		return true, s.NextBusinessDay(now).Format(dateLayout)
	}
	return false, now.In(s.loc).Format(dateLayout)
}

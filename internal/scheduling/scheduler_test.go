package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestScheduleNextBusinessDay(t *testing.T) {
	s, err := NewScheduler("16:00", "UTC", []string{"2024-12-25", "2024-12-26"})
	require.NoError(t, err)

	cases := []struct {
		name     string
		now      string
		deferred bool
		execDate string
	}{
		{"friday morning", "2024-03-15T09:30:00Z", false, "2024-03-15"},
		{"friday exactly at cutoff", "2024-03-15T16:00:00Z", false, "2024-03-15"},
		{"friday after cutoff", "2024-03-15T16:00:01Z", true, "2024-03-18"},
		{"saturday", "2024-03-16T10:00:00Z", true, "2024-03-18"},
		{"sunday", "2024-03-17T23:59:00Z", true, "2024-03-18"},
		{"christmas eve late", "2024-12-24T17:00:00Z", true, "2024-12-27"},
		{"christmas day", "2024-12-25T08:00:00Z", true, "2024-12-27"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now := at(tc.now)
			assert.Equal(t, tc.deferred, s.ScheduleNextBusinessDay(now))
			deferred, execDate := s.Schedule(now)
			assert.Equal(t, tc.deferred, deferred)
			assert.Equal(t, tc.execDate, execDate)
		})
	}
}

func TestSchedulerUsesConfiguredZone(t *testing.T) {
	s, err := NewScheduler("16:00", "", nil)
	require.NoError(t, err)

	// 15:30 at UTC+2 is 13:30 UTC, still before the UTC cutoff
	now := at("2024-03-15T15:30:00+02:00")
	assert.False(t, s.ScheduleNextBusinessDay(now))

	// 17:30 at UTC+0 even though the caller's zone says 11:30
	now = at("2024-03-15T11:30:00-06:00")
	assert.True(t, s.ScheduleNextBusinessDay(now))
}

func TestIsBusinessDay(t *testing.T) {
	s, err := NewScheduler("16:00", "UTC", []string{"2024-03-18"})
	require.NoError(t, err)

	assert.True(t, s.IsBusinessDay(at("2024-03-15T00:00:00Z")))
	assert.False(t, s.IsBusinessDay(at("2024-03-16T00:00:00Z")))
	assert.False(t, s.IsBusinessDay(at("2024-03-18T12:00:00Z")))
	assert.Equal(t, "2024-03-19", s.NextBusinessDay(at("2024-03-15T12:00:00Z")).Format(dateLayout))
}

func TestNewSchedulerRejectsBadInput(t *testing.T) {
	_, err := NewScheduler("25:99", "UTC", nil)
	assert.Error(t, err)

	_, err = NewScheduler("16:00", "Not/AZone", nil)
	assert.Error(t, err)

	_, err = NewScheduler("16:00", "UTC", []string{"15/03/2024"})
	assert.Error(t, err)
}

package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

func TestExport(t *testing.T) {
	s := model.Schedule{
		ID:   "review",
		Name: "Sprint review",
		Recurrence: recurrence.Config{
			Pattern:    recurrence.PatternWeekly,
			Interval:   2,
			StartDate:  day(2024, time.January, 1),
			WeeklyDays: mo.Some([]recurrence.WeekDay{recurrence.Monday, recurrence.Wednesday}),
		},
	}
	dates := recurrence.GenerateRecurringDates(s.Recurrence, 4)
	stamp := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

	out := Export(s, dates, stamp)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 4)

	uids := make(map[string]bool)
	for i, ev := range events {
		start, err := ev.GetAllDayStartAt()
		require.NoError(t, err)
		assert.Equal(t, recurrence.FormatDate(dates[i]), recurrence.FormatDate(recurrence.DateOf(start)))
		assert.Equal(t, "Sprint review", ev.GetProperty(ical.ComponentPropertySummary).Value)
		uids[ev.Id()] = true
	}
	assert.Len(t, uids, 4, "UIDs must be unique per occurrence")

	hint := events[0].GetProperty(propertyRRule)
	require.NotNil(t, hint)
	assert.Contains(t, hint.Value, "FREQ=WEEKLY")
	assert.Nil(t, events[1].GetProperty(propertyRRule))
}

func TestExport_StableUIDs(t *testing.T) {
	s := model.Schedule{
		ID:         "rent",
		Recurrence: recurrence.Config{Pattern: recurrence.PatternMonthly, Interval: 1, StartDate: day(2024, time.January, 1)},
	}
	dates := recurrence.GenerateRecurringDates(s.Recurrence, 2)

	a := Export(s, dates, time.Unix(0, 0))
	b := Export(s, dates, time.Unix(0, 0))
	assert.Equal(t, a, b)

	occ := model.Occurrences(s, dates)
	assert.NotEqual(t, OccurrenceUID(occ[0]), OccurrenceUID(occ[1]))
	assert.Contains(t, a, OccurrenceUID(occ[0]))
}

func TestExport_InvalidScheduleHasNoHint(t *testing.T) {
	s := model.Schedule{ID: "broken", Recurrence: recurrence.Config{Pattern: recurrence.PatternDaily}}

	out := Export(s, nil, time.Unix(0, 0))

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
	assert.NotContains(t, out, string(propertyRRule))
}

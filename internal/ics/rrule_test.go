package ics

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	"recurcal/internal/recurrence"
)

func day(y int, m time.Month, d int) time.Time {
	return recurrence.Date(y, m, d)
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = recurrence.FormatDate(d)
	}
	return out
}

var crossCheckConfigs = map[string]recurrence.Config{
	"daily every third day": {
		Pattern: recurrence.PatternDaily, Interval: 3, StartDate: day(2024, time.January, 1),
	},
	"weekly same weekday": {
		Pattern: recurrence.PatternWeekly, Interval: 2, StartDate: day(2024, time.January, 3),
	},
	"bi-weekly monday and wednesday": {
		Pattern: recurrence.PatternWeekly, Interval: 2, StartDate: day(2024, time.January, 1),
		WeeklyDays: mo.Some([]recurrence.WeekDay{recurrence.Wednesday, recurrence.Monday}),
	},
	"weekly start outside selected days": {
		Pattern: recurrence.PatternWeekly, Interval: 3, StartDate: day(2024, time.January, 6),
		WeeklyDays: mo.Some([]recurrence.WeekDay{recurrence.Tuesday, recurrence.Thursday}),
	},
	"monthly on the 31st": {
		Pattern: recurrence.PatternMonthly, Interval: 1, StartDate: day(2024, time.January, 31),
		MonthlyPattern: mo.Some(recurrence.MonthlySameDate),
	},
	"quarterly on the 30th": {
		Pattern: recurrence.PatternMonthly, Interval: 3, StartDate: day(2023, time.November, 30),
	},
	"monthly second tuesday": {
		Pattern: recurrence.PatternMonthly, Interval: 1, StartDate: day(2024, time.January, 1),
		MonthlyPattern: mo.Some(recurrence.MonthlyDayOfWeek),
		MonthlyOrdinal: mo.Some(recurrence.Second),
		MonthlyWeekDay: mo.Some(recurrence.Tuesday),
	},
	"bi-monthly first monday after it passed": {
		Pattern: recurrence.PatternMonthly, Interval: 2, StartDate: day(2024, time.January, 20),
		MonthlyPattern: mo.Some(recurrence.MonthlyDayOfWeek),
		MonthlyOrdinal: mo.Some(recurrence.First),
		MonthlyWeekDay: mo.Some(recurrence.Monday),
	},
	"monthly last friday": {
		Pattern: recurrence.PatternMonthly, Interval: 1, StartDate: day(2025, time.January, 1),
		MonthlyPattern: mo.Some(recurrence.MonthlyDayOfWeek),
		MonthlyOrdinal: mo.Some(recurrence.Last),
		MonthlyWeekDay: mo.Some(recurrence.Friday),
	},
	"yearly leap day": {
		Pattern: recurrence.PatternYearly, Interval: 1, StartDate: day(2024, time.February, 29),
	},
	"yearly every other year": {
		Pattern: recurrence.PatternYearly, Interval: 2, StartDate: day(2024, time.July, 4),
	},
}

func TestROptionFor_MatchesGenerator(t *testing.T) {
	const n = 24

	for name, cfg := range crossCheckConfigs {
		t.Run(name, func(t *testing.T) {
			opt, err := ROptionFor(cfg)
			require.NoError(t, err)

			opt.Count = n
			r, err := rrule.NewRRule(opt)
			require.NoError(t, err)

			want := formatDates(recurrence.GenerateRecurringDates(cfg, n))
			assert.Equal(t, want, formatDates(r.All()))
		})
	}
}

func TestROptionFor_MatchesGeneratorInMidnightDSTZone(t *testing.T) {
	loc, err := time.LoadLocation("America/Havana")
	require.NoError(t, err)
	prev := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = prev })

	const n = 24
	for name, cfg := range crossCheckConfigs {
		t.Run(name, func(t *testing.T) {
			opt, err := ROptionFor(cfg)
			require.NoError(t, err)

			opt.Count = n
			r, err := rrule.NewRRule(opt)
			require.NoError(t, err)

			assert.Equal(t, formatDates(recurrence.GenerateRecurringDates(cfg, n)), formatDates(r.All()))
		})
	}
}

func TestConfigFromRRule_RoundTrip(t *testing.T) {
	for name, cfg := range crossCheckConfigs {
		t.Run(name, func(t *testing.T) {
			opt, err := ROptionFor(cfg)
			require.NoError(t, err)

			back, err := ConfigFromRRule(opt.Dtstart, opt.RRuleString())
			require.NoError(t, err)
			require.True(t, recurrence.IsConfigValid(back))

			assert.Equal(t,
				formatDates(recurrence.GenerateRecurringDates(cfg, 30)),
				formatDates(recurrence.GenerateRecurringDates(back, 30)),
			)
		})
	}
}

func TestRRuleFor(t *testing.T) {
	cfg := crossCheckConfigs["monthly on the 31st"]
	cfg.EndDate = mo.Some(day(2024, time.June, 30))

	rule, err := RRuleFor(cfg)
	require.NoError(t, err)
	assert.Contains(t, rule, "FREQ=MONTHLY")
	assert.Contains(t, rule, "BYMONTHDAY=31,-1")
	assert.Contains(t, rule, "BYSETPOS=1")
	assert.Contains(t, rule, "UNTIL=")
	assert.NotContains(t, rule, "DTSTART")

	rule, err = RRuleFor(crossCheckConfigs["bi-weekly monday and wednesday"])
	require.NoError(t, err)
	assert.Contains(t, rule, "BYDAY=MO,WE")
}

func TestRRuleFor_RejectsInvalidConfig(t *testing.T) {
	_, err := RRuleFor(recurrence.Config{Pattern: recurrence.PatternDaily, Interval: 0, StartDate: day(2024, time.January, 1)})
	assert.Error(t, err)

	_, err = RRuleFor(recurrence.Config{Pattern: "hourly", Interval: 1, StartDate: day(2024, time.January, 1)})
	assert.ErrorIs(t, err, ErrUnsupportedRule)
}

func TestConfigFromRRule(t *testing.T) {
	start := day(2024, time.January, 1)

	cfg, err := ConfigFromRRule(start, "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE")
	require.NoError(t, err)
	assert.Equal(t, recurrence.PatternWeekly, cfg.Pattern)
	assert.Equal(t, 2, cfg.Interval)
	assert.Equal(t, []recurrence.WeekDay{recurrence.Monday, recurrence.Wednesday}, cfg.WeeklyDays.MustGet())

	cfg, err = ConfigFromRRule(start, "FREQ=MONTHLY;BYDAY=-1FR")
	require.NoError(t, err)
	assert.Equal(t, recurrence.Last, cfg.MonthlyOrdinal.MustGet())
	assert.Equal(t, recurrence.Friday, cfg.MonthlyWeekDay.MustGet())

	cfg, err = ConfigFromRRule(start, "FREQ=MONTHLY;BYDAY=TU;BYSETPOS=3")
	require.NoError(t, err)
	assert.Equal(t, recurrence.Third, cfg.MonthlyOrdinal.MustGet())
	assert.Equal(t, recurrence.Tuesday, cfg.MonthlyWeekDay.MustGet())

	cfg, err = ConfigFromRRule(start, "FREQ=DAILY;COUNT=5")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Interval)
	assert.Equal(t, "2024-01-05", recurrence.FormatDate(cfg.EndDate.MustGet()))
	assert.Len(t, recurrence.GenerateRecurringDates(cfg, 50), 5)
}

func TestConfigFromRRule_Unsupported(t *testing.T) {
	start := day(2024, time.January, 1)

	_, err := ConfigFromRRule(start, "FREQ=HOURLY")
	assert.ErrorIs(t, err, ErrUnsupportedRule)

	_, err = ConfigFromRRule(start, "FREQ=MONTHLY;BYDAY=MO,TU")
	assert.ErrorIs(t, err, ErrUnsupportedRule)

	_, err = ConfigFromRRule(start, "FREQ=MONTHLY;BYDAY=+5MO")
	assert.ErrorIs(t, err, ErrUnsupportedRule)

	_, err = ConfigFromRRule(start, "NOT A RULE")
	assert.Error(t, err)
}

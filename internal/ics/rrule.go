package ics

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"

	"recurcal/internal/recurrence"
)

// rruleWeekdays is indexed by time.Weekday (Sunday first).
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

var ordinalsByPosition = map[int]recurrence.Ordinal{
	1:  recurrence.First,
	2:  recurrence.Second,
	3:  recurrence.Third,
	4:  recurrence.Fourth,
	-1: recurrence.Last,
}

// ErrUnsupportedRule is returned for RRULEs that have no equivalent Config.
var ErrUnsupportedRule = errors.New("unsupported recurrence rule")

// ROptionFor builds the RFC 5545 rule that yields the same dates as
// recurrence.GenerateRecurringDates for cfg. cfg must be valid.
//
// Days of month past the 28th are encoded as BYMONTHDAY=d,-1;BYSETPOS=1 so
// that short months clamp to their last day instead of being skipped.
func ROptionFor(cfg recurrence.Config) (rrule.ROption, error) {
	if !recurrence.IsConfigValid(cfg) {
		return rrule.ROption{}, errors.New("rrule: recurrence config is not valid")
	}

	start := recurrence.DateOf(cfg.StartDate)

	// Anchor on the first real occurrence: RRULE intervals count from
	// DTSTART's period, the generator counts from the previous occurrence.
	dtstart := start
	if first := recurrence.GenerateRecurringDates(cfg, 1); len(first) > 0 {
		dtstart = first[0]
	}

	opt := rrule.ROption{
		Dtstart:  dtstart,
		Interval: cfg.Interval,
	}
	if end, ok := cfg.EndDate.Get(); ok && !end.IsZero() {
		opt.Until = recurrence.DateOf(end)
	}

	switch cfg.Pattern {
	case recurrence.PatternDaily:
		opt.Freq = rrule.DAILY

	case recurrence.PatternWeekly:
		opt.Freq = rrule.WEEKLY
		opt.Wkst = rrule.SU
		days := cfg.WeeklyDays.OrEmpty()
		set := make([]time.Weekday, 0, len(days))
		for _, d := range days {
			wd, ok := d.Weekday()
			if ok && !slices.Contains(set, wd) {
				set = append(set, wd)
			}
		}
		slices.Sort(set)
		for _, wd := range set {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[wd])
		}

	case recurrence.PatternMonthly:
		opt.Freq = rrule.MONTHLY
		if cfg.MonthlyPattern.OrEmpty() == recurrence.MonthlyDayOfWeek {
			wd, ok := cfg.MonthlyWeekDay.MustGet().Weekday()
			if !ok {
				return rrule.ROption{}, fmt.Errorf("rrule: unknown weekday %q", cfg.MonthlyWeekDay.MustGet())
			}
			day := rruleWeekdays[wd]
			opt.Byweekday = []rrule.Weekday{day.Nth(cfg.MonthlyOrdinal.MustGet().Position())}
			break
		}
		setMonthDay(&opt, start.Day())

	case recurrence.PatternYearly:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{int(start.Month())}
		setMonthDay(&opt, start.Day())

	default:
		return rrule.ROption{}, fmt.Errorf("rrule: %w: pattern %q", ErrUnsupportedRule, cfg.Pattern)
	}

	return opt, nil
}

func setMonthDay(opt *rrule.ROption, day int) {
	if day > 28 {
		opt.Bymonthday = []int{day, -1}
		opt.Bysetpos = []int{1}
		return
	}
	opt.Bymonthday = []int{day}
}

// RRuleFor returns the RRULE value (without DTSTART) for cfg.
func RRuleFor(cfg recurrence.Config) (string, error) {
	opt, err := ROptionFor(cfg)
	if err != nil {
		return "", err
	}
	return opt.RRuleString(), nil
}

// ConfigFromRRule maps an RRULE value anchored at dtstart onto a Config.
//
// Supported: FREQ=DAILY/WEEKLY/MONTHLY/YEARLY, INTERVAL, UNTIL, COUNT (turned
// into an end date), BYDAY as a weekday set for weekly rules or a single
// ordinal weekday for monthly rules. BYMONTHDAY and BYMONTH are taken from
// dtstart.
func ConfigFromRRule(dtstart time.Time, value string) (recurrence.Config, error) {
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return recurrence.Config{}, fmt.Errorf("rrule: parse %q: %w", value, err)
	}

	cfg := recurrence.Config{
		Interval:  max(opt.Interval, 1),
		StartDate: recurrence.DateOf(dtstart),
	}
	if !opt.Until.IsZero() {
		cfg.EndDate = mo.Some(recurrence.DateOf(opt.Until.In(dtstart.Location())))
	}

	switch opt.Freq {
	case rrule.DAILY:
		cfg.Pattern = recurrence.PatternDaily

	case rrule.WEEKLY:
		cfg.Pattern = recurrence.PatternWeekly
		if len(opt.Byweekday) > 0 {
			days := make([]recurrence.WeekDay, 0, len(opt.Byweekday))
			for i := range opt.Byweekday {
				days = append(days, weekDayFromRRule(opt.Byweekday[i]))
			}
			cfg.WeeklyDays = mo.Some(days)
		}

	case rrule.MONTHLY:
		cfg.Pattern = recurrence.PatternMonthly
		switch len(opt.Byweekday) {
		case 0:
			cfg.MonthlyPattern = mo.Some(recurrence.MonthlySameDate)
		case 1:
			wd := opt.Byweekday[0]
			n := wd.N()
			if n == 0 && len(opt.Bysetpos) == 1 {
				n = opt.Bysetpos[0]
			}
			ordinal, ok := ordinalsByPosition[n]
			if !ok {
				return recurrence.Config{}, fmt.Errorf("rrule: %w: monthly BYDAY position %d", ErrUnsupportedRule, n)
			}
			cfg.MonthlyPattern = mo.Some(recurrence.MonthlyDayOfWeek)
			cfg.MonthlyOrdinal = mo.Some(ordinal)
			cfg.MonthlyWeekDay = mo.Some(weekDayFromRRule(wd))
		default:
			return recurrence.Config{}, fmt.Errorf("rrule: %w: monthly rule with several weekdays", ErrUnsupportedRule)
		}

	case rrule.YEARLY:
		cfg.Pattern = recurrence.PatternYearly

	default:
		return recurrence.Config{}, fmt.Errorf("rrule: %w: FREQ=%v", ErrUnsupportedRule, opt.Freq)
	}

	if opt.Count > 0 {
		dates := recurrence.GenerateRecurringDates(cfg, opt.Count)
		if len(dates) > 0 {
			cfg.EndDate = mo.Some(dates[len(dates)-1])
		}
	}

	return cfg, nil
}

func weekDayFromRRule(wd rrule.Weekday) recurrence.WeekDay {
	// rrule counts Monday as 0.
	return recurrence.WeekDayOf(recurrence.Date(2024, time.January, 1+wd.Day()))
}

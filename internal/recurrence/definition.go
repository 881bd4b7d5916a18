package recurrence

import (
	"fmt"
	"time"

	"github.com/samber/mo"
)

// DateLayout is the textual form of calendar dates in definitions.
const DateLayout = "2006-01-02"

// Definition is the serializable form of a Config as it appears in config
// files and API requests. Dates are YYYY-MM-DD calendar days.
//
// WeeklyDays is a pointer so that an omitted list and an explicitly empty
// list decode differently.
type Definition struct {
	Pattern        RecurrencePattern `yaml:"pattern" json:"pattern"`
	Interval       int               `yaml:"interval" json:"interval"`
	StartDate      string            `yaml:"start_date" json:"start_date"`
	EndDate        string            `yaml:"end_date,omitempty" json:"end_date,omitempty"`
	WeeklyDays     *[]WeekDay        `yaml:"weekly_days,omitempty" json:"weekly_days,omitempty"`
	MonthlyPattern MonthlyPattern    `yaml:"monthly_pattern,omitempty" json:"monthly_pattern,omitempty"`
	MonthlyOrdinal Ordinal           `yaml:"monthly_ordinal,omitempty" json:"monthly_ordinal,omitempty"`
	MonthlyWeekDay WeekDay           `yaml:"monthly_weekday,omitempty" json:"monthly_weekday,omitempty"`
}

// ParseDate parses a YYYY-MM-DD date into the form returned by Date. An
// empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Config converts d into a Config. Only malformed dates are rejected; all
// other problems are left for ValidateConfig to report.
func (d Definition) Config() (Config, error) {
	start, err := ParseDate(d.StartDate)
	if err != nil {
		return Config{}, fmt.Errorf("start_date: %w", err)
	}

	cfg := Config{
		Pattern:   d.Pattern,
		Interval:  d.Interval,
		StartDate: start,
	}

	if d.EndDate != "" {
		end, err := ParseDate(d.EndDate)
		if err != nil {
			return Config{}, fmt.Errorf("end_date: %w", err)
		}
		cfg.EndDate = mo.Some(end)
	}

	if d.WeeklyDays != nil {
		days := make([]WeekDay, len(*d.WeeklyDays))
		copy(days, *d.WeeklyDays)
		cfg.WeeklyDays = mo.Some(days)
	}
	if d.MonthlyPattern != "" {
		cfg.MonthlyPattern = mo.Some(d.MonthlyPattern)
	}
	if d.MonthlyOrdinal != "" {
		cfg.MonthlyOrdinal = mo.Some(d.MonthlyOrdinal)
	}
	if d.MonthlyWeekDay != "" {
		cfg.MonthlyWeekDay = mo.Some(d.MonthlyWeekDay)
	}

	return cfg, nil
}

// DefinitionOf is the inverse of Definition.Config.
func DefinitionOf(cfg Config) Definition {
	d := Definition{
		Pattern:        cfg.Pattern,
		Interval:       cfg.Interval,
		MonthlyPattern: cfg.MonthlyPattern.OrEmpty(),
		MonthlyOrdinal: cfg.MonthlyOrdinal.OrEmpty(),
		MonthlyWeekDay: cfg.MonthlyWeekDay.OrEmpty(),
	}
	if !cfg.StartDate.IsZero() {
		d.StartDate = FormatDate(cfg.StartDate)
	}
	if end, ok := cfg.EndDate.Get(); ok && !end.IsZero() {
		d.EndDate = FormatDate(end)
	}
	if days, ok := cfg.WeeklyDays.Get(); ok {
		copied := make([]WeekDay, len(days))
		copy(copied, days)
		d.WeeklyDays = &copied
	}
	return d
}

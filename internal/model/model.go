package model

import (
	"time"

	"recurcal/internal/recurrence"
)

// Schedule is a named recurrence configuration, typically loaded from the
// config file or imported from an ICS feed.
type Schedule struct {
	ID   string
	Name string

	Recurrence recurrence.Config
}

// Preview is the outcome of validating a schedule and, when it is valid,
// expanding it into dates.
type Preview struct {
	Config recurrence.Config

	// GeneratedDates is empty when IsValid is false.
	GeneratedDates []time.Time
	IsValid        bool

	Findings []recurrence.ValidationError
	Errors   map[string]string
	Warnings map[string]string

	// ValidationErrors lists the messages of error-severity findings in
	// rule order.
	ValidationErrors []string
}

// NewPreview validates cfg and generates up to maxDates dates if no blocking
// error was found.
func NewPreview(cfg recurrence.Config, maxDates int) Preview {
	findings := recurrence.ValidateConfig(cfg)

	p := Preview{
		Config:           cfg,
		GeneratedDates:   []time.Time{},
		IsValid:          recurrence.IsConfigValid(cfg),
		Findings:         findings,
		Errors:           recurrence.ErrorMessages(findings),
		Warnings:         recurrence.WarningMessages(findings),
		ValidationErrors: []string{},
	}
	for _, f := range findings {
		if f.Severity == recurrence.SeverityError {
			p.ValidationErrors = append(p.ValidationErrors, f.Message)
		}
	}

	if p.IsValid {
		p.GeneratedDates = recurrence.GenerateRecurringDates(cfg, maxDates)
	}
	return p
}

// Occurrence is a single dated instance of a Schedule.
type Occurrence struct {
	ScheduleID string

	// InstanceKey uniquely identifies the occurrence within its schedule;
	// it is the date in YYYY-MM-DD form.
	InstanceKey string

	Date time.Time
}

// Occurrences pairs each generated date with its schedule.
func Occurrences(s Schedule, dates []time.Time) []Occurrence {
	out := make([]Occurrence, 0, len(dates))
	for _, d := range dates {
		out = append(out, Occurrence{
			ScheduleID:  s.ID,
			InstanceKey: recurrence.FormatDate(d),
			Date:        d,
		})
	}
	return out
}

package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// Field names used in findings.
const (
	FieldStartDate      = "startDate"
	FieldEndDate        = "endDate"
	FieldInterval       = "interval"
	FieldWeeklyDays     = "weeklyDays"
	FieldMonthlyOrdinal = "monthlyOrdinal"
	FieldMonthlyWeekDay = "monthlyWeekDay"
)

// MaxInterval is the largest interval accepted without a warning.
const MaxInterval = 365

const (
	msgStartDateRequired = "Start date is required"
	msgStartDateInPast   = "Start date is in the past"
	msgEndBeforeStart    = "End date must be after start date"
	msgIntervalPositive  = "Interval must be a positive number"
	msgIntervalTooLarge  = "Interval cannot exceed 365"
	msgWeeklyDaysEmpty   = "At least one day must be selected for weekly recurrence"
	msgOrdinalRequired   = "Ordinal position is required for monthly day-of-week pattern"
	msgWeekDayRequired   = "Weekday is required for monthly day-of-week pattern"
)

// now is the clock used for the past-start-date warning.
var now = time.Now

// FieldContext carries the parts of a partially filled Config that single
// field checks depend on.
type FieldContext struct {
	StartDate mo.Option[time.Time]
}

// ValidateConfig runs every rule against cfg and returns all findings in rule
// order. An empty result means cfg is fully valid.
func ValidateConfig(cfg Config) []ValidationError {
	findings := make([]ValidationError, 0)

	if cfg.StartDate.IsZero() {
		findings = append(findings, errorFinding(FieldStartDate, msgStartDateRequired))
	}

	if end, ok := cfg.EndDate.Get(); ok && !end.IsZero() && !cfg.StartDate.IsZero() {
		if !DateOf(end).After(DateOf(cfg.StartDate)) {
			findings = append(findings, errorFinding(FieldEndDate, msgEndBeforeStart))
		}
	}

	if cfg.Interval < 1 {
		findings = append(findings, errorFinding(FieldInterval, msgIntervalPositive))
	}
	if cfg.Interval > MaxInterval {
		findings = append(findings, warningFinding(FieldInterval, msgIntervalTooLarge))
	}

	if cfg.Pattern == PatternWeekly {
		if days, ok := cfg.WeeklyDays.Get(); ok && len(days) == 0 {
			findings = append(findings, errorFinding(FieldWeeklyDays, msgWeeklyDaysEmpty))
		}
	}

	if cfg.Pattern == PatternMonthly && cfg.MonthlyPattern.OrEmpty() == MonthlyDayOfWeek {
		if cfg.MonthlyOrdinal.OrEmpty() == "" {
			findings = append(findings, errorFinding(FieldMonthlyOrdinal, msgOrdinalRequired))
		}
		if cfg.MonthlyWeekDay.OrEmpty() == "" {
			findings = append(findings, errorFinding(FieldMonthlyWeekDay, msgWeekDayRequired))
		}
	}

	return findings
}

// ValidateField checks a single candidate value for live form feedback and
// returns nil when there is nothing to report. Unknown fields yield nil.
//
// Unlike ValidateConfig it warns about a start date earlier than today.
//
// Accepted value types: time.Time or *time.Time for dates, any Go integer or
// float for interval, []WeekDay, []string or a generically decoded []any for
// weeklyDays. nil means the value is missing.
func ValidateField(field string, value any, fctx FieldContext) *ValidationError {
	switch field {
	case FieldStartDate:
		return validateStartDate(value)
	case FieldEndDate:
		return validateEndDate(value, fctx.StartDate)
	case FieldInterval:
		return validateInterval(value)
	case FieldWeeklyDays:
		return validateWeeklyDays(value)
	default:
		return nil
	}
}

func validateStartDate(value any) *ValidationError {
	date, ok := asDate(value)
	if !ok {
		return ptr(errorFinding(FieldStartDate, msgStartDateRequired))
	}
	if date.Before(DateOf(now())) {
		return ptr(warningFinding(FieldStartDate, msgStartDateInPast))
	}
	return nil
}

func validateEndDate(value any, start mo.Option[time.Time]) *ValidationError {
	end, ok := asDate(value)
	if !ok {
		// optional
		return nil
	}
	startDate, ok := start.Get()
	if !ok || startDate.IsZero() {
		return nil
	}
	if !end.After(DateOf(startDate)) {
		return ptr(errorFinding(FieldEndDate, msgEndBeforeStart))
	}
	return nil
}

func validateInterval(value any) *ValidationError {
	n, ok := asNumber(value)
	if !ok || n < 1 {
		return ptr(errorFinding(FieldInterval, msgIntervalPositive))
	}
	if n > MaxInterval {
		return ptr(warningFinding(FieldInterval, msgIntervalTooLarge))
	}
	return nil
}

func validateWeeklyDays(value any) *ValidationError {
	var n int
	switch v := value.(type) {
	case []WeekDay:
		n = len(v)
	case []string:
		n = len(v)
	case []any:
		n = len(v)
	case mo.Option[[]WeekDay]:
		n = len(v.OrEmpty())
	}
	if n == 0 {
		return ptr(errorFinding(FieldWeeklyDays, msgWeeklyDaysEmpty))
	}
	return nil
}

// IsConfigValid reports whether ValidateConfig finds no error-severity
// problems. Warnings never invalidate a configuration.
func IsConfigValid(cfg Config) bool {
	for _, f := range ValidateConfig(cfg) {
		if f.Severity == SeverityError {
			return false
		}
	}
	return true
}

// ErrorMessages maps each field to the message of its error findings. A later
// finding for the same field overwrites an earlier one.
func ErrorMessages(findings []ValidationError) map[string]string {
	return messagesBySeverity(findings, SeverityError)
}

// WarningMessages is ErrorMessages for warning findings.
func WarningMessages(findings []ValidationError) map[string]string {
	return messagesBySeverity(findings, SeverityWarning)
}

func messagesBySeverity(findings []ValidationError, severity Severity) map[string]string {
	messages := make(map[string]string)
	for _, f := range findings {
		if f.Severity == severity {
			messages[f.Field] = f.Message
		}
	}
	return messages
}

func errorFinding(field, msg string) ValidationError {
	return ValidationError{Field: field, Message: msg, Severity: SeverityError}
}

func warningFinding(field, msg string) ValidationError {
	return ValidationError{Field: field, Message: msg, Severity: SeverityWarning}
}

func ptr[T any](v T) *T {
	return &v
}

func asDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return DateOf(v), true
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return DateOf(*v), true
	default:
		return time.Time{}, false
	}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case *int:
		if v == nil {
			return 0, false
		}
		return float64(*v), true
	default:
		return 0, false
	}
}

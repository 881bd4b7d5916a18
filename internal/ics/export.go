package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "recurcal/internal/log"
	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

const (
	productID = "-//recurcal//recurring dates//EN"

	// propertyRRule carries the equivalent RRULE on the first exported
	// event. A plain RRULE would make clients expand every event again.
	propertyRRule = ical.ComponentProperty("X-RECURCAL-RRULE")
)

// uidNamespace scopes occurrence UIDs so they are stable across exports.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://recurcal.invalid/occurrence"))

// OccurrenceUID returns a deterministic UID for one occurrence of a schedule.
func OccurrenceUID(o model.Occurrence) string {
	return uuid.NewSHA1(uidNamespace, []byte(o.ScheduleID+"/"+o.InstanceKey)).String()
}

// Export renders the occurrences of a schedule as a VCALENDAR with one
// all-day VEVENT per date. stamp is used as DTSTAMP.
func Export(s model.Schedule, dates []time.Time, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if s.Name != "" {
		cal.SetXWRCalName(s.Name)
	}

	rule, err := RRuleFor(s.Recurrence)
	if err != nil {
		appLog.Debug("ics export without rrule hint", "id", s.ID, "reason", err.Error())
		rule = ""
	}

	summary := s.Name
	if summary == "" {
		summary = s.ID
	}

	for i, occ := range model.Occurrences(s, dates) {
		ev := cal.AddEvent(OccurrenceUID(occ))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetAllDayStartAt(occ.Date)
		ev.SetAllDayEndAt(recurrence.DateOf(occ.Date).AddDate(0, 0, 1))
		ev.SetSummary(summary)
		if i == 0 && rule != "" {
			ev.SetProperty(propertyRRule, rule)
		}
	}

	return cal.Serialize()
}

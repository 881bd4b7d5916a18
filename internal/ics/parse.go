package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "recurcal/internal/log"
	"recurcal/internal/model"
)

// ParseSchedules reads the recurring VEVENTs of an ICS payload as schedules.
//
//   - Only VEVENTs carrying an RRULE are considered; single events and
//     RECURRENCE-ID overrides are skipped.
//   - DTSTART is reduced to its calendar date.
//   - Rules without a Config equivalent are logged and skipped so that one
//     odd event does not spoil the whole feed.
func ParseSchedules(body []byte) ([]model.Schedule, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	schedules := make([]model.Schedule, 0)

	for _, ve := range cal.Events() {
		s, ok, perr := parseVEvent(ve)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "uid", s.ID, "reason", perr.Error())
			continue
		}
		if !ok {
			continue
		}
		schedules = append(schedules, s)
	}

	appLog.Info("ics parse completed", "schedule_count", len(schedules))
	return schedules, nil
}

// parseVEvent returns ok=false for events that are not recurring.
func parseVEvent(ve *ical.VEvent) (model.Schedule, bool, error) {
	var out model.Schedule

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, false, errors.New("missing UID")
	}
	out.ID = uidProp.Value

	if ve.GetProperty("RECURRENCE-ID") != nil {
		return out, false, nil
	}
	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil || rruleProp.Value == "" {
		return out, false, nil
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Name = p.Value
	}

	start, err := eventStart(ve)
	if err != nil {
		return out, false, err
	}

	cfg, err := ConfigFromRRule(start, rruleProp.Value)
	if err != nil {
		return out, false, err
	}
	out.Recurrence = cfg

	return out, true, nil
}

// eventStart reads DTSTART, treating VALUE=DATE or a value without a time
// part as an all-day date.
func eventStart(ve *ical.VEvent) (time.Time, error) {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil {
		return time.Time{}, errors.New("missing DTSTART")
	}

	allDay := !strings.Contains(prop.Value, "T")
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		allDay = true
	}

	if allDay {
		return ve.GetAllDayStartAt()
	}
	return ve.GetStartAt()
}

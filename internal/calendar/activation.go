package calendar

import (
	"time"

	"github.com/KganDev/irish-rail-schedule/internal/models"
)

// ActiveServices returns the set of service ids active on the given date.
//
// A calendar contributes its service when the date falls inside its
// [start_date, end_date] range and its weekday mask has the date's
// Monday-first weekday set. Exceptions are applied afterwards in row order
// and override weekly inclusion in either direction; a Remove for a service
// that is not present is a no-op, and an Add works even for a service with
// no weekly calendar at all.
func ActiveServices(date time.Time, calendars []models.Calendar, exceptions []models.CalendarDate) map[string]struct{} {
	day := Midnight(date)
	wd := WeekdayIndex(day)

	active := make(map[string]struct{})
	for _, cal := range calendars {
		start, okStart := ParseDate(cal.StartDate)
		end, okEnd := ParseDate(cal.EndDate)
		if !okStart || !okEnd {
			continue
		}
		if day.Before(start) || day.After(end) {
			continue
		}
		if cal.Mask()[wd] {
			active[cal.ServiceID] = struct{}{}
		}
	}

	key := FormatDate(day)
	for _, exc := range exceptions {
		if exc.Date != key {
			continue
		}
		switch exc.ExceptionType {
		case models.ExceptionAdd:
			active[exc.ServiceID] = struct{}{}
		case models.ExceptionRemove:
			delete(active, exc.ServiceID)
		}
	}

	return active
}

// ActiveDatesForService expands one service's weekly mask across its own
// calendar range and applies only that service's exceptions. The result is
// the full set of civil dates the service runs on.
func ActiveDatesForService(serviceID string, cal models.Calendar, exceptions []models.CalendarDate) map[time.Time]struct{} {
	active := make(map[time.Time]struct{})

	start, okStart := ParseDate(cal.StartDate)
	end, okEnd := ParseDate(cal.EndDate)
	if okStart && okEnd {
		mask := cal.Mask()
		for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
			if mask[WeekdayIndex(cur)] {
				active[cur] = struct{}{}
			}
		}
	}

	for _, exc := range exceptions {
		if exc.ServiceID != serviceID {
			continue
		}
		d, ok := ParseDate(exc.Date)
		if !ok {
			continue
		}
		switch exc.ExceptionType {
		case models.ExceptionAdd:
			active[d] = struct{}{}
		case models.ExceptionRemove:
			delete(active, d)
		}
	}

	return active
}

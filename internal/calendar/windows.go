package calendar

import (
	"sort"
	"strings"
	"time"

	"github.com/KganDev/irish-rail-schedule/internal/models"
)

// Window is an inclusive date range during which the aggregate
// active-service set is constant.
type Window struct {
	From time.Time
	To   time.Time
}

// Scan walks the horizon [start, start+horizonDays] day by day and
// partitions it into maximal windows with a constant active-service set.
// Windows tile the horizon in chronological order with no gaps or overlaps;
// consecutive windows always differ in their active set. A non-positive
// horizon returns nil.
func Scan(start time.Time, horizonDays int, calendars []models.Calendar, exceptions []models.CalendarDate) []Window {
	if horizonDays <= 0 {
		return nil
	}

	from := Midnight(start)
	curFrom := from
	curSig := signature(ActiveServices(from, calendars, exceptions))

	var windows []Window
	for i := 1; i <= horizonDays; i++ {
		day := from.AddDate(0, 0, i)
		sig := signature(ActiveServices(day, calendars, exceptions))
		if sig != curSig {
			windows = append(windows, Window{From: curFrom, To: day.AddDate(0, 0, -1)})
			curFrom, curSig = day, sig
		}
	}

	// The final window always closes at the horizon boundary, even when the
	// set never changed.
	windows = append(windows, Window{From: curFrom, To: from.AddDate(0, 0, horizonDays)})
	return windows
}

// signature summarizes a service-id set for change detection. Exact set
// equality via the sorted joined identifiers: feeds hold thousands of
// services at most, so the hash shortcut buys nothing here.
func signature(ids map[string]struct{}) string {
	if len(ids) == 0 {
		return ""
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

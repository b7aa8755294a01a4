package pruning

import (
	"time"

	"github.com/KganDev/irish-rail-schedule/internal/calendar"
	"github.com/KganDev/irish-rail-schedule/internal/models"
)

// Low-frequency patterns (one or two active weekdays) are assumed to be
// intentionally distinct special-case services, never duplicates.
const lowFrequencyDayCount = 2

// Options configures a pruning run.
type Options struct {
	// PivotDate weights "still relevant going forward" in tie-breaking.
	// Callers derive it as max(current date, feed start date).
	PivotDate time.Time
	// OverlapMaxDays is the largest pairwise active-date overlap two
	// candidates may share before their group is declared ambiguous.
	OverlapMaxDays int
}

// GroupRecord is the immutable resolution record for one equivalence group.
type GroupRecord struct {
	WeekdayMask string   `json:"weekdayMask"`
	RouteIDs    []string `json:"routeIds"`
	ServiceIDs  []string `json:"serviceIds"`
	Winner      *string  `json:"winner"`
	Reasons     []string `json:"reasons"`
	Ambiguous   bool     `json:"ambiguous"`
}

// Summary holds the run-level counters.
type Summary struct {
	TotalGroups          int `json:"totalGroups"`
	MultiCandidateGroups int `json:"multiCandidateGroups"`
	AmbiguousGroups      int `json:"ambiguousGroups"`
	ServicesKept         int `json:"servicesKept"`
	ServicesPruned       int `json:"servicesPruned"`
}

// Diagnostics is the full explainability record of a pruning run.
type Diagnostics struct {
	PivotDate      string        `json:"pivotDate"`
	OverlapMaxDays int           `json:"overlapMaxDays"`
	Groups         []GroupRecord `json:"groups"`
	Summary        Summary       `json:"summary"`
}

// Result carries the filtered row collections and the diagnostics.
type Result struct {
	Calendars     []models.Calendar
	CalendarDates []models.CalendarDate
	Trips         []models.Trip
	StopTimes     []models.StopTime
	Kept          map[string]struct{}
	Pruned        map[string]struct{}
	Diagnostics   Diagnostics
}

// Prune drives grouping and resolution across the whole service universe and
// cascades each keep/drop decision through trips and stop times. A trip is
// dropped only via its service, and a stop time only via its trip. Groups
// are processed in deterministic key order; the transformation is pure.
func Prune(calendars []models.Calendar, calendarDates []models.CalendarDate, trips []models.Trip, stopTimes []models.StopTime, opts Options) Result {
	calendarsByID := make(map[string]models.Calendar, len(calendars))
	for _, cal := range calendars {
		calendarsByID[cal.ServiceID] = cal
	}

	groups := Group(calendars, trips)

	kept := make(map[string]struct{})
	pruned := make(map[string]struct{})
	diag := Diagnostics{
		PivotDate:      calendar.FormatDate(calendar.Midnight(opts.PivotDate)),
		OverlapMaxDays: opts.OverlapMaxDays,
	}

	for _, key := range SortedKeys(groups) {
		serviceIDs := groups[key]
		record := GroupRecord{
			WeekdayMask: key.Mask.String(),
			RouteIDs:    key.RouteIDs(),
			ServiceIDs:  append([]string(nil), serviceIDs...),
		}

		switch {
		case len(serviceIDs) <= 1:
			for _, id := range serviceIDs {
				kept[id] = struct{}{}
				winner := id
				record.Winner = &winner
			}
			record.Reasons = []string{"Only one service in group"}

		case key.Mask.ActiveDayCount() <= lowFrequencyDayCount:
			// Kept in full, ambiguous by policy.
			for _, id := range serviceIDs {
				kept[id] = struct{}{}
			}
			record.Ambiguous = true
			record.Reasons = []string{"Low-frequency pattern, all services kept"}

		default:
			resolution := Resolve(serviceIDs, calendarsByID, calendarDates, opts.PivotDate, opts.OverlapMaxDays)
			record.Reasons = resolution.Reasons
			record.Ambiguous = resolution.Ambiguous

			if resolution.Ambiguous || resolution.Winner == "" {
				for _, id := range serviceIDs {
					kept[id] = struct{}{}
				}
			} else {
				winner := resolution.Winner
				record.Winner = &winner
				kept[winner] = struct{}{}
				for _, id := range serviceIDs {
					if id != winner {
						pruned[id] = struct{}{}
					}
				}
			}
		}

		diag.Groups = append(diag.Groups, record)
		diag.Summary.TotalGroups++
		if len(serviceIDs) > 1 {
			diag.Summary.MultiCandidateGroups++
		}
		if record.Ambiguous {
			diag.Summary.AmbiguousGroups++
		}
	}

	diag.Summary.ServicesKept = len(kept)
	diag.Summary.ServicesPruned = len(pruned)

	result := Result{
		Kept:        kept,
		Pruned:      pruned,
		Diagnostics: diag,
	}

	for _, cal := range calendars {
		if _, ok := kept[cal.ServiceID]; ok {
			result.Calendars = append(result.Calendars, cal)
		}
	}
	for _, exc := range calendarDates {
		if _, ok := kept[exc.ServiceID]; ok {
			result.CalendarDates = append(result.CalendarDates, exc)
		}
	}

	keptTripIDs := make(map[string]struct{})
	for _, trip := range trips {
		if _, ok := kept[trip.ServiceID]; ok {
			result.Trips = append(result.Trips, trip)
			keptTripIDs[trip.ID] = struct{}{}
		}
	}
	for _, st := range stopTimes {
		if _, ok := keptTripIDs[st.TripID]; ok {
			result.StopTimes = append(result.StopTimes, st)
		}
	}

	return result
}

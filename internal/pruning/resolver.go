package pruning

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/KganDev/irish-rail-schedule/internal/calendar"
	"github.com/KganDev/irish-rail-schedule/internal/models"
)

// Resolution is the outcome of resolving one equivalence group.
type Resolution struct {
	Winner    string
	Reasons   []string
	Ambiguous bool
}

// serviceMetrics holds the per-candidate facts the tie-break chain runs on.
type serviceMetrics struct {
	activeDates      map[time.Time]struct{}
	startDate        *time.Time
	lastActiveDate   *time.Time
	activeAfterPivot int
}

// Resolve picks at most one winning service out of a group of candidates,
// or declares the group ambiguous when candidates genuinely overlap for
// longer than overlapMaxDays. The elimination chain is, in order: latest
// last active date, most active days on or after the pivot, latest start
// date, then a numeric-or-lexicographic service-id tiebreak that always
// yields a single winner. Every narrowing stage records a human-readable
// reason.
func Resolve(serviceIDs []string, calendars map[string]models.Calendar, exceptions []models.CalendarDate, pivot time.Time, overlapMaxDays int) Resolution {
	if len(serviceIDs) <= 1 {
		var winner string
		if len(serviceIDs) == 1 {
			winner = serviceIDs[0]
		}
		return Resolution{Winner: winner, Reasons: []string{"Only one service in group"}}
	}

	pivotDay := calendar.Midnight(pivot)

	metrics := make(map[string]serviceMetrics, len(serviceIDs))
	for _, serviceID := range serviceIDs {
		cal := calendars[serviceID]
		active := calendar.ActiveDatesForService(serviceID, cal, exceptions)

		m := serviceMetrics{activeDates: active}
		if start, ok := calendar.ParseDate(cal.StartDate); ok {
			m.startDate = &start
		}
		for d := range active {
			if m.lastActiveDate == nil || d.After(*m.lastActiveDate) {
				last := d
				m.lastActiveDate = &last
			}
			if !d.Before(pivotDay) {
				m.activeAfterPivot++
			}
		}
		metrics[serviceID] = m
	}

	var reasons []string

	maxOverlap := 0
	for i, a := range serviceIDs {
		for _, b := range serviceIDs[i+1:] {
			if ov := overlapDays(metrics[a].activeDates, metrics[b].activeDates); ov > maxOverlap {
				maxOverlap = ov
			}
		}
	}
	if maxOverlap > overlapMaxDays {
		reasons = append(reasons, fmt.Sprintf("Ambiguous: services overlap by %d days (> %d)", maxOverlap, overlapMaxDays))
		return Resolution{Reasons: reasons, Ambiguous: true}
	}

	candidates := append([]string(nil), serviceIDs...)

	// Stage 1: latest last active date. Candidates without one lose, but the
	// stage is skipped entirely when nobody has an active date.
	var maxLast *time.Time
	for _, serviceID := range candidates {
		if last := metrics[serviceID].lastActiveDate; last != nil {
			if maxLast == nil || last.After(*maxLast) {
				maxLast = last
			}
		}
	}
	if maxLast != nil {
		candidates = filterCandidates(candidates, func(id string) bool {
			last := metrics[id].lastActiveDate
			return last != nil && last.Equal(*maxLast)
		})
		if len(candidates) == 1 {
			reasons = append(reasons, fmt.Sprintf("Latest last_active_date: %s", maxLast.Format("2006-01-02")))
			return Resolution{Winner: candidates[0], Reasons: reasons}
		}
		reasons = append(reasons, fmt.Sprintf("Tied on last_active_date: %s", maxLast.Format("2006-01-02")))
	}

	// Stage 2: most active days on or after the pivot.
	maxAfter := 0
	for _, serviceID := range candidates {
		if after := metrics[serviceID].activeAfterPivot; after > maxAfter {
			maxAfter = after
		}
	}
	candidates = filterCandidates(candidates, func(id string) bool {
		return metrics[id].activeAfterPivot == maxAfter
	})
	if len(candidates) == 1 {
		reasons = append(reasons, fmt.Sprintf("Most active days after pivot (%d days)", maxAfter))
		return Resolution{Winner: candidates[0], Reasons: reasons}
	}
	if maxAfter > 0 {
		reasons = append(reasons, fmt.Sprintf("Tied on active days after pivot: %d", maxAfter))
	}

	// Stage 3: latest start date; absent start dates lose, stage skipped when
	// nobody has one.
	var maxStart *time.Time
	for _, serviceID := range candidates {
		if start := metrics[serviceID].startDate; start != nil {
			if maxStart == nil || start.After(*maxStart) {
				maxStart = start
			}
		}
	}
	if maxStart != nil {
		candidates = filterCandidates(candidates, func(id string) bool {
			start := metrics[id].startDate
			return start != nil && start.Equal(*maxStart)
		})
		if len(candidates) == 1 {
			reasons = append(reasons, fmt.Sprintf("Latest start_date: %s", maxStart.Format("2006-01-02")))
			return Resolution{Winner: candidates[0], Reasons: reasons}
		}
		reasons = append(reasons, fmt.Sprintf("Tied on start_date: %s", maxStart.Format("2006-01-02")))
	}

	// Final tiebreak, total over any non-empty id set: numerically largest id
	// when every remaining id parses as an integer, lexicographically largest
	// otherwise.
	if winner, ok := highestNumericID(candidates); ok {
		reasons = append(reasons, fmt.Sprintf("Tiebreaker: highest service_id (%s)", winner))
		return Resolution{Winner: winner, Reasons: reasons}
	}

	sorted := append([]string(nil), candidates...)
	sort.Sort(sort.Reverse(sort.StringSlice(sorted)))
	winner := sorted[0]
	reasons = append(reasons, fmt.Sprintf("Tiebreaker: lexicographically highest service_id (%s)", winner))
	return Resolution{Winner: winner, Reasons: reasons}
}

func overlapDays(a, b map[time.Time]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for d := range a {
		if _, ok := b[d]; ok {
			n++
		}
	}
	return n
}

func filterCandidates(candidates []string, keep func(string) bool) []string {
	out := candidates[:0]
	for _, id := range candidates {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

// highestNumericID returns the numerically largest id, with the larger
// string breaking exact numeric ties. ok is false if any id fails to parse.
func highestNumericID(ids []string) (string, bool) {
	best := ""
	bestN := 0
	for i, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil {
			return "", false
		}
		if i == 0 || n > bestN || (n == bestN && id > best) {
			best, bestN = id, n
		}
	}
	return best, true
}

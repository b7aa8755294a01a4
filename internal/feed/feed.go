// Package feed downloads and parses a static GTFS archive and projects it
// into the row collections the pruning core and exporters work on.
package feed

import (
	"strings"
	"time"

	"github.com/KganDev/irish-rail-schedule/internal/calendar"
	"github.com/KganDev/irish-rail-schedule/internal/models"
)

// Snapshot is the parsed, row-level view of one feed archive.
type Snapshot struct {
	Agencies      []models.Agency
	Stops         []models.Stop
	Routes        []models.Route
	Trips         []models.Trip
	StopTimes     []models.StopTime
	Calendars     []models.Calendar
	CalendarDates []models.CalendarDate
	FeedInfos     []models.FeedInfo

	// SHA256 is the hex digest of the source archive, used by the snapshot
	// store to skip re-imports of unchanged feeds.
	SHA256 string
	// Warnings counts non-fatal parser warnings.
	Warnings int
}

// Version returns the feed-declared version, or the fallback when the feed
// does not declare one.
func (s *Snapshot) Version(fallback string) string {
	if len(s.FeedInfos) > 0 {
		if v := strings.TrimSpace(s.FeedInfos[0].Version); v != "" {
			return v
		}
	}
	return fallback
}

// StartDate returns the feed-declared start date, ok=false when absent or
// malformed.
func (s *Snapshot) StartDate() (time.Time, bool) {
	if len(s.FeedInfos) == 0 {
		return time.Time{}, false
	}
	return calendar.ParseDate(s.FeedInfos[0].StartDate)
}

// EndDate returns the feed-declared end date, ok=false when absent or
// malformed.
func (s *Snapshot) EndDate() (time.Time, bool) {
	if len(s.FeedInfos) == 0 {
		return time.Time{}, false
	}
	return calendar.ParseDate(s.FeedInfos[0].EndDate)
}

// Location returns the first agency's timezone, falling back to UTC. The
// builder uses it to decide what "today" means for the scan start.
func (s *Snapshot) Location() *time.Location {
	if len(s.Agencies) > 0 {
		if loc, err := time.LoadLocation(s.Agencies[0].Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// PivotDate derives the tie-breaking pivot: the later of "today" and the
// feed-declared start date.
func (s *Snapshot) PivotDate(today time.Time) time.Time {
	pivot := calendar.Midnight(today)
	if start, ok := s.StartDate(); ok && start.After(pivot) {
		pivot = start
	}
	return pivot
}

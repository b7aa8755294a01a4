package feed

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/OneBusAway/go-gtfs"

	"github.com/KganDev/irish-rail-schedule/internal/calendar"
	"github.com/KganDev/irish-rail-schedule/internal/models"
)

// fromStatic projects the typed go-gtfs data onto the row models the core
// and exporters consume.
func fromStatic(data *gtfs.Static) *Snapshot {
	snapshot := &Snapshot{Warnings: len(data.Warnings)}

	for _, a := range data.Agencies {
		snapshot.Agencies = append(snapshot.Agencies, models.Agency{
			ID:       a.Id,
			Name:     a.Name,
			URL:      a.Url,
			Timezone: a.Timezone,
			Lang:     a.Language,
			Phone:    a.Phone,
		})
	}

	for _, s := range data.Stops {
		// Stops without coordinates (generic nodes, boarding areas) are not
		// useful to a schedule consumer; skip rather than emit (0,0).
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		parentStation := ""
		if s.Parent != nil {
			parentStation = s.Parent.Id
		}
		snapshot.Stops = append(snapshot.Stops, models.Stop{
			ID:            s.Id,
			Code:          s.Code,
			Name:          s.Name,
			Desc:          s.Description,
			Lat:           *s.Latitude,
			Lon:           *s.Longitude,
			ZoneID:        s.ZoneId,
			URL:           s.Url,
			LocationType:  int(s.Type),
			ParentStation: parentStation,
		})
	}

	for _, r := range data.Routes {
		agencyID := ""
		if r.Agency != nil {
			agencyID = r.Agency.Id
		}
		snapshot.Routes = append(snapshot.Routes, models.Route{
			ID:        r.Id,
			AgencyID:  agencyID,
			ShortName: r.ShortName,
			LongName:  r.LongName,
			Desc:      r.Description,
			Type:      int(r.Type),
			URL:       r.Url,
			Color:     r.Color,
			TextColor: r.TextColor,
		})
	}

	for _, s := range data.Services {
		snapshot.Calendars = append(snapshot.Calendars, models.Calendar{
			ServiceID: s.Id,
			Monday:    s.Monday,
			Tuesday:   s.Tuesday,
			Wednesday: s.Wednesday,
			Thursday:  s.Thursday,
			Friday:    s.Friday,
			Saturday:  s.Saturday,
			Sunday:    s.Sunday,
			StartDate: formatServiceDate(s.StartDate),
			EndDate:   formatServiceDate(s.EndDate),
		})

		// Adds first, then removes, per service. The parser collapses the
		// original calendar_dates row order, so a same-date add+remove pair
		// resolves to removed.
		for _, date := range s.AddedDates {
			snapshot.CalendarDates = append(snapshot.CalendarDates, models.CalendarDate{
				ServiceID:     s.Id,
				Date:          calendar.FormatDate(date),
				ExceptionType: models.ExceptionAdd,
			})
		}
		for _, date := range s.RemovedDates {
			snapshot.CalendarDates = append(snapshot.CalendarDates, models.CalendarDate{
				ServiceID:     s.Id,
				Date:          calendar.FormatDate(date),
				ExceptionType: models.ExceptionRemove,
			})
		}
	}

	// The parser surfaces services in map order; sort so downstream grouping
	// and diagnostics are reproducible across runs on identical input. The
	// exception sort keeps adds before removes per (service, date), matching
	// the documented last-write-wins collapse.
	sort.Slice(snapshot.Calendars, func(i, j int) bool {
		return snapshot.Calendars[i].ServiceID < snapshot.Calendars[j].ServiceID
	})
	sort.Slice(snapshot.CalendarDates, func(i, j int) bool {
		a, b := snapshot.CalendarDates[i], snapshot.CalendarDates[j]
		if a.ServiceID != b.ServiceID {
			return a.ServiceID < b.ServiceID
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.ExceptionType < b.ExceptionType
	})

	for _, t := range data.Trips {
		routeID := ""
		if t.Route != nil {
			routeID = t.Route.Id
		}
		serviceID := ""
		if t.Service != nil {
			serviceID = t.Service.Id
		}
		snapshot.Trips = append(snapshot.Trips, models.Trip{
			ID:          t.ID,
			RouteID:     routeID,
			ServiceID:   serviceID,
			Headsign:    t.Headsign,
			ShortName:   t.ShortName,
			DirectionID: int(t.DirectionId),
			BlockID:     t.BlockID,
		})

		for _, st := range t.StopTimes {
			stopID := ""
			if st.Stop != nil {
				stopID = st.Stop.Id
			}
			timepoint := "0"
			if st.ExactTimes {
				timepoint = "1"
			}
			snapshot.StopTimes = append(snapshot.StopTimes, models.StopTime{
				TripID:        t.ID,
				ArrivalTime:   formatGTFSTime(st.ArrivalTime),
				DepartureTime: formatGTFSTime(st.DepartureTime),
				StopID:        stopID,
				StopSequence:  st.StopSequence,
				StopHeadsign:  st.Headsign,
				PickupType:    strconv.Itoa(int(st.PickupType)),
				DropOffType:   strconv.Itoa(int(st.DropOffType)),
				Timepoint:     timepoint,
			})
		}
	}

	return snapshot
}

func formatServiceDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return calendar.FormatDate(t)
}

// formatGTFSTime renders a time-into-service-day offset as HH:MM:SS.
// Hours may exceed 24 for trips running past midnight.
func formatGTFSTime(d time.Duration) string {
	total := int(d / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// readFeedInfo extracts feed_info.txt rows from the archive. Any failure
// results in an empty slice; feed metadata is optional everywhere.
func readFeedInfo(b []byte) []models.FeedInfo {
	reader, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil
	}

	var file *zip.File
	for _, f := range reader.File {
		name := strings.ToLower(f.Name)
		if name == "feed_info.txt" || strings.HasSuffix(name, "/feed_info.txt") {
			file = f
			break
		}
	}
	if file == nil {
		return nil
	}

	rc, err := file.Open()
	if err != nil {
		return nil
	}
	defer func() { _ = rc.Close() }()

	records, err := csv.NewReader(rc).ReadAll()
	if err != nil || len(records) < 2 {
		return nil
	}

	header := records[0]
	if len(header) > 0 {
		// Strip a UTF-8 BOM from the first header cell.
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var infos []models.FeedInfo
	for _, row := range records[1:] {
		infos = append(infos, models.FeedInfo{
			PublisherName: field(row, "feed_publisher_name"),
			PublisherURL:  field(row, "feed_publisher_url"),
			Lang:          field(row, "feed_lang"),
			StartDate:     field(row, "feed_start_date"),
			EndDate:       field(row, "feed_end_date"),
			Version:       field(row, "feed_version"),
		})
	}
	return infos
}

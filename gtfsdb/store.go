package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/KganDev/irish-rail-schedule/internal/logging"
	"github.com/KganDev/irish-rail-schedule/internal/models"
)

// Rows is the filtered snapshot handed to the store after pruning.
type Rows struct {
	Agencies      []models.Agency
	Stops         []models.Stop
	Routes        []models.Route
	Trips         []models.Trip
	StopTimes     []models.StopTime
	Calendars     []models.Calendar
	CalendarDates []models.CalendarDate
	FeedInfos     []models.FeedInfo

	// Hash and Source identify the archive the rows came from.
	Hash   string
	Source string
}

// ImportMetadata records which archive the stored snapshot came from.
type ImportMetadata struct {
	FileHash   string
	ImportTime int64
	FileSource string
}

// GetImportMetadata returns the stored import record, sql.ErrNoRows before
// the first import.
func (c *Client) GetImportMetadata(ctx context.Context) (ImportMetadata, error) {
	var meta ImportMetadata
	err := c.DB.QueryRowContext(ctx,
		"SELECT file_hash, import_time, file_source FROM import_metadata WHERE id = 1").
		Scan(&meta.FileHash, &meta.ImportTime, &meta.FileSource)
	return meta, err
}

// StoreSnapshot replaces the stored snapshot with the given rows. When the
// archive hash and source match the previous import, the store is left
// untouched and imported is false.
func (c *Client) StoreSnapshot(ctx context.Context, rows Rows) (imported bool, err error) {
	logger := slog.Default().With(slog.String("component", "snapshot_store"))

	startTime := time.Now()
	defer func() {
		if imported {
			logging.LogOperation(logger, "snapshot_import_completed",
				slog.Duration("duration", time.Since(startTime)),
				slog.String("source", rows.Source))
		}
	}()

	existing, err := c.GetImportMetadata(ctx)
	switch {
	case err == nil:
		if existing.FileHash == rows.Hash && existing.FileSource == rows.Source {
			logging.LogOperation(logger, "snapshot_unchanged_skipping_import",
				slog.String("hash", shortHash(rows.Hash)))
			return false, nil
		}
		logging.LogOperation(logger, "snapshot_changed_reimporting",
			slog.String("old_hash", shortHash(existing.FileHash)),
			slog.String("new_hash", shortHash(rows.Hash)))
	case err == sql.ErrNoRows:
		// First import.
	default:
		return false, fmt.Errorf("error checking import metadata: %w", err)
	}

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "store_snapshot")

	if err := clearAll(ctx, tx); err != nil {
		return false, err
	}
	if err := insertAll(ctx, tx, rows); err != nil {
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO import_metadata (id, file_hash, import_time, file_source)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_hash = excluded.file_hash,
			import_time = excluded.import_time,
			file_source = excluded.file_source`,
		rows.Hash, time.Now().Unix(), rows.Source)
	if err != nil {
		return false, fmt.Errorf("error updating import metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// clearAll deletes in reverse dependency order.
func clearAll(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"stop_times", "trips", "calendar_dates", "calendar", "stops", "routes", "agencies", "feed_info"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("error clearing %s: %w", table, err)
		}
	}
	return nil
}

func insertAll(ctx context.Context, tx *sql.Tx, rows Rows) error {
	if err := insertAgencies(ctx, tx, rows.Agencies); err != nil {
		return err
	}
	if err := insertStops(ctx, tx, rows.Stops); err != nil {
		return err
	}
	if err := insertRoutes(ctx, tx, rows.Routes); err != nil {
		return err
	}
	if err := insertCalendars(ctx, tx, rows.Calendars); err != nil {
		return err
	}
	if err := insertCalendarDates(ctx, tx, rows.CalendarDates); err != nil {
		return err
	}
	if err := insertTrips(ctx, tx, rows.Trips); err != nil {
		return err
	}
	if err := insertStopTimes(ctx, tx, rows.StopTimes); err != nil {
		return err
	}
	return insertFeedInfos(ctx, tx, rows.FeedInfos)
}

func insertAgencies(ctx context.Context, tx *sql.Tx, agencies []models.Agency) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO agencies (id, name, url, timezone, lang, phone) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, a := range agencies {
		if _, err := stmt.ExecContext(ctx, a.ID, a.Name, a.URL, a.Timezone, a.Lang, a.Phone); err != nil {
			return fmt.Errorf("error inserting agency %s: %w", a.ID, err)
		}
	}
	return nil
}

func insertStops(ctx context.Context, tx *sql.Tx, stops []models.Stop) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stops (id, code, name, "desc", lat, lon, zone_id, url, location_type, parent_station)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, s := range stops {
		if _, err := stmt.ExecContext(ctx, s.ID, s.Code, s.Name, s.Desc, s.Lat, s.Lon,
			s.ZoneID, s.URL, s.LocationType, s.ParentStation); err != nil {
			return fmt.Errorf("error inserting stop %s: %w", s.ID, err)
		}
	}
	return nil
}

func insertRoutes(ctx context.Context, tx *sql.Tx, routes []models.Route) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO routes (id, agency_id, short_name, long_name, "desc", type, url, color, text_color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range routes {
		if _, err := stmt.ExecContext(ctx, r.ID, r.AgencyID, r.ShortName, r.LongName,
			r.Desc, r.Type, r.URL, r.Color, r.TextColor); err != nil {
			return fmt.Errorf("error inserting route %s: %w", r.ID, err)
		}
	}
	return nil
}

func insertCalendars(ctx context.Context, tx *sql.Tx, calendars []models.Calendar) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO calendar (service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range calendars {
		if _, err := stmt.ExecContext(ctx, c.ServiceID,
			boolToInt(c.Monday), boolToInt(c.Tuesday), boolToInt(c.Wednesday), boolToInt(c.Thursday),
			boolToInt(c.Friday), boolToInt(c.Saturday), boolToInt(c.Sunday),
			c.StartDate, c.EndDate); err != nil {
			return fmt.Errorf("error inserting calendar %s: %w", c.ServiceID, err)
		}
	}
	return nil
}

func insertCalendarDates(ctx context.Context, tx *sql.Tx, dates []models.CalendarDate) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO calendar_dates (service_id, date, exception_type) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, d := range dates {
		if _, err := stmt.ExecContext(ctx, d.ServiceID, d.Date, d.ExceptionType); err != nil {
			return fmt.Errorf("error inserting calendar date %s/%s: %w", d.ServiceID, d.Date, err)
		}
	}
	return nil
}

func insertTrips(ctx context.Context, tx *sql.Tx, trips []models.Trip) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trips (id, route_id, service_id, headsign, short_name, direction_id, block_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range trips {
		if _, err := stmt.ExecContext(ctx, t.ID, t.RouteID, t.ServiceID,
			t.Headsign, t.ShortName, t.DirectionID, t.BlockID); err != nil {
			return fmt.Errorf("error inserting trip %s: %w", t.ID, err)
		}
	}
	return nil
}

func insertStopTimes(ctx context.Context, tx *sql.Tx, stopTimes []models.StopTime) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stop_times (trip_id, arrival_time, departure_time, stop_id, stop_sequence, stop_headsign, pickup_type, drop_off_type, timepoint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, st := range stopTimes {
		if _, err := stmt.ExecContext(ctx, st.TripID, st.ArrivalTime, st.DepartureTime,
			st.StopID, st.StopSequence, st.StopHeadsign, st.PickupType, st.DropOffType, st.Timepoint); err != nil {
			return fmt.Errorf("error inserting stop time %s/%d: %w", st.TripID, st.StopSequence, err)
		}
	}
	return nil
}

func insertFeedInfos(ctx context.Context, tx *sql.Tx, infos []models.FeedInfo) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO feed_info (publisher_name, publisher_url, lang, start_date, end_date, version)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, info := range infos {
		if _, err := stmt.ExecContext(ctx, info.PublisherName, info.PublisherURL, info.Lang,
			info.StartDate, info.EndDate, info.Version); err != nil {
			return fmt.Errorf("error inserting feed info: %w", err)
		}
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

// TableCounts returns per-table row counts for diagnostics.
func (c *Client) TableCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"agencies", "stops", "routes", "calendar", "calendar_dates", "trips", "stop_times", "feed_info"} {
		var count int
		if err := c.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = count
	}
	return counts, nil
}

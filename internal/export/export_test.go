package export

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KganDev/irish-rail-schedule/internal/calendar"
	"github.com/KganDev/irish-rail-schedule/internal/models"
	"github.com/KganDev/irish-rail-schedule/internal/pruning"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func testBuild() Build {
	winner := "wk"
	return Build{
		Version:     "2024-06",
		GeneratedAt: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
		Rows: Rows{
			Agencies: []models.Agency{{ID: "IR", Name: "Iarnrod Eireann"}},
			Stops:    []models.Stop{{ID: "HSTON", Name: "Dublin Heuston"}},
			Routes:   []models.Route{{ID: "DART", Type: 2}},
			Trips:    []models.Trip{{ID: "t1", RouteID: "DART", ServiceID: "wk"}},
			StopTimes: []models.StopTime{
				{TripID: "t1", StopID: "HSTON", StopSequence: 1},
			},
			Calendars: []models.Calendar{
				{ServiceID: "wk", Monday: true, StartDate: "20240601", EndDate: "20240630"},
			},
			CalendarDates: []models.CalendarDate{
				{ServiceID: "wk", Date: "20240617", ExceptionType: models.ExceptionRemove},
			},
		},
		Windows: []calendar.Window{
			{From: date(2024, 6, 1), To: date(2024, 6, 16)},
			{From: date(2024, 6, 17), To: date(2024, 6, 30)},
		},
		ScanFrom:      date(2024, 6, 1),
		ScanTo:        date(2024, 6, 30),
		FeedStartDate: "20240601",
		FeedEndDate:   "20240630",
		Diagnostics: &pruning.Diagnostics{
			PivotDate:      "20240601",
			OverlapMaxDays: 45,
			Groups: []pruning.GroupRecord{
				{WeekdayMask: "1000000", ServiceIDs: []string{"wk"}, Winner: &winner,
					Reasons: []string{"Only one service in group"}},
			},
			Summary: pruning.Summary{TotalGroups: 1, ServicesKept: 1},
		},
	}
}

func readJSON(t *testing.T, path string, out any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestWriteProducesVersionedArtifacts(t *testing.T) {
	outDir := t.TempDir()
	w := NewWriter(outDir, false, nil)

	require.NoError(t, w.Write(testBuild()))

	versionDir := filepath.Join(outDir, "gtfs", "2024-06")
	for _, name := range []string{
		"agencies.json", "stops.json", "routes.json", "trips.json",
		"stop_times.json", "calendar.json", "calendar_dates.json", "pruning.json",
	} {
		assert.FileExists(t, filepath.Join(versionDir, name))
	}

	var trips []models.Trip
	readJSON(t, filepath.Join(versionDir, "trips.json"), &trips)
	require.Len(t, trips, 1)
	assert.Equal(t, "t1", trips[0].ID)

	var diag pruning.Diagnostics
	readJSON(t, filepath.Join(versionDir, "pruning.json"), &diag)
	assert.Equal(t, "20240601", diag.PivotDate)
	assert.Equal(t, 1, diag.Summary.ServicesKept)
}

func TestWriteWindowsDocument(t *testing.T) {
	outDir := t.TempDir()
	w := NewWriter(outDir, false, nil)

	require.NoError(t, w.Write(testBuild()))

	var doc WindowsDocument
	readJSON(t, filepath.Join(outDir, "windows.json"), &doc)

	assert.Equal(t, "2024-06-01T12:30:00Z", doc.GeneratedAt)
	assert.Equal(t, DateRange{From: "20240601", To: "20240630"}, doc.Scan)
	assert.Equal(t, "2024-06", doc.Feed.Version)
	require.NotNil(t, doc.Feed.StartDate)
	assert.Equal(t, "20240601", *doc.Feed.StartDate)
	require.Len(t, doc.Windows, 2)
	assert.Equal(t, DateRange{From: "20240601", To: "20240616"}, doc.Windows[0])
	assert.Equal(t, DateRange{From: "20240617", To: "20240630"}, doc.Windows[1])
}

func TestWriteLatestAndStatusPointers(t *testing.T) {
	outDir := t.TempDir()
	w := NewWriter(outDir, false, nil)

	require.NoError(t, w.Write(testBuild()))

	var latest LatestDocument
	readJSON(t, filepath.Join(outDir, "latest.json"), &latest)
	assert.Equal(t, "2024-06", latest.Latest)
	assert.Equal(t, "2024-06-01T12:30:00Z", latest.GeneratedAt)

	var status StatusDocument
	readJSON(t, filepath.Join(outDir, "status.json"), &status)
	assert.True(t, status.OK)
	assert.Equal(t, latest.Latest, status.Latest)
	assert.Equal(t, latest.GeneratedAt, status.GeneratedAt)
}

func TestWriteOmitsDiagnosticsWhenPruningOff(t *testing.T) {
	outDir := t.TempDir()
	w := NewWriter(outDir, false, nil)

	build := testBuild()
	build.Diagnostics = nil
	require.NoError(t, w.Write(build))

	assert.NoFileExists(t, filepath.Join(outDir, "gtfs", "2024-06", "pruning.json"))
}

func TestWriteNilFeedDatesWhenFeedInfoAbsent(t *testing.T) {
	outDir := t.TempDir()
	w := NewWriter(outDir, false, nil)

	build := testBuild()
	build.FeedStartDate = ""
	build.FeedEndDate = ""
	require.NoError(t, w.Write(build))

	var doc WindowsDocument
	readJSON(t, filepath.Join(outDir, "windows.json"), &doc)
	assert.Nil(t, doc.Feed.StartDate)
	assert.Nil(t, doc.Feed.EndDate)
}

func TestWriteGzipSiblings(t *testing.T) {
	outDir := t.TempDir()
	w := NewWriter(outDir, true, nil)

	require.NoError(t, w.Write(testBuild()))

	gzPath := filepath.Join(outDir, "windows.json") + ".gz"
	f, err := os.Open(gzPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	uncompressed, err := io.ReadAll(gz)
	require.NoError(t, err)

	plain, err := os.ReadFile(filepath.Join(outDir, "windows.json"))
	require.NoError(t, err)
	assert.Equal(t, plain, uncompressed)
}

// Package export writes the build artifacts consumed by downstream apps:
// a versioned directory of row-level JSON files plus the top-level
// windows.json, latest.json and status.json pointers.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/KganDev/irish-rail-schedule/internal/calendar"
	"github.com/KganDev/irish-rail-schedule/internal/logging"
	"github.com/KganDev/irish-rail-schedule/internal/models"
	"github.com/KganDev/irish-rail-schedule/internal/pruning"
)

// Writer renders build artifacts under OutDir.
type Writer struct {
	// OutDir is the artifact root, e.g. "out".
	OutDir string
	// Gzip additionally writes a .json.gz sibling next to each artifact.
	Gzip bool

	logger *slog.Logger
}

// NewWriter creates an artifact writer rooted at outDir.
func NewWriter(outDir string, gzipArtifacts bool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{OutDir: outDir, Gzip: gzipArtifacts, logger: logger.With(slog.String("component", "export"))}
}

// Rows is the filtered row view of the feed to render.
type Rows struct {
	Agencies      []models.Agency
	Stops         []models.Stop
	Routes        []models.Route
	Trips         []models.Trip
	StopTimes     []models.StopTime
	Calendars     []models.Calendar
	CalendarDates []models.CalendarDate
}

// Build bundles everything one export run needs.
type Build struct {
	Version     string
	GeneratedAt time.Time

	Rows    Rows
	Windows []calendar.Window

	// ScanFrom/ScanTo bound the horizon the window scanner covered.
	ScanFrom time.Time
	ScanTo   time.Time

	// FeedStartDate/FeedEndDate are the feed-declared bounds, YYYYMMDD or
	// empty when the feed omits feed_info.
	FeedStartDate string
	FeedEndDate   string

	// Diagnostics is nil when pruning ran in "off" mode.
	Diagnostics *pruning.Diagnostics
}

// DateRange is one window rendered as YYYYMMDD bounds.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// WindowsDocument is the shape of windows.json.
type WindowsDocument struct {
	GeneratedAt string      `json:"generatedAt"`
	Scan        DateRange   `json:"scan"`
	Feed        FeedSummary `json:"feed"`
	Windows     []DateRange `json:"windows"`
}

// FeedSummary identifies the feed a windows document was computed from.
type FeedSummary struct {
	Version   string  `json:"version"`
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
}

// LatestDocument is the shape of latest.json.
type LatestDocument struct {
	Latest      string `json:"latest"`
	GeneratedAt string `json:"generatedAt"`
}

// StatusDocument is the shape of status.json.
type StatusDocument struct {
	OK          bool   `json:"ok"`
	Latest      string `json:"latest"`
	GeneratedAt string `json:"generatedAt"`
}

const generatedAtLayout = "2006-01-02T15:04:05Z"

// Write renders the full artifact set. The versioned row files land under
// OutDir/gtfs/<version>/; the pointers land at OutDir's root, so consumers
// polling latest.json always see a version directory that is already
// complete.
func (w *Writer) Write(build Build) error {
	versionDir := filepath.Join(w.OutDir, "gtfs", build.Version)
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		return fmt.Errorf("error creating version directory: %w", err)
	}

	rowFiles := []struct {
		name string
		data any
	}{
		{"agencies.json", build.Rows.Agencies},
		{"stops.json", build.Rows.Stops},
		{"routes.json", build.Rows.Routes},
		{"trips.json", build.Rows.Trips},
		{"stop_times.json", build.Rows.StopTimes},
		{"calendar.json", build.Rows.Calendars},
		{"calendar_dates.json", build.Rows.CalendarDates},
	}
	for _, file := range rowFiles {
		if err := w.writeJSON(filepath.Join(versionDir, file.name), file.data); err != nil {
			return err
		}
	}

	if build.Diagnostics != nil {
		if err := w.writeJSON(filepath.Join(versionDir, "pruning.json"), build.Diagnostics); err != nil {
			return err
		}
	}

	generatedAt := build.GeneratedAt.UTC().Format(generatedAtLayout)

	if err := w.writeJSON(filepath.Join(w.OutDir, "windows.json"), WindowsDoc(build, generatedAt)); err != nil {
		return err
	}

	latest := LatestDocument{Latest: build.Version, GeneratedAt: generatedAt}
	if err := w.writeJSON(filepath.Join(w.OutDir, "latest.json"), latest); err != nil {
		return err
	}

	status := StatusDocument{OK: true, Latest: latest.Latest, GeneratedAt: latest.GeneratedAt}
	return w.writeJSON(filepath.Join(w.OutDir, "status.json"), status)
}

// WindowsDoc renders the windows.json document for a build.
func WindowsDoc(build Build, generatedAt string) WindowsDocument {
	doc := WindowsDocument{
		GeneratedAt: generatedAt,
		Scan: DateRange{
			From: calendar.FormatDate(build.ScanFrom),
			To:   calendar.FormatDate(build.ScanTo),
		},
		Feed: FeedSummary{
			Version:   build.Version,
			StartDate: optional(build.FeedStartDate),
			EndDate:   optional(build.FeedEndDate),
		},
		Windows: []DateRange{},
	}
	for _, win := range build.Windows {
		doc.Windows = append(doc.Windows, DateRange{
			From: calendar.FormatDate(win.From),
			To:   calendar.FormatDate(win.To),
		})
	}
	return doc
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (w *Writer) writeJSON(path string, data any) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", filepath.Base(path), err)
	}
	encoded = append(encoded, '\n')

	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	logging.LogOperation(w.logger, "artifact_written",
		slog.String("path", path),
		slog.Int("bytes", len(encoded)))

	if !w.Gzip {
		return nil
	}
	return w.writeGzip(path+".gz", encoded)
}

func (w *Writer) writeGzip(path string, encoded []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer logging.SafeCloseWithLogging(f, w.logger, "gzip_artifact")

	gz, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err := gz.Write(encoded); err != nil {
		return fmt.Errorf("error compressing %s: %w", path, err)
	}
	return gz.Close()
}

package app

import (
	"log/slog"
	"sync"
	"time"

	"github.com/KganDev/irish-rail-schedule/gtfsdb"
	"github.com/KganDev/irish-rail-schedule/internal/appconf"
	"github.com/KganDev/irish-rail-schedule/internal/clock"
	"github.com/KganDev/irish-rail-schedule/internal/export"
	"github.com/KganDev/irish-rail-schedule/internal/metrics"
	"github.com/KganDev/irish-rail-schedule/internal/pruning"
)

// Application holds the dependencies for the builder, the status API
// handlers, and the middleware.
type Application struct {
	Config  appconf.Config
	Logger  *slog.Logger
	Clock   clock.Clock
	Metrics *metrics.Metrics
	DB      *gtfsdb.Client

	mu    sync.RWMutex
	state *BuildState
}

// BuildState is the in-memory record of the most recent successful build.
// The status API serves from it so requests never race a rebuild.
type BuildState struct {
	Version     string
	GeneratedAt time.Time

	Windows export.WindowsDocument

	// Diagnostics is nil when pruning ran in "off" mode.
	Diagnostics *pruning.Diagnostics

	// TableCounts are the snapshot-store row counts after the build.
	TableCounts map[string]int
}

// SetBuildState publishes the result of a completed build.
func (app *Application) SetBuildState(state *BuildState) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.state = state
}

// BuildState returns the latest published build, nil before the first one
// completes.
func (app *Application) BuildState() *BuildState {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.state
}

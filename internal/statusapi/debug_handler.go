package statusapi

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"github.com/KganDev/irish-rail-schedule/internal/appconf"
)

//go:embed debug_index.html
var templateFS embed.FS

type debugData struct {
	Title string
	Pre   string
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	content := spew.Sdump(data)
	w.Header().Set("Content-Type", "text/html")
	tmpl, err := template.ParseFS(templateFS, "debug_index.html")
	if err != nil {
		// Log the actual error server-side
		slog.Error("failed to parse debug template", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	dataStruct := debugData{
		Title: title,
		Pre:   content,
	}

	err = tmpl.Execute(w, dataStruct)
	if err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (api *StatusAPI) debugHandler(w http.ResponseWriter, r *http.Request) {
	if api.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}
	dataType := r.URL.Query().Get("dataType")

	state := api.BuildState()

	var data interface{}
	var title string

	switch dataType {
	case "config":
		cfg := api.Config
		// Never dump credentials, even on a dev box.
		cfg.StaticAuthHeaderValue = ""
		data = cfg
		title = "Builder - Configuration"
	case "windows":
		if state != nil {
			data = state.Windows
		}
		title = "Latest Build - Schedule Windows"
	case "diagnostics":
		if state != nil {
			data = state.Diagnostics
		}
		title = "Latest Build - Pruning Diagnostics"
	case "counts":
		if state != nil {
			data = state.TableCounts
		}
		title = "Latest Build - Table Counts"
	default:
		data = map[string]string{
			"error": "Please use one of the following: config, windows, diagnostics, counts.",
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}

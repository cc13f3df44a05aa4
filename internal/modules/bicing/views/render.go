package views

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"time"

	"bicing-dashboard/internal/modules/bicing/types"
)

var dashboardTmpl *template.Template

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format(types.DateLayout) },
	"clock": func(t time.Time) string {
		return t.Format("2006-01-02 15:04:05")
	},
	"mean": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
}

// loadTemplatesFromFS parses the page and its partials from dir within fsys.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("dashboard").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates parses the embedded templates. Call once at startup.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// DashboardData is the view model of the dashboard page.
type DashboardData struct {
	Stations        []int64
	SelectedStation int64
	Start           string
	End             string
	MinDate         string
	MaxDate         string
	Location        string

	Summary  *types.Summary
	Hourly   []types.HourlyMean
	Records  []types.StationRecord
	Forecast *types.Forecast

	// Error is shown inline instead of the results.
	Error string
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

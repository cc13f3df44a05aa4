package types

import (
	"fmt"
	"time"
)

// Column names of the station_status table.
const (
	ColStationID         = "station_id"
	ColNumBikesAvailable = "num_bikes_available"
	ColMechanical        = "mechanical"
	ColEbike             = "ebike"
	ColNumDocksAvailable = "num_docks_available"
	ColLastReported      = "last_reported"
	ColIsChargingStation = "is_charging_station"
	ColStatus            = "status"
	ColIsInstalled       = "is_installed"
	ColIsRenting         = "is_renting"
	ColIsReturning       = "is_returning"
	ColTraffic           = "traffic"
	ColLastUpdated       = "last_updated"
	ColTTL               = "ttl"
	ColV1                = "v1"
)

// Station statuses published by the feed.
const (
	StatusInService   = "IN_SERVICE"
	StatusClosed      = "CLOSED"
	StatusMaintenance = "MAINTENANCE"
	StatusPlanned     = "PLANNED"
)

// KnownStatus reports whether s is one of the feed's station statuses.
func KnownStatus(s string) bool {
	switch s {
	case StatusInService, StatusClosed, StatusMaintenance, StatusPlanned:
		return true
	}
	return false
}

// StationRecord is one fully populated row of station telemetry.
type StationRecord struct {
	StationID         int64     `json:"stationId"`
	NumBikesAvailable int64     `json:"numBikesAvailable"`
	Mechanical        int64     `json:"mechanical"`
	Ebike             int64     `json:"ebike"`
	NumDocksAvailable int64     `json:"numDocksAvailable"`
	LastReported      int64     `json:"lastReported"`
	IsChargingStation bool      `json:"isChargingStation"`
	Status            string    `json:"status"`
	IsInstalled       bool      `json:"isInstalled"`
	IsRenting         bool      `json:"isRenting"`
	IsReturning       bool      `json:"isReturning"`
	Traffic           string    `json:"traffic"`
	LastUpdated       time.Time `json:"lastUpdated"`
	TTL               int64     `json:"ttl"`
	V1                string    `json:"v1"`
}

// Summary holds the four headline scalars of a window.
type Summary struct {
	StationID      int64 `json:"stationId"`
	MeanMechanical int64 `json:"meanMechanical"`
	MeanEbike      int64 `json:"meanEbike"`
	// TotalDocks is docks + e-bikes + mechanical bikes of the first row, not an average.
	TotalDocks int64 `json:"totalDocks"`
	Rows       int   `json:"rows"`
}

// HourlyMean is the mean e-bike availability for one hour of the day.
type HourlyMean struct {
	Hour      int     `json:"hour"`
	MeanEbike float64 `json:"meanEbike"`
	Count     int     `json:"count"`
}

// Result is everything the dashboard renders for one window.
type Result struct {
	Records []StationRecord `json:"records"`
	Summary Summary         `json:"summary"`
	Hourly  []HourlyMean    `json:"hourly"`
}

// Ebike returns the e-bike availability series of the records, oldest first.
func (r Result) Ebike() []int64 {
	out := make([]int64, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.Ebike
	}
	return out
}

// QueryWindow selects one station between two inclusive instants.
type QueryWindow struct {
	StationID int64     `json:"stationId"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// WindowQuery is a bound, read-only statement for a QueryWindow.
type WindowQuery struct {
	Window QueryWindow `json:"window"`
	SQL    string      `json:"sql"`
	Args   []any       `json:"args"`
}

// DateBounds is the global last_updated range of the table.
type DateBounds struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

const DateLayout = "2006-01-02"

// MinDate returns the calendar date of Min at midnight in Min's location.
func (b DateBounds) MinDate() time.Time { return truncateDay(b.Min) }

// MaxDate returns the calendar date of Max at midnight in Max's location.
func (b DateBounds) MaxDate() time.Time { return truncateDay(b.Max) }

// Contains reports whether the calendar date d lies within the bounds.
func (b DateBounds) Contains(d time.Time) bool {
	day := truncateDay(d.In(b.Min.Location()))
	return !day.Before(b.MinDate()) && !day.After(b.MaxDate())
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Forecast is a mocked e-bike prediction ready for charting.
type Forecast struct {
	// History holds the observations the model was fed, oldest first.
	History []int64 `json:"history"`
	// Predicted holds the raw model output.
	Predicted []int64 `json:"predicted"`
	// Series is the last observed value followed by Predicted.
	Series []int64 `json:"series"`
	// Offset is the chart index of Series[0] relative to History[0].
	Offset int `json:"offset"`
}

// StatusMessage is one station status update as published on the ingest topic.
type StatusMessage struct {
	StationID         int64  `json:"station_id"`
	NumBikesAvailable int64  `json:"num_bikes_available"`
	Mechanical        int64  `json:"mechanical"`
	Ebike             int64  `json:"ebike"`
	NumDocksAvailable int64  `json:"num_docks_available"`
	LastReported      int64  `json:"last_reported"`
	IsChargingStation bool   `json:"is_charging_station"`
	Status            string `json:"status"`
	IsInstalled       int64  `json:"is_installed"`
	IsRenting         int64  `json:"is_renting"`
	IsReturning       int64  `json:"is_returning"`
	Traffic           string `json:"traffic,omitempty"`
	LastUpdated       int64  `json:"last_updated"`
	TTL               int64  `json:"ttl"`
	V1                string `json:"v1,omitempty"`
}

// Validate checks the fields the dashboard relies on.
func (m StatusMessage) Validate() error {
	if m.StationID <= 0 {
		return fmt.Errorf("station_id must be positive: %d", m.StationID)
	}
	if m.LastUpdated <= 0 {
		return fmt.Errorf("last_updated is required")
	}
	counts := []struct {
		name string
		v    int64
	}{
		{"num_bikes_available", m.NumBikesAvailable},
		{"mechanical", m.Mechanical},
		{"ebike", m.Ebike},
		{"num_docks_available", m.NumDocksAvailable},
	}
	for _, c := range counts {
		if c.v < 0 {
			return fmt.Errorf("%s must be non-negative: %d", c.name, c.v)
		}
	}
	for name, v := range map[string]int64{
		"is_installed": m.IsInstalled,
		"is_renting":   m.IsRenting,
		"is_returning": m.IsReturning,
	} {
		if v != 0 && v != 1 {
			return fmt.Errorf("%s must be 0 or 1: %d", name, v)
		}
	}
	if !KnownStatus(m.Status) {
		return fmt.Errorf("unknown status %q", m.Status)
	}
	return nil
}

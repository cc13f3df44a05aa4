package types

import "errors"

var (
	// ErrNoData is returned when a query leaves no fully populated rows.
	ErrNoData = errors.New("no data")
	// ErrMixedStations is returned when a window holds rows of more than one station.
	ErrMixedStations = errors.New("window contains more than one station")
	// ErrSchema is returned when a required column is missing or a cell has the wrong type.
	ErrSchema = errors.New("unexpected result schema")
	// ErrUnknownStation is returned for a station id outside the listed stations.
	ErrUnknownStation = errors.New("unknown station")
	// ErrInvalidWindow is returned when start is after end.
	ErrInvalidWindow = errors.New("start date must be on or before end date")
	// ErrOutOfBounds is returned when a date lies outside the table's date bounds.
	ErrOutOfBounds = errors.New("date outside available range")
)

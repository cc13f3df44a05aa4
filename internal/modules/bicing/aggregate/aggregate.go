// Package aggregate shapes raw station_status rows into dashboard figures.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"bicing-dashboard/internal/modules/bicing/types"
)

type options struct {
	loc *time.Location
}

type Option func(*options)

// WithLocation sets the location used to derive hour of day. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

var requiredColumns = []string{
	types.ColStationID,
	types.ColMechanical,
	types.ColEbike,
	types.ColNumDocksAvailable,
	types.ColLastUpdated,
}

// Shape drops incomplete rows and computes the summary and hourly e-bike
// means of a single-station window. Records come back ordered by
// last_updated. raw is modified in place.
func Shape(raw *types.Table, opts ...Option) (types.Result, error) {
	o := options{loc: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}

	if raw == nil || raw.Len() == 0 {
		return types.Result{}, types.ErrNoData
	}
	for _, col := range requiredColumns {
		if raw.Index(col) < 0 {
			return types.Result{}, fmt.Errorf("%w: missing column %s", types.ErrSchema, col)
		}
	}

	raw.DropNulls()
	if raw.Len() == 0 {
		return types.Result{}, types.ErrNoData
	}

	records, err := decodeRecords(raw, o.loc)
	if err != nil {
		return types.Result{}, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LastUpdated.Before(records[j].LastUpdated)
	})

	first := records[0]
	for _, r := range records[1:] {
		if r.StationID != first.StationID {
			return types.Result{}, fmt.Errorf("%w: %d and %d", types.ErrMixedStations, first.StationID, r.StationID)
		}
	}

	return types.Result{
		Records: records,
		Summary: summarize(records),
		Hourly:  hourlyMeans(records),
	}, nil
}

// summarize takes the station and total docks from the first record only.
func summarize(records []types.StationRecord) types.Summary {
	var mech, ebike int64
	for _, r := range records {
		mech += r.Mechanical
		ebike += r.Ebike
	}
	n := int64(len(records))
	first := records[0]
	return types.Summary{
		StationID:      first.StationID,
		MeanMechanical: mech / n,
		MeanEbike:      ebike / n,
		TotalDocks:     first.NumDocksAvailable + first.Ebike + first.Mechanical,
		Rows:           len(records),
	}
}

func hourlyMeans(records []types.StationRecord) []types.HourlyMean {
	var (
		sums   [24]int64
		counts [24]int
	)
	for _, r := range records {
		h := r.LastUpdated.Hour()
		sums[h] += r.Ebike
		counts[h]++
	}

	out := make([]types.HourlyMean, 0, 24)
	for h := range 24 {
		if counts[h] == 0 {
			continue
		}
		out = append(out, types.HourlyMean{
			Hour:      h,
			MeanEbike: float64(sums[h]) / float64(counts[h]),
			Count:     counts[h],
		})
	}
	return out
}

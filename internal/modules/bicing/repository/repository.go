package repository

import (
	"context"
	_ "embed"
	"fmt"
	"slices"
	"time"

	"bicing-dashboard/internal/modules/bicing/types"
)

//go:embed sql/list-stations.sql
var listStationsSQL string

//go:embed sql/date-bounds.sql
var dateBoundsSQL string

//go:embed sql/window.sql
var windowSQL string

//go:embed sql/recent.sql
var recentSQL string

// Querier runs read-only statements against the warehouse.
type Querier interface {
	Query(ctx context.Context, stmt string, freshness time.Duration, args ...any) (*types.Table, error)
}

// Resolver turns dashboard selections into bound warehouse queries.
type Resolver interface {
	ListStations(ctx context.Context) ([]int64, error)
	DateBounds(ctx context.Context) (types.DateBounds, error)
	BuildWindowQuery(stationID int64, start, end time.Time) (types.WindowQuery, error)
	ResolveWindow(ctx context.Context, stationID int64, start, end time.Time) (types.WindowQuery, error)
	FetchWindow(ctx context.Context, q types.WindowQuery) (*types.Table, error)
	FetchRecent(ctx context.Context, stationID int64, n int) (*types.Table, error)
	Location() *time.Location
}

type resolverImpl struct {
	src       Querier
	freshness time.Duration
	loc       *time.Location
}

// NewResolver returns a Resolver whose queries may be served from cache for
// up to freshness. Calendar dates are interpreted in loc (UTC when nil).
func NewResolver(src Querier, freshness time.Duration, loc *time.Location) Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &resolverImpl{src: src, freshness: freshness, loc: loc}
}

func (r *resolverImpl) Location() *time.Location {
	return r.loc
}

func (r *resolverImpl) ListStations(ctx context.Context) ([]int64, error) {
	tbl, err := r.src.Query(ctx, listStationsSQL, r.freshness)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	if tbl.Len() == 0 {
		return []int64{}, nil
	}
	idx := tbl.Index(types.ColStationID)
	if idx < 0 {
		return nil, fmt.Errorf("list stations: %w: missing %s", types.ErrSchema, types.ColStationID)
	}

	out := make([]int64, 0, tbl.Len())
	for _, row := range tbl.Rows {
		id, err := types.AsInt64(row[idx])
		if err != nil {
			return nil, fmt.Errorf("list stations: %w", err)
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (r *resolverImpl) DateBounds(ctx context.Context) (types.DateBounds, error) {
	tbl, err := r.src.Query(ctx, dateBoundsSQL, r.freshness)
	if err != nil {
		return types.DateBounds{}, fmt.Errorf("date bounds: %w", err)
	}
	if tbl.Len() == 0 {
		return types.DateBounds{}, types.ErrNoData
	}

	row := tbl.Rows[0]
	if len(row) < 2 {
		return types.DateBounds{}, fmt.Errorf("date bounds: %w: want 2 columns, got %d", types.ErrSchema, len(row))
	}
	minTS, err := types.AsInt64(row[0])
	if err != nil {
		return types.DateBounds{}, fmt.Errorf("date bounds: %w", err)
	}
	maxTS, err := types.AsInt64(row[1])
	if err != nil {
		return types.DateBounds{}, fmt.Errorf("date bounds: %w", err)
	}
	return types.DateBounds{
		Min: time.Unix(minTS, 0).In(r.loc),
		Max: time.Unix(maxTS, 0).In(r.loc),
	}, nil
}

// BuildWindowQuery spans the start date from 00:00:00 to the end date at
// 23:59:59 in the resolver's location.
func (r *resolverImpl) BuildWindowQuery(stationID int64, start, end time.Time) (types.WindowQuery, error) {
	from := dayStart(start, r.loc)
	to := dayEnd(end, r.loc)
	if to.Before(from) {
		return types.WindowQuery{}, types.ErrInvalidWindow
	}
	return types.WindowQuery{
		Window: types.QueryWindow{StationID: stationID, Start: from, End: to},
		SQL:    windowSQL,
		Args:   []any{stationID, from.Unix(), to.Unix()},
	}, nil
}

func (r *resolverImpl) ResolveWindow(ctx context.Context, stationID int64, start, end time.Time) (types.WindowQuery, error) {
	if dayStart(end, r.loc).Before(dayStart(start, r.loc)) {
		return types.WindowQuery{}, types.ErrInvalidWindow
	}

	stations, err := r.ListStations(ctx)
	if err != nil {
		return types.WindowQuery{}, err
	}
	if _, found := slices.BinarySearch(stations, stationID); !found {
		return types.WindowQuery{}, fmt.Errorf("%w: %d", types.ErrUnknownStation, stationID)
	}

	bounds, err := r.DateBounds(ctx)
	if err != nil {
		return types.WindowQuery{}, err
	}
	for _, d := range []time.Time{start, end} {
		if !bounds.Contains(d.In(r.loc)) {
			return types.WindowQuery{}, fmt.Errorf("%w: %s not in [%s, %s]", types.ErrOutOfBounds,
				d.In(r.loc).Format(types.DateLayout),
				bounds.MinDate().Format(types.DateLayout),
				bounds.MaxDate().Format(types.DateLayout))
		}
	}

	return r.BuildWindowQuery(stationID, start, end)
}

func (r *resolverImpl) FetchWindow(ctx context.Context, q types.WindowQuery) (*types.Table, error) {
	tbl, err := r.src.Query(ctx, q.SQL, r.freshness, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("fetch window for station %d: %w", q.Window.StationID, err)
	}
	return tbl, nil
}

// FetchRecent returns up to n of the station's latest rows, newest first.
func (r *resolverImpl) FetchRecent(ctx context.Context, stationID int64, n int) (*types.Table, error) {
	if n < 1 {
		return nil, fmt.Errorf("fetch recent: n must be positive, got %d", n)
	}
	tbl, err := r.src.Query(ctx, recentSQL, r.freshness, stationID, n)
	if err != nil {
		return nil, fmt.Errorf("fetch recent for station %d: %w", stationID, err)
	}
	return tbl, nil
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func dayEnd(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 23, 59, 59, 0, loc)
}

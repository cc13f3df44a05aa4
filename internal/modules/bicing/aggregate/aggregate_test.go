package aggregate

import (
	"math"
	"testing"
	"time"

	"bicing-dashboard/internal/modules/bicing/types"

	"github.com/stretchr/testify/require"
)

// 2023-03-01 00:00:00 UTC
const day0 = int64(1677628800)

var columns = []string{
	types.ColStationID, types.ColMechanical, types.ColEbike,
	types.ColNumDocksAvailable, types.ColLastUpdated, types.ColStatus,
}

func row(station, mech, ebike, docks, updated int64) []any {
	return []any{station, mech, ebike, docks, updated, types.StatusInService}
}

func TestShape_HourlyIdentity(t *testing.T) {
	tbl := &types.Table{Columns: columns}
	for h := int64(0); h < 24; h++ {
		tbl.Rows = append(tbl.Rows, row(429, 1, h, 10, day0+h*3600))
	}

	res, err := Shape(tbl)
	require.NoError(t, err)
	require.Len(t, res.Hourly, 24)
	for h, m := range res.Hourly {
		require.Equal(t, h, m.Hour)
		require.Equal(t, float64(h), m.MeanEbike)
		require.Equal(t, 1, m.Count)
	}
	require.Equal(t, int64(429), res.Summary.StationID)
}

func TestShape_Summary(t *testing.T) {
	tbl := &types.Table{Columns: columns, Rows: [][]any{
		row(7, 3, 2, 15, day0+3600),
		row(7, 4, 3, 1, day0+7200),
		row(7, 4, 3, 2, day0+10800),
	}}

	res, err := Shape(tbl)
	require.NoError(t, err)

	// means: mechanical 11/3 = 3.67, ebike 8/3 = 2.67
	require.Equal(t, types.Summary{
		StationID:      7,
		MeanMechanical: 3,
		MeanEbike:      2,
		TotalDocks:     15 + 2 + 3,
		Rows:           3,
	}, res.Summary)
}

func TestShape_TotalDocksFromEarliestRow(t *testing.T) {
	tbl := &types.Table{Columns: columns, Rows: [][]any{
		row(7, 1, 1, 1, day0+7200),
		row(7, 5, 5, 20, day0),
	}}

	res, err := Shape(tbl)
	require.NoError(t, err)
	require.Equal(t, int64(30), res.Summary.TotalDocks)
	require.True(t, res.Records[0].LastUpdated.Before(res.Records[1].LastUpdated))
}

func TestShape_MeanEbikeIsFloor(t *testing.T) {
	values := []int64{0, 1, 1, 5, 9, 2, 3}
	tbl := &types.Table{Columns: columns}
	var sum int64
	for i, v := range values {
		tbl.Rows = append(tbl.Rows, row(1, 0, v, 0, day0+int64(i)*60))
		sum += v
	}

	res, err := Shape(tbl)
	require.NoError(t, err)
	want := int64(math.Floor(float64(sum) / float64(len(values))))
	require.Equal(t, want, res.Summary.MeanEbike)
	require.GreaterOrEqual(t, res.Summary.MeanEbike, int64(0))
}

func TestShape_HourlyMeansSparse(t *testing.T) {
	tbl := &types.Table{Columns: columns, Rows: [][]any{
		row(1, 0, 2, 0, day0+8*3600),
		row(1, 0, 5, 0, day0+8*3600+1800),
		row(1, 0, 4, 0, day0+86400+8*3600),
		row(1, 0, 9, 0, day0+17*3600),
	}}

	res, err := Shape(tbl)
	require.NoError(t, err)
	require.Equal(t, []types.HourlyMean{
		{Hour: 8, MeanEbike: 11.0 / 3.0, Count: 3},
		{Hour: 17, MeanEbike: 9, Count: 1},
	}, res.Hourly)
}

func TestShape_WithLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	tbl := &types.Table{Columns: columns, Rows: [][]any{
		row(1, 0, 4, 0, day0+23*3600),
	}}

	res, err := Shape(tbl, WithLocation(loc))
	require.NoError(t, err)
	require.Equal(t, 0, res.Hourly[0].Hour)
	require.Equal(t, loc, res.Records[0].LastUpdated.Location())
}

func TestShape_DropsNullRows(t *testing.T) {
	tbl := &types.Table{Columns: columns, Rows: [][]any{
		row(1, 2, 3, 4, day0),
		{int64(1), nil, int64(100), int64(4), day0 + 60, types.StatusInService},
		{int64(1), int64(2), int64(100), int64(4), nil, types.StatusInService},
	}}

	res, err := Shape(tbl)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	require.Equal(t, int64(3), res.Summary.MeanEbike)
	for _, r := range tbl.Rows {
		for _, c := range r {
			require.NotNil(t, c)
		}
	}
}

func TestShape_Errors(t *testing.T) {
	tests := []struct {
		name string
		tbl  *types.Table
		want error
	}{
		{name: "nil table", tbl: nil, want: types.ErrNoData},
		{name: "no rows", tbl: &types.Table{Columns: columns}, want: types.ErrNoData},
		{
			name: "only null rows",
			tbl:  &types.Table{Columns: columns, Rows: [][]any{{nil, nil, nil, nil, nil, nil}}},
			want: types.ErrNoData,
		},
		{
			name: "mixed stations",
			tbl:  &types.Table{Columns: columns, Rows: [][]any{row(1, 0, 0, 0, day0), row(2, 0, 0, 0, day0+60)}},
			want: types.ErrMixedStations,
		},
		{
			name: "missing column",
			tbl:  &types.Table{Columns: []string{types.ColStationID}, Rows: [][]any{{int64(1)}}},
			want: types.ErrSchema,
		},
		{
			name: "non numeric cell",
			tbl:  &types.Table{Columns: columns, Rows: [][]any{{int64(1), "many", int64(0), int64(0), day0, "x"}}},
			want: types.ErrSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Shape(tt.tbl)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"bicing-dashboard/internal/modules/bicing/types"

	"github.com/stretchr/testify/require"
)

type stubConnection struct {
	table     *types.Table
	err       error
	calls     int
	freshness time.Duration
	args      []any
}

func (s *stubConnection) Query(_ context.Context, _ string, freshness time.Duration, args ...any) (*types.Table, error) {
	s.calls++
	s.freshness = freshness
	s.args = args
	return s.table, s.err
}

func TestAdapter_Query_DropsNullRows(t *testing.T) {
	conn := &stubConnection{table: &types.Table{
		Columns: []string{"station_id", "ebike"},
		Rows: [][]any{
			{int64(1), int64(3)},
			{int64(1), nil},
			{nil, int64(2)},
		},
	}}
	a := NewAdapter(conn)

	tbl, err := a.Query(context.Background(), "SELECT station_id, ebike FROM station_status WHERE station_id = ?", 20*time.Minute, int64(1))
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	require.Equal(t, 20*time.Minute, conn.freshness)
	require.Equal(t, []any{int64(1)}, conn.args)

	for _, row := range tbl.Rows {
		for _, c := range row {
			require.NotNil(t, c)
		}
	}
}

func TestAdapter_Query_RejectsWrites(t *testing.T) {
	conn := &stubConnection{}
	a := NewAdapter(conn)

	for _, stmt := range []string{
		"DELETE FROM station_status",
		"INSERT INTO station_status (station_id) VALUES (1)",
		"SELECT 1; DROP TABLE station_status",
		"   ",
		"-- SELECT\nUPDATE station_status SET ebike = 0",
	} {
		_, err := a.Query(context.Background(), stmt, 0)
		require.ErrorIs(t, err, ErrNotReadOnly, stmt)
	}
	require.Zero(t, conn.calls)
}

func TestAdapter_Query_AcceptsCommentedSelect(t *testing.T) {
	conn := &stubConnection{table: &types.Table{Columns: []string{"n"}}}
	a := NewAdapter(conn)

	_, err := a.Query(context.Background(), "-- list\nselect 1 AS n;\n", 0)
	require.NoError(t, err)
	require.Equal(t, 1, conn.calls)
}

func TestAdapter_Query_PropagatesErrors(t *testing.T) {
	boom := errors.New("warehouse unreachable")
	a := NewAdapter(&stubConnection{err: boom})

	_, err := a.Query(context.Background(), "SELECT 1", 0)
	require.ErrorIs(t, err, boom)
}

func TestAdapter_Query_NilTable(t *testing.T) {
	a := NewAdapter(&stubConnection{})

	tbl, err := a.Query(context.Background(), "SELECT 1", 0)
	require.NoError(t, err)
	require.Zero(t, tbl.Len())
}

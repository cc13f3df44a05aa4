package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bicing-dashboard/internal/modules/bicing/types"
)

// ErrNotReadOnly is returned for statements other than a single SELECT.
var ErrNotReadOnly = errors.New("statement is not a read-only select")

// Connection executes a statement against the warehouse. Results may be
// served from a cache when they are younger than freshness.
type Connection interface {
	Query(ctx context.Context, stmt string, freshness time.Duration, args ...any) (*types.Table, error)
}

// Adapter is the only path from the dashboard to the warehouse.
type Adapter struct {
	conn Connection
}

func NewAdapter(conn Connection) *Adapter {
	return &Adapter{conn: conn}
}

// Query runs a read-only statement and returns its rows with every
// null-bearing row removed.
func (a *Adapter) Query(ctx context.Context, stmt string, freshness time.Duration, args ...any) (*types.Table, error) {
	if !isReadOnly(stmt) {
		return nil, ErrNotReadOnly
	}
	tbl, err := a.conn.Query(ctx, stmt, freshness, args...)
	if err != nil {
		return nil, fmt.Errorf("warehouse query: %w", err)
	}
	if tbl == nil {
		tbl = &types.Table{}
	}
	tbl.DropNulls()
	return tbl, nil
}

func isReadOnly(stmt string) bool {
	s := strings.TrimSpace(stripLineComments(stmt))
	s = strings.TrimRight(s, "; \t\r\n")
	if s == "" || strings.Contains(s, ";") {
		return false
	}
	fields := strings.Fields(s)
	return strings.EqualFold(fields[0], "SELECT")
}

func stripLineComments(stmt string) string {
	var b strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

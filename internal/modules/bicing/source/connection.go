package source

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"bicing-dashboard/internal/cache"
	"bicing-dashboard/internal/db"
	"bicing-dashboard/internal/modules/bicing/types"

	"golang.org/x/time/rate"
)

// SQLConnection is a Connection over database/sql with a result cache and
// a limiter on warehouse round trips.
type SQLConnection struct {
	db      *sql.DB
	driver  string
	cache   cache.ResultCache
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewSQLConnection wires a pool to a cache. A nil cache disables caching and
// a nil limiter disables throttling.
func NewSQLConnection(sqlDB *sql.DB, driverName string, c cache.ResultCache, limiter *rate.Limiter, logger *slog.Logger) *SQLConnection {
	if c == nil {
		c = cache.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLConnection{
		db:      sqlDB,
		driver:  driverName,
		cache:   c,
		limiter: limiter,
		logger:  logger,
	}
}

// NewLimiter returns the warehouse throttle for rps queries per second.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func (c *SQLConnection) Query(ctx context.Context, stmt string, freshness time.Duration, args ...any) (*types.Table, error) {
	key := cache.Key(stmt, args...)
	if freshness > 0 {
		if tbl, ok := c.cached(ctx, key); ok {
			return tbl, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait canceled: %w", err)
		}
	}

	tbl, err := c.query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}

	if freshness > 0 {
		c.store(ctx, key, tbl, freshness)
	}
	return tbl, nil
}

func (c *SQLConnection) cached(ctx context.Context, key string) (*types.Table, bool) {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("result cache read failed", "key", key, "err", err)
		return nil, false
	}
	if !ok {
		c.logger.Debug("result cache miss", "key", key)
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tbl types.Table
	if err := dec.Decode(&tbl); err != nil {
		c.logger.Warn("result cache entry undecodable", "key", key, "err", err)
		return nil, false
	}
	c.logger.Debug("result cache hit", "key", key, "rows", tbl.Len())
	return &tbl, true
}

func (c *SQLConnection) store(ctx context.Context, key string, tbl *types.Table, ttl time.Duration) {
	data, err := json.Marshal(tbl)
	if err != nil {
		c.logger.Warn("result cache encode failed", "key", key, "err", err)
		return
	}
	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn("result cache write failed", "key", key, "err", err)
	}
}

func (c *SQLConnection) query(ctx context.Context, stmt string, args ...any) (*types.Table, error) {
	rows, err := c.db.QueryContext(ctx, db.Rebind(c.driver, stmt), args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			c.logger.Warn("rows close failed", "err", cerr)
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	tbl := &types.Table{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range cells {
			if b, ok := v.([]byte); ok {
				cells[i] = string(b)
			}
		}
		tbl.Rows = append(tbl.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return tbl, nil
}

var _ Connection = (*SQLConnection)(nil)

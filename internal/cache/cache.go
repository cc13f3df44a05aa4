package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ResultCache stores encoded query results for a bounded time.
type ResultCache interface {
	// Get returns the cached value and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl. A ttl <= 0 stores nothing.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key derives a stable cache key from a statement and its bound arguments.
func Key(stmt string, args ...any) string {
	d := xxhash.New()
	_, _ = d.WriteString(stmt)
	for _, a := range args {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(fmt.Sprintf("%T:%v", a, a))
	}
	return "bicing:query:" + strconv.FormatUint(d.Sum64(), 16)
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

var _ ResultCache = Noop{}

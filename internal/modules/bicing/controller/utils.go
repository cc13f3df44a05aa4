package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"bicing-dashboard/internal/modules/bicing/aggregate"
	"bicing-dashboard/internal/modules/bicing/forecast"
	"bicing-dashboard/internal/modules/bicing/types"
)

// paramError is a malformed request parameter.
type paramError struct {
	msg string
}

func (e *paramError) Error() string { return e.msg }

func badParam(format string, args ...any) error {
	return &paramError{msg: fmt.Sprintf(format, args...)}
}

// statusFor maps a pipeline error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	var pe *paramError
	switch {
	case errors.As(err, &pe):
		return http.StatusBadRequest, pe.msg
	case errors.Is(err, types.ErrNoData):
		return http.StatusNotFound, "no data for the selected station and dates"
	case errors.Is(err, types.ErrUnknownStation),
		errors.Is(err, types.ErrInvalidWindow),
		errors.Is(err, types.ErrOutOfBounds),
		errors.Is(err, forecast.ErrEmptyInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request canceled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func parseStationID(r *http.Request) (int64, error) {
	return parseID(r.PathValue("id"))
}

func parseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, badParam("missing station id")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, badParam("invalid station id %q (expected positive integer)", s)
	}
	return id, nil
}

// parseDate reads a YYYY-MM-DD query parameter; ok is false when it is absent.
func parseDate(r *http.Request, key string, loc *time.Location) (d time.Time, ok bool, err error) {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return time.Time{}, false, nil
	}
	d, err = time.ParseInLocation(types.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, false, badParam("invalid '%s' (expected YYYY-MM-DD)", key)
	}
	return d, true, nil
}

type windowResult struct {
	query  types.WindowQuery
	result types.Result
}

// loadWindow resolves the request's window, defaulting missing dates to the
// table's bounds, and shapes the rows.
func (c *bicingControllerImpl) loadWindow(ctx context.Context, r *http.Request, stationID int64) (windowResult, error) {
	loc := c.resolver.Location()
	start, hasStart, err := parseDate(r, "start", loc)
	if err != nil {
		return windowResult{}, err
	}
	end, hasEnd, err := parseDate(r, "end", loc)
	if err != nil {
		return windowResult{}, err
	}
	if !hasStart || !hasEnd {
		bounds, err := c.resolver.DateBounds(ctx)
		if err != nil {
			return windowResult{}, err
		}
		if !hasStart {
			start = bounds.MinDate()
		}
		if !hasEnd {
			end = bounds.MaxDate()
		}
	}

	q, err := c.resolver.ResolveWindow(ctx, stationID, start, end)
	if err != nil {
		return windowResult{}, err
	}
	tbl, err := c.resolver.FetchWindow(ctx, q)
	if err != nil {
		return windowResult{}, err
	}
	res, err := aggregate.Shape(tbl, aggregate.WithLocation(loc))
	if err != nil {
		return windowResult{}, err
	}
	return windowResult{query: q, result: res}, nil
}

// loadRecent shapes the station's latest rows for a forecast without a window.
func (c *bicingControllerImpl) loadRecent(ctx context.Context, stationID int64) (types.Result, error) {
	stations, err := c.resolver.ListStations(ctx)
	if err != nil {
		return types.Result{}, err
	}
	if !slices.Contains(stations, stationID) {
		return types.Result{}, fmt.Errorf("%w: %d", types.ErrUnknownStation, stationID)
	}

	tbl, err := c.resolver.FetchRecent(ctx, stationID, c.recent)
	if err != nil {
		return types.Result{}, err
	}
	return aggregate.Shape(tbl, aggregate.WithLocation(c.resolver.Location()))
}

func hasWindowParams(r *http.Request) bool {
	q := r.URL.Query()
	return q.Get("start") != "" || q.Get("end") != ""
}

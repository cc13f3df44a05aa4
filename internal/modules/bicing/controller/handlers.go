package controller

import (
	"cmp"
	"io"
	"net/http"

	"bicing-dashboard/internal/httpapi"
	"bicing-dashboard/internal/modules/bicing/types"
	"bicing-dashboard/internal/modules/bicing/views"
	"bicing-dashboard/internal/utils"
)

type boundsResponse struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

type windowResponse struct {
	Query   types.QueryWindow     `json:"query"`
	Summary types.Summary         `json:"summary"`
	Hourly  []types.HourlyMean    `json:"hourly"`
	Records []types.StationRecord `json:"records"`
}

func (c *bicingControllerImpl) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		c.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpapi.RequestID(r.Context()),
			"error", err,
		)
	} else {
		c.logger.Debug("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"request_id", httpapi.RequestID(r.Context()),
			"error", err,
		)
	}
	utils.WriteError(w, status, msg)
}

func (c *bicingControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.resolver.ListStations(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *bicingControllerImpl) handleBounds(w http.ResponseWriter, r *http.Request) {
	bounds, err := c.resolver.DateBounds(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, boundsResponse{
		Min: bounds.MinDate().Format(types.DateLayout),
		Max: bounds.MaxDate().Format(types.DateLayout),
	})
}

func (c *bicingControllerImpl) handleWindow(w http.ResponseWriter, r *http.Request) {
	id, err := parseStationID(r)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	win, err := c.loadWindow(r.Context(), r, id)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, windowResponse{
		Query:   win.query.Window,
		Summary: win.result.Summary,
		Hourly:  win.result.Hourly,
		Records: win.result.Records,
	})
}

func (c *bicingControllerImpl) handleForecast(w http.ResponseWriter, r *http.Request) {
	id, err := parseStationID(r)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	var res types.Result
	if hasWindowParams(r) {
		var win windowResult
		win, err = c.loadWindow(r.Context(), r, id)
		res = win.result
	} else {
		res, err = c.loadRecent(r.Context(), id)
	}
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	fc, err := c.forecaster.Run(r.Context(), res.Ebike())
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, fc)
}

func (c *bicingControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := &views.DashboardData{Location: c.resolver.Location().String()}

	render := func(status int) {
		utils.WriteHTML(w, status, func(out io.Writer) error {
			return views.RenderDashboard(out, data)
		})
	}
	fail := func(err error) {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			c.logger.Error("dashboard failed", "request_id", httpapi.RequestID(ctx), "error", err)
		}
		data.Error = msg
		render(status)
	}

	stations, err := c.resolver.ListStations(ctx)
	if err != nil {
		fail(err)
		return
	}
	data.Stations = stations
	if len(stations) == 0 {
		fail(types.ErrNoData)
		return
	}

	bounds, err := c.resolver.DateBounds(ctx)
	if err != nil {
		fail(err)
		return
	}
	data.MinDate = bounds.MinDate().Format(types.DateLayout)
	data.MaxDate = bounds.MaxDate().Format(types.DateLayout)

	query := r.URL.Query()
	data.Start = cmp.Or(query.Get("start"), data.MinDate)
	data.End = cmp.Or(query.Get("end"), data.MaxDate)
	data.SelectedStation = stations[0]
	if s := query.Get("station"); s != "" {
		id, err := parseID(s)
		if err != nil {
			fail(err)
			return
		}
		data.SelectedStation = id
	}

	win, err := c.loadWindow(ctx, r, data.SelectedStation)
	if err != nil {
		fail(err)
		return
	}
	data.Start = win.query.Window.Start.Format(types.DateLayout)
	data.End = win.query.Window.End.Format(types.DateLayout)
	data.Summary = &win.result.Summary
	data.Hourly = win.result.Hourly
	data.Records = win.result.Records

	if query.Get("forecast") == "1" {
		fc, err := c.forecaster.Run(ctx, win.result.Ebike())
		if err != nil {
			fail(err)
			return
		}
		data.Forecast = &fc
	}

	render(http.StatusOK)
}

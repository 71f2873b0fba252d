package demand

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fleetsight/fleetsight/internal/server"
	"github.com/fleetsight/fleetsight/pkg/module"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Routes implements module.HTTPProvider. Mounted under /api/v1/demand/.
func (m *Module) Routes() []module.Route {
	return []module.Route{
		{Method: http.MethodGet, Path: "/forecast", Handler: m.handleForecast},
		{Method: http.MethodGet, Path: "/runs", Handler: m.handleRuns},
		{Method: http.MethodGet, Path: "/runs/{id}", Handler: m.handleRunRows},
	}
}

// forecastResponse is the JSON body returned by GET /forecast.
type forecastResponse struct {
	RunID       string             `json:"run_id"`
	Periods     int                `json:"periods"`
	HistoryRows int                `json:"history_rows"`
	Rows        []fleetForecastRow `json:"rows"`
}

// fleetForecastRow mirrors fleet.ForecastRow with a date-only string.
type fleetForecastRow struct {
	Date     string   `json:"date"`
	Actual   *float64 `json:"actual,omitempty"`
	Estimate float64  `json:"estimate"`
	Lower    float64  `json:"lower"`
	Upper    float64  `json:"upper"`
}

// handleForecast generates a forecast for ?periods=N future days, persists
// the run, and returns history rows joined with actuals plus future rows.
func (m *Module) handleForecast(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("periods")
	if raw == "" {
		server.BadRequest(w, "missing required query parameter: periods", r.URL.Path)
		return
	}
	periods, err := strconv.Atoi(raw)
	if err != nil {
		server.BadRequest(w, "periods must be an integer", r.URL.Path)
		return
	}
	if periods < 1 {
		server.BadRequest(w, "periods must be positive", r.URL.Path)
		return
	}
	if periods > m.cfg.MaxHorizon {
		server.BadRequest(w, "periods exceeds maximum horizon of "+strconv.Itoa(m.cfg.MaxHorizon), r.URL.Path)
		return
	}

	forecaster := m.currentForecaster()
	if forecaster == nil || !forecaster.Trained() {
		server.Unavailable(w, "demand forecaster is not trained yet", r.URL.Path)
		return
	}

	rows, err := forecaster.Forecast(periods)
	if err != nil {
		m.logger.Error("forecast failed", zap.Error(err))
		server.InternalError(w, "forecast generation failed", r.URL.Path)
		return
	}

	historyRows := len(rows) - periods
	run := ForecastRun{
		ID:          uuid.NewString(),
		Periods:     periods,
		HistoryRows: historyRows,
		GeneratedAt: time.Now().UTC(),
	}

	if m.store != nil {
		if err := m.store.InsertRun(r.Context(), run, rows); err != nil {
			// Persistence is best-effort; the forecast itself is still good.
			m.logger.Error("persist forecast run", zap.Error(err))
		}
	}

	if m.bus != nil {
		m.bus.PublishAsync(r.Context(), module.Event{
			Topic:     TopicForecastGenerated,
			Source:    "demand",
			Timestamp: time.Now(),
			Payload:   run,
		})
	}

	resp := forecastResponse{
		RunID:       run.ID,
		Periods:     periods,
		HistoryRows: historyRows,
		Rows:        make([]fleetForecastRow, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, fleetForecastRow{
			Date:     row.Date.Format("2006-01-02"),
			Actual:   row.Actual,
			Estimate: row.Estimate,
			Lower:    row.Lower,
			Upper:    row.Upper,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRuns lists recent persisted forecast runs.
func (m *Module) handleRuns(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		server.Unavailable(w, "forecast persistence is not configured", r.URL.Path)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			server.BadRequest(w, "limit must be a positive integer", r.URL.Path)
			return
		}
		limit = n
	}

	runs, err := m.store.ListRuns(r.Context(), limit)
	if err != nil {
		m.logger.Error("list forecast runs", zap.Error(err))
		server.InternalError(w, "failed to list forecast runs", r.URL.Path)
		return
	}
	if runs == nil {
		runs = []ForecastRun{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleRunRows returns the stored rows of one forecast run.
func (m *Module) handleRunRows(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		server.Unavailable(w, "forecast persistence is not configured", r.URL.Path)
		return
	}

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		server.BadRequest(w, "run id must be a UUID", r.URL.Path)
		return
	}

	rows, err := m.store.RunRows(r.Context(), id)
	if err != nil {
		m.logger.Error("load forecast run rows", zap.Error(err))
		server.InternalError(w, "failed to load forecast run", r.URL.Path)
		return
	}
	if len(rows) == 0 {
		server.NotFound(w, "forecast run not found", r.URL.Path)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"run_id": id, "rows": rows})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

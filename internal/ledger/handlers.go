package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fleetsight/fleetsight/internal/server"
	"github.com/fleetsight/fleetsight/pkg/fleet"
	"github.com/fleetsight/fleetsight/pkg/module"
	"go.uber.org/zap"
)

// Routes implements module.HTTPProvider. Mounted under /api/v1/ledger/.
func (m *Module) Routes() []module.Route {
	return []module.Route{
		{Method: http.MethodGet, Path: "/equipment", Handler: m.handleListEquipment},
		{Method: http.MethodGet, Path: "/equipment/{id}", Handler: m.handleGetEquipment},
		{Method: http.MethodPost, Path: "/equipment/{id}/return", Handler: m.handleReturn},
		{Method: http.MethodGet, Path: "/alerts", Handler: m.handleAlerts},
		{Method: http.MethodGet, Path: "/summary", Handler: m.handleSummary},
		{Method: http.MethodGet, Path: "/sustainability", Handler: m.handleSustainability},
	}
}

// handleListEquipment returns the latest state of every machine.
func (m *Module) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	records, err := m.store.List(r.Context())
	if err != nil {
		m.logger.Error("list equipment", zap.Error(err))
		server.InternalError(w, "failed to list equipment", r.URL.Path)
		return
	}
	if records == nil {
		records = []fleet.EquipmentRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"equipment": records})
}

// handleGetEquipment returns one machine with its current alert findings.
func (m *Module) handleGetEquipment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := m.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUnknownEquipment) {
			server.NotFound(w, "unknown equipment: "+id, r.URL.Path)
			return
		}
		m.logger.Error("get equipment", zap.String("equipment_id", id), zap.Error(err))
		server.InternalError(w, "failed to load equipment", r.URL.Path)
		return
	}

	alerts := EvaluateAlerts(rec, m.cfg, time.Now().UTC())
	if alerts == nil {
		alerts = []fleet.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"equipment": rec, "alerts": alerts})
}

// handleReturn processes a rental return. Only rented machines can come
// back; anything else is a state conflict.
func (m *Module) handleReturn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := m.store.Return(r.Context(), id, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownEquipment):
			server.NotFound(w, "unknown equipment: "+id, r.URL.Path)
		case errors.Is(err, ErrNotRented):
			server.Conflict(w, err.Error(), r.URL.Path)
		default:
			m.logger.Error("return equipment", zap.String("equipment_id", id), zap.Error(err))
			server.InternalError(w, "failed to process return", r.URL.Path)
		}
		return
	}

	if m.bus != nil {
		m.bus.PublishAsync(r.Context(), module.Event{
			Topic:     TopicEquipmentReturned,
			Source:    "ledger",
			Timestamp: time.Now(),
			Payload:   rec,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"equipment": rec})
}

// handleAlerts evaluates every rule across the fleet.
func (m *Module) handleAlerts(w http.ResponseWriter, r *http.Request) {
	records, err := m.store.List(r.Context())
	if err != nil {
		m.logger.Error("list equipment for alerts", zap.Error(err))
		server.InternalError(w, "failed to evaluate alerts", r.URL.Path)
		return
	}

	alerts := EvaluateFleetAlerts(records, m.cfg, time.Now().UTC())
	if alerts == nil {
		alerts = []fleet.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// handleSummary returns the fleet overview used by the dashboard header.
func (m *Module) handleSummary(w http.ResponseWriter, r *http.Request) {
	records, err := m.store.List(r.Context())
	if err != nil {
		m.logger.Error("list equipment for summary", zap.Error(err))
		server.InternalError(w, "failed to build summary", r.URL.Path)
		return
	}

	now := time.Now().UTC()
	summary := fleet.FleetSummary{
		TotalEquipment: len(records),
		ByStatus:       make(map[string]int),
		ByType:         make(map[string]int),
		ActiveAlerts:   len(EvaluateFleetAlerts(records, m.cfg, now)),
		GeneratedAt:    now,
	}
	for _, rec := range records {
		summary.ByStatus[rec.Status]++
		summary.ByType[rec.Type]++
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleSustainability returns the fleet CO2 estimate.
func (m *Module) handleSustainability(w http.ResponseWriter, r *http.Request) {
	records, err := m.store.List(r.Context())
	if err != nil {
		m.logger.Error("list equipment for emissions", zap.Error(err))
		server.InternalError(w, "failed to build emissions report", r.URL.Path)
		return
	}

	writeJSON(w, http.StatusOK, BuildEmissionsReport(records, m.cfg, time.Now().UTC()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

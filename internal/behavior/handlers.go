package behavior

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fleetsight/fleetsight/internal/server"
	"github.com/fleetsight/fleetsight/pkg/module"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Routes implements module.HTTPProvider. Mounted under /api/v1/behavior/.
func (m *Module) Routes() []module.Route {
	return []module.Route{
		{Method: http.MethodGet, Path: "/analyze/{equipment_id}", Handler: m.handleAnalyze},
		{Method: http.MethodGet, Path: "/verdicts", Handler: m.handleVerdicts},
	}
}

// handleAnalyze scores the latest telemetry window of one machine against
// the trained model and returns a fresh verdict.
func (m *Module) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	equipmentID := r.PathValue("equipment_id")

	detector := m.currentDetector()
	if detector == nil {
		server.Unavailable(w, "behavioral model is not trained yet", r.URL.Path)
		return
	}

	samples, known := m.samplesFor(equipmentID)
	if !known {
		server.NotFound(w, "unknown equipment: "+equipmentID, r.URL.Path)
		return
	}

	verdict, err := detector.Analyze(equipmentID, samples)
	if err != nil {
		if errors.Is(err, ErrInsufficientData) {
			server.BadRequest(w, err.Error(), r.URL.Path)
			return
		}
		m.logger.Error("analyze failed", zap.String("equipment_id", equipmentID), zap.Error(err))
		server.InternalError(w, "anomaly analysis failed", r.URL.Path)
		return
	}

	if m.store != nil {
		// Best-effort audit trail; the verdict itself is already computed.
		if err := m.store.InsertVerdict(r.Context(), uuid.NewString(), verdict); err != nil {
			m.logger.Error("persist verdict", zap.Error(err))
		}
	}

	if m.bus != nil && verdict.IsAnomaly {
		m.bus.PublishAsync(r.Context(), module.Event{
			Topic:     TopicAnomalyDetected,
			Source:    "behavior",
			Timestamp: time.Now(),
			Payload:   verdict,
		})
	}

	writeJSON(w, http.StatusOK, verdict)
}

// handleVerdicts lists persisted verdicts, optionally filtered by equipment.
func (m *Module) handleVerdicts(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		server.Unavailable(w, "verdict persistence is not configured", r.URL.Path)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			server.BadRequest(w, "limit must be a positive integer", r.URL.Path)
			return
		}
		limit = n
	}

	verdicts, err := m.store.ListVerdicts(r.Context(), r.URL.Query().Get("equipment_id"), limit)
	if err != nil {
		m.logger.Error("list verdicts", zap.Error(err))
		server.InternalError(w, "failed to list verdicts", r.URL.Path)
		return
	}
	if verdicts == nil {
		verdicts = []VerdictRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"verdicts": verdicts})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package ingest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fleetsight/fleetsight/internal/server"
	"github.com/fleetsight/fleetsight/pkg/module"
	"go.uber.org/zap"
)

// Routes implements module.HTTPProvider. Mounted under /api/v1/ingest/.
func (m *Module) Routes() []module.Route {
	return []module.Route{
		{Method: http.MethodGet, Path: "/status", Handler: m.handleStatus},
	}
}

// handleStatus reports what was loaded and how many rows are persisted.
func (m *Module) handleStatus(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	loaded := make(map[string]int, len(m.loaded))
	for k, v := range m.loaded {
		loaded[k] = v
	}
	loadedAt := m.loadedAt
	m.mu.RUnlock()

	resp := map[string]any{
		"datasets": loaded,
	}
	if !loadedAt.IsZero() {
		resp["loaded_at"] = loadedAt.Format(time.RFC3339)
	}

	if m.store != nil {
		demand, telemetry, err := m.store.Counts(r.Context())
		if err != nil {
			m.logger.Error("count persisted rows", zap.Error(err))
			server.InternalError(w, "failed to read persisted row counts", r.URL.Path)
			return
		}
		resp["persisted"] = map[string]int{"demand": demand, "telemetry": telemetry}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

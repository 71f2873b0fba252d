package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/fleetsight/fleetsight/internal/behavior"
	"github.com/fleetsight/fleetsight/internal/demand"
	"github.com/fleetsight/fleetsight/internal/ledger"
	"github.com/fleetsight/fleetsight/pkg/fleet"
	"github.com/fleetsight/fleetsight/pkg/module"
)

// Handler provides a WebSocket endpoint for real-time fleet events.
type Handler struct {
	hub    *Hub
	bus    module.EventBus
	logger *zap.Logger
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to fleet events.
func NewHandler(bus module.EventBus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/events", h.handleEventStream)
}

// handleEventStream upgrades the connection to WebSocket and streams fleet
// events until the client disconnects.
func (h *Handler) handleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The API has no browser origin of its own; dashboards connect
		// from arbitrary hosts.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		remote: r.RemoteAddr,
		send:   make(chan Message, 256),
		logger: h.logger,
	}

	h.hub.Register(client)

	// Run read and write pumps. When either exits, clean up.
	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until client disconnects.
	client.readPump(ctx)

	// Client disconnected -- stop write pump and unregister.
	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents subscribes to analytics and ledger events and forwards
// them to all connected WebSocket clients.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	h.bus.Subscribe(demand.TopicModelTrained, func(_ context.Context, event module.Event) {
		details, ok := event.Payload.(map[string]any)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageDemandModelTrained,
			Timestamp: event.Timestamp,
			Data: ModelTrainedData{
				Module:  event.Source,
				Details: details,
			},
		})
	})

	h.bus.Subscribe(demand.TopicForecastGenerated, func(_ context.Context, event module.Event) {
		run, ok := event.Payload.(demand.ForecastRun)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageForecastGenerated,
			Timestamp: event.Timestamp,
			Data: ForecastGeneratedData{
				RunID:       run.ID,
				Periods:     run.Periods,
				HistoryRows: run.HistoryRows,
				GeneratedAt: run.GeneratedAt,
			},
		})
	})

	h.bus.Subscribe(behavior.TopicModelTrained, func(_ context.Context, event module.Event) {
		details, ok := event.Payload.(map[string]any)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageBehaviorModelTrained,
			Timestamp: event.Timestamp,
			Data: ModelTrainedData{
				Module:  event.Source,
				Details: details,
			},
		})
	})

	h.bus.Subscribe(behavior.TopicAnomalyDetected, func(_ context.Context, event module.Event) {
		verdict, ok := event.Payload.(fleet.AnomalyVerdict)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:        MessageAnomalyDetected,
			EquipmentID: verdict.EquipmentID,
			Timestamp:   event.Timestamp,
			Data: AnomalyDetectedData{
				ReconstructionError: verdict.ReconstructionError,
				Threshold:           verdict.Threshold,
			},
		})
	})

	h.bus.Subscribe(ledger.TopicEquipmentReturned, func(_ context.Context, event module.Event) {
		rec, ok := event.Payload.(fleet.EquipmentRecord)
		if !ok {
			return
		}
		h.hub.Broadcast(Message{
			Type:        MessageEquipmentReturned,
			EquipmentID: rec.EquipmentID,
			Timestamp:   event.Timestamp,
			Data: EquipmentReturnedData{
				Equipment: rec,
			},
		})
	})

	h.logger.Info("subscribed to fleet events for WebSocket broadcasting")
}

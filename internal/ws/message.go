package ws

import (
	"time"

	"github.com/fleetsight/fleetsight/pkg/fleet"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageDemandModelTrained   MessageType = "demand.model_trained"
	MessageForecastGenerated    MessageType = "demand.forecast_generated"
	MessageBehaviorModelTrained MessageType = "behavior.model_trained"
	MessageAnomalyDetected      MessageType = "behavior.anomaly_detected"
	MessageEquipmentReturned    MessageType = "ledger.equipment_returned"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type        MessageType `json:"type"`
	EquipmentID string      `json:"equipment_id,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	Data        any         `json:"data"`
}

// ModelTrainedData is the payload for model_trained messages from either
// analytics module. Details carries module-specific training metadata.
type ModelTrainedData struct {
	Module  string         `json:"module"`
	Details map[string]any `json:"details"`
}

// ForecastGeneratedData is the payload for demand.forecast_generated messages.
type ForecastGeneratedData struct {
	RunID       string    `json:"run_id"`
	Periods     int       `json:"periods"`
	HistoryRows int       `json:"history_rows"`
	GeneratedAt time.Time `json:"generated_at"`
}

// AnomalyDetectedData is the payload for behavior.anomaly_detected messages.
type AnomalyDetectedData struct {
	ReconstructionError float64 `json:"reconstruction_error"`
	Threshold           float64 `json:"threshold"`
}

// EquipmentReturnedData is the payload for ledger.equipment_returned messages.
type EquipmentReturnedData struct {
	Equipment fleet.EquipmentRecord `json:"equipment"`
}

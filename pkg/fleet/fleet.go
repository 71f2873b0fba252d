// Package fleet provides the public data types for the FleetSight analytics
// system: telemetry samples, demand observations, forecasts, anomaly verdicts,
// rental ledger records, alerts, and emissions reports.
package fleet

import "time"

// TelemetrySample is one per-minute operational reading for a machine.
type TelemetrySample struct {
	Timestamp   time.Time `json:"timestamp"`
	EquipmentID string    `json:"equipment_id"`
	EngineLoad  float64   `json:"engine_load"` // Percent, 0-100
}

// DemandObservation is one daily rental-demand count.
type DemandObservation struct {
	Date  time.Time `json:"date"`
	Count float64   `json:"count"`
}

// ForecastRow is one entry of a combined demand forecast. Actual is nil for
// strictly future dates where no ground truth exists.
type ForecastRow struct {
	Date     time.Time `json:"date"`
	Actual   *float64  `json:"actual"`
	Estimate float64   `json:"estimate"`
	Lower    float64   `json:"lower"`
	Upper    float64   `json:"upper"`
}

// AnomalyVerdict is the result of scoring one equipment's latest telemetry
// window against the trained behavioral model. Derived per request, never
// stored as authoritative state.
type AnomalyVerdict struct {
	EquipmentID         string            `json:"equipment_id"`
	IsAnomaly           bool              `json:"is_anomaly"`
	ReconstructionError float64           `json:"reconstruction_error"`
	Threshold           float64           `json:"threshold"`
	Sequence            []TelemetrySample `json:"sequence"`
	EvaluatedAt         time.Time         `json:"evaluated_at"`
}

// EquipmentStatus enumerates rental states of a machine.
const (
	StatusRented    = "rented"
	StatusAvailable = "available"
	StatusService   = "service"
)

// EquipmentRecord is the typed rental-ledger row for one machine. Fields the
// ledger may not know for a given machine are explicit pointers; alert rules
// skip rules whose inputs are absent instead of coalescing to defaults.
type EquipmentRecord struct {
	EquipmentID       string     `json:"equipment_id"`
	Type              string     `json:"type"` // "excavator", "wheel_loader", ...
	Status            string     `json:"status"`
	CheckInDate       *time.Time `json:"check_in_date"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	FuelLevel         *float64   `json:"fuel_level"`          // Percent, 0-100
	EngineHours       *float64   `json:"engine_hours"`        // Lifetime hours
	HoursSinceService *float64   `json:"hours_since_service"` // Hours since last service
}

// AlertKind tags the alert variant an alert rule produced.
type AlertKind string

const (
	AlertGeofence  AlertKind = "geofence"
	AlertTelemetry AlertKind = "telemetry"
	AlertFuel      AlertKind = "fuel"
)

// Alert is one rule finding for a machine.
type Alert struct {
	ID          string    `json:"id"`
	EquipmentID string    `json:"equipment_id"`
	Kind        AlertKind `json:"kind"`
	Severity    string    `json:"severity"` // "info", "warning", "critical"
	Message     string    `json:"message"`
	Value       float64   `json:"value"`
	Limit       float64   `json:"limit"`
	RaisedAt    time.Time `json:"raised_at"`
}

// EmissionsEntry is the CO2 estimate for one machine.
type EmissionsEntry struct {
	EquipmentID     string  `json:"equipment_id"`
	Type            string  `json:"type"`
	EngineHours     float64 `json:"engine_hours"`
	FactorKgPerHour float64 `json:"factor_kg_per_hour"`
	CO2Kg           float64 `json:"co2_kg"`
}

// EmissionsReport aggregates fleet CO2 estimates.
type EmissionsReport struct {
	GeneratedAt time.Time          `json:"generated_at"`
	TotalCO2Kg  float64            `json:"total_co2_kg"`
	ByType      map[string]float64 `json:"by_type"`
	Entries     []EmissionsEntry   `json:"entries"`
}

// FleetSummary is the top-level fleet overview.
type FleetSummary struct {
	TotalEquipment int            `json:"total_equipment"`
	ByStatus       map[string]int `json:"by_status"`
	ByType         map[string]int `json:"by_type"`
	ActiveAlerts   int            `json:"active_alerts"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

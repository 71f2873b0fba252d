package ingest

// Event topics published by the ingest module. Each payload is the full
// loaded dataset; downstream modules capture it before their own Start runs.
const (
	TopicDemandLoaded    = "ingest.demand.loaded"    // []fleet.DemandObservation
	TopicTelemetryLoaded = "ingest.telemetry.loaded" // []fleet.TelemetrySample
	TopicRentalsLoaded   = "ingest.rentals.loaded"   // []fleet.EquipmentRecord
)

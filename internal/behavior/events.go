package behavior

// Event topics consumed by the behavior module.
const (
	TopicTelemetryLoaded = "ingest.telemetry.loaded"
)

// Event topics published by the behavior module.
const (
	TopicModelTrained    = "behavior.model.trained"
	TopicAnomalyDetected = "behavior.anomaly.detected"
)

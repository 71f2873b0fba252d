package demand

// Event topics consumed by the demand module.
const (
	TopicDemandLoaded = "ingest.demand.loaded"
)

// Event topics published by the demand module.
const (
	TopicModelTrained      = "demand.model.trained"
	TopicForecastGenerated = "demand.forecast.generated"
)

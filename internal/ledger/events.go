package ledger

// Event topics consumed by the ledger module.
const (
	TopicRentalsLoaded = "ingest.rentals.loaded"
)

// Event topics published by the ledger module.
const (
	TopicEquipmentReturned = "ledger.equipment.returned"
)

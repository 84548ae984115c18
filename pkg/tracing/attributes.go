package tracing

import "go.opentelemetry.io/otel/attribute"

// Parking span attributes
const (
	PlateKey         = attribute.Key("parking.plate")
	VehicleTypeKey   = attribute.Key("parking.vehicle_type")
	OutcomeKey       = attribute.Key("parking.outcome")
	QueuePositionKey = attribute.Key("parking.queue_position")
	FeeKey           = attribute.Key("parking.fee")
	PromotedKey      = attribute.Key("parking.promoted_plate")
	OccupiedKey      = attribute.Key("parking.occupied")
)

package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// VehicleSeatedData is emitted when a vehicle gets a space on arrival.
type VehicleSeatedData struct {
	RecordID    uuid.UUID `json:"record_id"`
	Plate       string    `json:"plate"`
	VehicleType string    `json:"vehicle_type"`
	EntryTime   time.Time `json:"entry_time"`
	Occupied    int       `json:"occupied"`
	Capacity    int       `json:"capacity"`
}

// VehicleQueuedData is emitted when a vehicle arrives at a full lot.
type VehicleQueuedData struct {
	RecordID      uuid.UUID `json:"record_id"`
	Plate         string    `json:"plate"`
	VehicleType   string    `json:"vehicle_type"`
	EntryTime     time.Time `json:"entry_time"`
	QueuePosition int       `json:"queue_position"`
}

// VehicleDepartedData is emitted when a parked vehicle leaves and pays.
type VehicleDepartedData struct {
	RecordID      uuid.UUID `json:"record_id"`
	Plate         string    `json:"plate"`
	VehicleType   string    `json:"vehicle_type"`
	EntryTime     time.Time `json:"entry_time"`
	ExitTime      time.Time `json:"exit_time"`
	BillableHours int64     `json:"billable_hours"`
	Fee           float64   `json:"fee"`
}

// VehiclePromotedData is emitted when a waiting vehicle takes a freed space.
type VehiclePromotedData struct {
	RecordID      uuid.UUID `json:"record_id"`
	Plate         string    `json:"plate"`
	VehicleType   string    `json:"vehicle_type"`
	EntryTime     time.Time `json:"entry_time"`
	SeatedAt      time.Time `json:"seated_at"`
	FreedByRecord uuid.UUID `json:"freed_by_record"`
}

package parking

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// VehicleType determines the rate tier a vehicle is billed at
type VehicleType string

const (
	VehicleTypeCar        VehicleType = "car"
	VehicleTypeMotorcycle VehicleType = "motorcycle"
	VehicleTypeOther      VehicleType = "other"
)

// defaultModel is used when the caller does not describe the vehicle
const defaultModel = "Not informed"

// ParseVehicleType maps a caller-supplied label onto a VehicleType.
// An empty label means a car; anything unrecognised is Other.
func ParseVehicleType(s string) VehicleType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "car", "carro":
		return VehicleTypeCar
	case "motorcycle", "moto", "motorbike":
		return VehicleTypeMotorcycle
	default:
		return VehicleTypeOther
	}
}

// AdmitOutcome is the result of an admission attempt
type AdmitOutcome string

const (
	OutcomeSeated                    AdmitOutcome = "seated"
	OutcomeQueued                    AdmitOutcome = "queued"
	OutcomeRejectedDuplicateOccupied AdmitOutcome = "rejected_duplicate_occupied"
	OutcomeRejectedDuplicateQueued   AdmitOutcome = "rejected_duplicate_queued"
)

// VehicleRecord is one stay of a vehicle at the facility
type VehicleRecord struct {
	ID          uuid.UUID   `json:"id"`
	Plate       string      `json:"plate"`
	Model       string      `json:"model"`
	VehicleType VehicleType `json:"vehicle_type"`
	EntryTime   time.Time   `json:"entry_time"`
	SeatedAt    *time.Time  `json:"seated_at,omitempty"`
	ExitTime    *time.Time  `json:"exit_time,omitempty"`
	Fee         float64     `json:"fee"`
}

// IsOccupying reports whether the record holds a space right now
func (r *VehicleRecord) IsOccupying() bool {
	return r.SeatedAt != nil && r.ExitTime == nil
}

// HasDeparted reports whether the record is closed history
func (r *VehicleRecord) HasDeparted() bool {
	return r.ExitTime != nil
}

// clone returns a deep copy so callers never alias facility state
func (r *VehicleRecord) clone() VehicleRecord {
	c := *r
	if r.SeatedAt != nil {
		t := *r.SeatedAt
		c.SeatedAt = &t
	}
	if r.ExitTime != nil {
		t := *r.ExitTime
		c.ExitTime = &t
	}
	return c
}

// Admission describes what happened to an admission attempt
type Admission struct {
	Outcome       AdmitOutcome  `json:"outcome"`
	Record        VehicleRecord `json:"record"`
	QueuePosition int           `json:"queue_position,omitempty"` // 1-based, set when queued
}

// Departure describes a completed departure
type Departure struct {
	Record   VehicleRecord  `json:"record"`
	Fee      float64        `json:"fee"`
	Promoted *VehicleRecord `json:"promoted,omitempty"`
}

// Occupancy is a point-in-time view of space usage
type Occupancy struct {
	Capacity         int     `json:"capacity"`
	Occupied         int     `json:"occupied"`
	Available        int     `json:"available"`
	OccupancyPercent float64 `json:"occupancy_percent"`
}

// ========================================
// REQUEST/RESPONSE TYPES
// ========================================

// EntryRequest registers a vehicle arriving at the lot
type EntryRequest struct {
	Plate       string     `json:"plate" binding:"required,plate"`
	Model       string     `json:"model" binding:"max=64"`
	VehicleType string     `json:"vehicle_type" binding:"max=32"`
	EntryTime   *time.Time `json:"entry_time"`
}

// ExitRequest registers a vehicle leaving the lot
type ExitRequest struct {
	Plate string `json:"plate" binding:"required,plate"`
}

// VehicleStatus is a live view of an occupying vehicle
type VehicleStatus struct {
	Record         VehicleRecord `json:"record"`
	ElapsedMinutes int64         `json:"elapsed_minutes"`
	Elapsed        string        `json:"elapsed"`
	BillableHours  int64         `json:"billable_hours"`
	EstimatedFee   float64       `json:"estimated_fee"`
}

// DailyRevenue is the revenue collected from departures on one calendar date
type DailyRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// LotSummary aggregates the figures the lot dashboard shows
type LotSummary struct {
	Occupancy    Occupancy `json:"occupancy"`
	QueueLength  int       `json:"queue_length"`
	TotalRevenue float64   `json:"total_revenue"`
	HistorySize  int       `json:"history_size"`
}

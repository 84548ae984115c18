package parking

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateOccupied is returned when the plate is already parked
	ErrDuplicateOccupied = errors.New("vehicle with this plate is already parked")
	// ErrDuplicateQueued is returned when the plate is already on the waiting list
	ErrDuplicateQueued = errors.New("vehicle with this plate is already waiting")
	// ErrNotFound is returned when no parked vehicle matches the plate
	ErrNotFound = errors.New("vehicle not found or already departed")
	// ErrInvalidCapacity is returned for a non-positive capacity
	ErrInvalidCapacity = errors.New("capacity must be a positive integer")
)

// Facility owns the spaces, the waiting list and the takings of one lot.
// Admit and Depart are serialised by a single lock; queries return copies.
type Facility struct {
	mu sync.RWMutex

	capacity int
	clock    Clock
	location *time.Location

	records  []*VehicleRecord          // every seated record, in seating order
	occupied map[string]*VehicleRecord // normalised plate -> occupying record
	queue    []*VehicleRecord          // FIFO waiting list
	queued   map[string]struct{}       // normalised plates on the waiting list
	revenue  float64
}

// FacilityOption customises a Facility
type FacilityOption func(*Facility)

// WithClock replaces the wall clock, mostly for tests
func WithClock(c Clock) FacilityOption {
	return func(f *Facility) {
		if c != nil {
			f.clock = c
		}
	}
}

// WithLocation sets the time zone used to bucket revenue by calendar date
func WithLocation(loc *time.Location) FacilityOption {
	return func(f *Facility) {
		if loc != nil {
			f.location = loc
		}
	}
}

// NewFacility creates an empty lot with a fixed capacity
func NewFacility(capacity int, opts ...FacilityOption) (*Facility, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("new facility with capacity %d: %w", capacity, ErrInvalidCapacity)
	}

	f := &Facility{
		capacity: capacity,
		clock:    SystemClock,
		location: time.UTC,
		occupied: make(map[string]*VehicleRecord),
		queued:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// Now returns the facility clock's current time
func (f *Facility) Now() time.Time {
	return f.clock.Now()
}

// Location returns the time zone used for calendar-date reporting
func (f *Facility) Location() *time.Location {
	return f.location
}

// Admit seats the vehicle if a space is free, otherwise puts it on the
// waiting list. A nil entryTime means "now".
func (f *Facility) Admit(plate, model string, vehicleType VehicleType, entryTime *time.Time) (Admission, error) {
	key := normalizePlate(plate)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.occupied[key]; ok {
		return Admission{Outcome: OutcomeRejectedDuplicateOccupied}, ErrDuplicateOccupied
	}
	if _, ok := f.queued[key]; ok {
		return Admission{Outcome: OutcomeRejectedDuplicateQueued}, ErrDuplicateQueued
	}

	now := f.clock.Now()
	entry := now
	if entryTime != nil {
		entry = *entryTime
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}

	rec := &VehicleRecord{
		ID:          uuid.New(),
		Plate:       strings.TrimSpace(plate),
		Model:       strings.TrimSpace(model),
		VehicleType: vehicleType,
		EntryTime:   entry,
	}

	if len(f.occupied) < f.capacity {
		f.seat(rec, entry)
		return Admission{Outcome: OutcomeSeated, Record: rec.clone()}, nil
	}

	f.queue = append(f.queue, rec)
	f.queued[key] = struct{}{}
	return Admission{
		Outcome:       OutcomeQueued,
		Record:        rec.clone(),
		QueuePosition: len(f.queue),
	}, nil
}

// seat must be called with the write lock held
func (f *Facility) seat(rec *VehicleRecord, at time.Time) {
	seatedAt := at
	rec.SeatedAt = &seatedAt
	f.records = append(f.records, rec)
	f.occupied[normalizePlate(rec.Plate)] = rec
}

// Depart closes the stay of a parked vehicle, books its fee and promotes
// the head of the waiting list into the freed space.
func (f *Facility) Depart(plate string) (Departure, error) {
	key := normalizePlate(plate)

	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.occupied[key]
	if !ok {
		return Departure{}, ErrNotFound
	}

	now := f.clock.Now()
	if now.Before(rec.EntryTime) {
		now = rec.EntryTime
	}
	exit := now
	rec.ExitTime = &exit
	rec.Fee = rec.CalculateFee(now)
	f.revenue += rec.Fee
	delete(f.occupied, key)

	dep := Departure{Record: rec.clone(), Fee: rec.Fee}

	if len(f.queue) > 0 {
		head := f.queue[0]
		f.queue[0] = nil
		f.queue = f.queue[1:]
		delete(f.queued, normalizePlate(head.Plate))
		f.seat(head, now)
		promoted := head.clone()
		dep.Promoted = &promoted
	}

	return dep, nil
}

// FindOccupied returns the parked vehicle with this plate
func (f *Facility) FindOccupied(plate string) (VehicleRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	rec, ok := f.occupied[normalizePlate(plate)]
	if !ok {
		return VehicleRecord{}, ErrNotFound
	}
	return rec.clone(), nil
}

// OccupiedList returns the parked vehicles in the order they got a space
func (f *Facility) OccupiedList() []VehicleRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]VehicleRecord, 0, len(f.occupied))
	for _, rec := range f.records {
		if rec.IsOccupying() {
			out = append(out, rec.clone())
		}
	}
	return out
}

// FullHistory returns every seated record, parked or departed.
// Vehicles still on the waiting list are not part of the history.
func (f *Facility) FullHistory() []VehicleRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]VehicleRecord, len(f.records))
	for i, rec := range f.records {
		out[i] = rec.clone()
	}
	return out
}

// RevenueForDay sums the fees of departures whose exit falls on the given
// calendar date in the facility's time zone.
func (f *Facility) RevenueForDay(date time.Time) float64 {
	y, m, d := date.In(f.location).Date()

	f.mu.RLock()
	defer f.mu.RUnlock()

	var total float64
	for _, rec := range f.records {
		if rec.ExitTime == nil {
			continue
		}
		ey, em, ed := rec.ExitTime.In(f.location).Date()
		if ey == y && em == m && ed == d {
			total += rec.Fee
		}
	}
	return total
}

// TotalRevenue returns everything collected since the facility opened
func (f *Facility) TotalRevenue() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.revenue
}

// QueueSnapshot returns the waiting list in FIFO order
func (f *Facility) QueueSnapshot() []VehicleRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]VehicleRecord, len(f.queue))
	for i, rec := range f.queue {
		out[i] = rec.clone()
	}
	return out
}

// QueueLength returns how many vehicles are waiting
func (f *Facility) QueueLength() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.queue)
}

// HistorySize returns the number of seated records ever created
func (f *Facility) HistorySize() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.records)
}

// Occupancy reports space usage
func (f *Facility) Occupancy() Occupancy {
	f.mu.RLock()
	defer f.mu.RUnlock()

	occupied := len(f.occupied)
	return Occupancy{
		Capacity:         f.capacity,
		Occupied:         occupied,
		Available:        f.capacity - occupied,
		OccupancyPercent: float64(occupied) / float64(f.capacity) * 100,
	}
}

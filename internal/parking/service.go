package parking

import (
	"context"
	"errors"
	"time"

	"github.com/richxcame/parking-lot/pkg/common"
	"github.com/richxcame/parking-lot/pkg/eventbus"
	"github.com/richxcame/parking-lot/pkg/logger"
	"github.com/richxcame/parking-lot/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Machine-readable error codes returned to API clients
const (
	ErrCodeDuplicateOccupied = "DUPLICATE_OCCUPIED"
	ErrCodeDuplicateQueued   = "DUPLICATE_QUEUED"
	ErrCodeVehicleNotFound   = "VEHICLE_NOT_FOUND"
	ErrCodeFutureEntryTime   = "FUTURE_ENTRY_TIME"
)

const (
	eventSource    = "parking-service"
	publishTimeout = 5 * time.Second
)

// Service handles parking business logic on top of a Facility
type Service struct {
	facility *Facility
	eventBus eventbus.Publisher
}

// NewService creates a new parking service
func NewService(facility *Facility) *Service {
	s := &Service{
		facility: facility,
		eventBus: eventbus.NopPublisher{},
	}
	s.refreshGauges()
	return s
}

// SetEventBus sets the publisher for lot events
func (s *Service) SetEventBus(bus eventbus.Publisher) {
	if bus == nil {
		bus = eventbus.NopPublisher{}
	}
	s.eventBus = bus
}

// Now returns the lot clock's current time
func (s *Service) Now() time.Time {
	return s.facility.Now()
}

// Location returns the time zone revenue is reported in
func (s *Service) Location() *time.Location {
	return s.facility.Location()
}

// publishEvent sends an event and only logs on failure; a lost event never
// fails the operation that produced it.
func (s *Service) publishEvent(ctx context.Context, subject string, data interface{}) {
	evt, err := eventbus.NewEvent(subject, eventSource, data)
	if err != nil {
		logger.WarnContext(ctx, "failed to create parking event", zap.String("subject", subject), zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.eventBus.Publish(pubCtx, subject, evt); err != nil {
		logger.WarnContext(ctx, "failed to publish parking event", zap.String("subject", subject), zap.Error(err))
	}
}

func (s *Service) refreshGauges() {
	recordLotState(s.facility.Occupancy(), s.facility.QueueLength())
}

// ========================================
// MUTATIONS
// ========================================

// Admit registers an arriving vehicle. It is seated if a space is free and
// queued otherwise.
func (s *Service) Admit(ctx context.Context, req *EntryRequest) (*Admission, error) {
	ctx, span := tracing.StartSpan(ctx, eventSource, "parking.Admit")
	defer span.End()
	span.SetAttributes(tracing.PlateKey.String(req.Plate))

	if req.EntryTime != nil && req.EntryTime.After(s.facility.Now()) {
		err := common.NewBadRequestError("entry time cannot be in the future", nil).
			WithErrorCode(ErrCodeFutureEntryTime)
		tracing.RecordError(ctx, err)
		return nil, err
	}

	vehicleType := ParseVehicleType(req.VehicleType)
	span.SetAttributes(tracing.VehicleTypeKey.String(string(vehicleType)))

	admission, err := s.facility.Admit(req.Plate, req.Model, vehicleType, req.EntryTime)
	recordAdmission(admission.Outcome, vehicleType)
	span.SetAttributes(tracing.OutcomeKey.String(string(admission.Outcome)))

	switch {
	case errors.Is(err, ErrDuplicateOccupied):
		logger.InfoContext(ctx, "admission rejected, plate already parked", zap.String("plate", req.Plate))
		tracing.RecordError(ctx, err)
		return nil, common.NewConflictError("a vehicle with this plate is already parked", err).
			WithErrorCode(ErrCodeDuplicateOccupied)
	case errors.Is(err, ErrDuplicateQueued):
		logger.InfoContext(ctx, "admission rejected, plate already waiting", zap.String("plate", req.Plate))
		tracing.RecordError(ctx, err)
		return nil, common.NewConflictError("a vehicle with this plate is already on the waiting list", err).
			WithErrorCode(ErrCodeDuplicateQueued)
	case err != nil:
		tracing.RecordError(ctx, err)
		return nil, common.NewInternalError("failed to admit vehicle", err)
	}

	s.refreshGauges()
	rec := admission.Record

	if admission.Outcome == OutcomeQueued {
		span.SetAttributes(tracing.QueuePositionKey.Int(admission.QueuePosition))
		logger.InfoContext(ctx, "lot full, vehicle queued",
			zap.String("plate", rec.Plate),
			zap.String("vehicle_type", string(rec.VehicleType)),
			zap.Int("queue_position", admission.QueuePosition),
		)
		s.publishEvent(ctx, eventbus.SubjectVehicleQueued, eventbus.VehicleQueuedData{
			RecordID:      rec.ID,
			Plate:         rec.Plate,
			VehicleType:   string(rec.VehicleType),
			EntryTime:     rec.EntryTime,
			QueuePosition: admission.QueuePosition,
		})
		return &admission, nil
	}

	occ := s.facility.Occupancy()
	span.SetAttributes(tracing.OccupiedKey.Int(occ.Occupied))
	logger.InfoContext(ctx, "vehicle parked",
		zap.String("plate", rec.Plate),
		zap.String("vehicle_type", string(rec.VehicleType)),
		zap.Time("entry_time", rec.EntryTime),
		zap.Int("occupied", occ.Occupied),
	)
	s.publishEvent(ctx, eventbus.SubjectVehicleSeated, eventbus.VehicleSeatedData{
		RecordID:    rec.ID,
		Plate:       rec.Plate,
		VehicleType: string(rec.VehicleType),
		EntryTime:   rec.EntryTime,
		Occupied:    occ.Occupied,
		Capacity:    occ.Capacity,
	})
	return &admission, nil
}

// Depart closes a parked vehicle's stay, charges it and fills the freed
// space from the waiting list.
func (s *Service) Depart(ctx context.Context, req *ExitRequest) (*Departure, error) {
	ctx, span := tracing.StartSpan(ctx, eventSource, "parking.Depart")
	defer span.End()
	span.SetAttributes(tracing.PlateKey.String(req.Plate))

	dep, err := s.facility.Depart(req.Plate)
	if errors.Is(err, ErrNotFound) {
		recordDepartureMiss()
		tracing.RecordError(ctx, err)
		return nil, common.NewNotFoundError("vehicle not found or already departed", err).
			WithErrorCode(ErrCodeVehicleNotFound)
	}
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, common.NewInternalError("failed to register departure", err)
	}

	rec := dep.Record
	exit := *rec.ExitTime
	stay := rec.ElapsedDuration(exit)
	recordDeparture(rec, stay.Minutes())
	s.refreshGauges()

	span.SetAttributes(
		tracing.VehicleTypeKey.String(string(rec.VehicleType)),
		tracing.FeeKey.Float64(dep.Fee),
		attribute.Int64("parking.billable_hours", rec.BillableHours(exit)),
	)

	logger.InfoContext(ctx, "vehicle departed",
		zap.String("plate", rec.Plate),
		zap.String("vehicle_type", string(rec.VehicleType)),
		zap.Duration("stay", stay),
		zap.Float64("fee", dep.Fee),
	)
	s.publishEvent(ctx, eventbus.SubjectVehicleDeparted, eventbus.VehicleDepartedData{
		RecordID:      rec.ID,
		Plate:         rec.Plate,
		VehicleType:   string(rec.VehicleType),
		EntryTime:     rec.EntryTime,
		ExitTime:      exit,
		BillableHours: rec.BillableHours(exit),
		Fee:           dep.Fee,
	})

	if p := dep.Promoted; p != nil {
		recordPromotion()
		span.SetAttributes(tracing.PromotedKey.String(p.Plate))
		logger.InfoContext(ctx, "waiting vehicle moved into freed space",
			zap.String("plate", p.Plate),
			zap.String("freed_by", rec.Plate),
		)
		s.publishEvent(ctx, eventbus.SubjectVehiclePromoted, eventbus.VehiclePromotedData{
			RecordID:      p.ID,
			Plate:         p.Plate,
			VehicleType:   string(p.VehicleType),
			EntryTime:     p.EntryTime,
			SeatedAt:      *p.SeatedAt,
			FreedByRecord: rec.ID,
		})
	}

	return &dep, nil
}

// ========================================
// QUERIES
// ========================================

// VehicleStatus returns a parked vehicle with its running time and the fee
// it would pay if it left now
func (s *Service) VehicleStatus(ctx context.Context, plate string) (*VehicleStatus, error) {
	rec, err := s.facility.FindOccupied(plate)
	if err != nil {
		return nil, common.NewNotFoundError("vehicle not found or already departed", err).
			WithErrorCode(ErrCodeVehicleNotFound)
	}

	now := s.facility.Now()
	elapsed := rec.ElapsedDuration(now)
	return &VehicleStatus{
		Record:         rec,
		ElapsedMinutes: int64(elapsed / time.Minute),
		Elapsed:        HumanReadableElapsed(elapsed),
		BillableHours:  rec.BillableHours(now),
		EstimatedFee:   rec.CalculateFee(now),
	}, nil
}

// OccupiedList returns the vehicles holding a space
func (s *Service) OccupiedList(ctx context.Context) []VehicleRecord {
	return s.facility.OccupiedList()
}

// History returns every record that was ever seated
func (s *Service) History(ctx context.Context) []VehicleRecord {
	return s.facility.FullHistory()
}

// Queue returns the waiting list, head first
func (s *Service) Queue(ctx context.Context) []VehicleRecord {
	return s.facility.QueueSnapshot()
}

// Occupancy returns current space usage
func (s *Service) Occupancy(ctx context.Context) Occupancy {
	return s.facility.Occupancy()
}

// DailyRevenue returns the takings for one calendar date
func (s *Service) DailyRevenue(ctx context.Context, date time.Time) *DailyRevenue {
	return &DailyRevenue{
		Date:    date.In(s.facility.Location()).Format(dateLayout),
		Revenue: s.facility.RevenueForDay(date),
	}
}

// TotalRevenue returns the takings since start-up
func (s *Service) TotalRevenue(ctx context.Context) float64 {
	return s.facility.TotalRevenue()
}

// Summary returns the dashboard figures
func (s *Service) Summary(ctx context.Context) *LotSummary {
	return &LotSummary{
		Occupancy:    s.facility.Occupancy(),
		QueueLength:  s.facility.QueueLength(),
		TotalRevenue: s.facility.TotalRevenue(),
		HistorySize:  s.facility.HistorySize(),
	}
}

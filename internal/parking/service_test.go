package parking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/richxcame/parking-lot/pkg/common"
	"github.com/richxcame/parking-lot/pkg/eventbus"
	"github.com/richxcame/parking-lot/pkg/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// MockPublisher implements eventbus.Publisher for testing
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, event *eventbus.Event) error {
	args := m.Called(ctx, subject, event)
	return args.Error(0)
}

func (m *MockPublisher) subjects() []string {
	var out []string
	for _, call := range m.Calls {
		out = append(out, call.Arguments.String(1))
	}
	return out
}

func newTestService(t *testing.T, capacity int) (*Service, *MockPublisher, *fakeClock) {
	t.Helper()
	f, clock := newTestFacility(t, capacity)
	pub := new(MockPublisher)
	svc := NewService(f)
	svc.SetEventBus(pub)
	return svc, pub, clock
}

func eventData[T any](t *testing.T, pub *MockPublisher, subject string) T {
	t.Helper()
	for _, call := range pub.Calls {
		if call.Arguments.String(1) == subject {
			var out T
			require.NoError(t, json.Unmarshal(call.Arguments.Get(2).(*eventbus.Event).Data, &out))
			return out
		}
	}
	t.Fatalf("no event published on %s", subject)
	var zero T
	return zero
}

func requireAppError(t *testing.T, err error, code int, errorCode string) {
	t.Helper()
	appErr, ok := common.AsAppError(err)
	require.True(t, ok, "expected *common.AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, errorCode, appErr.ErrorCode)
}

// ============================================================================
// Admit
// ============================================================================

func TestService_Admit_Seated(t *testing.T) {
	svc, pub, _ := newTestService(t, 2)
	pub.On("Publish", mock.Anything, eventbus.SubjectVehicleSeated, mock.AnythingOfType("*eventbus.Event")).Return(nil)

	admission, err := svc.Admit(context.Background(), &EntryRequest{Plate: "ABC1234", VehicleType: "moto"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSeated, admission.Outcome)
	assert.Equal(t, VehicleTypeMotorcycle, admission.Record.VehicleType)

	data := eventData[eventbus.VehicleSeatedData](t, pub, eventbus.SubjectVehicleSeated)
	assert.Equal(t, admission.Record.ID, data.RecordID)
	assert.Equal(t, 1, data.Occupied)
	assert.Equal(t, 2, data.Capacity)
	pub.AssertExpectations(t)
}

func TestService_Admit_Queued(t *testing.T) {
	svc, pub, _ := newTestService(t, 1)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Admit(context.Background(), &EntryRequest{Plate: "AAA1111"})
	require.NoError(t, err)
	admission, err := svc.Admit(context.Background(), &EntryRequest{Plate: "BBB2222"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, admission.Outcome)
	assert.Equal(t, 1, admission.QueuePosition)
	assert.Equal(t, []string{eventbus.SubjectVehicleSeated, eventbus.SubjectVehicleQueued}, pub.subjects())

	data := eventData[eventbus.VehicleQueuedData](t, pub, eventbus.SubjectVehicleQueued)
	assert.Equal(t, "BBB2222", data.Plate)
	assert.Equal(t, 1, data.QueuePosition)
}

func TestService_Admit_Duplicates(t *testing.T) {
	svc, pub, _ := newTestService(t, 1)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	_, err := svc.Admit(ctx, &EntryRequest{Plate: "AAA1111"})
	require.NoError(t, err)
	_, err = svc.Admit(ctx, &EntryRequest{Plate: "BBB2222"})
	require.NoError(t, err)

	_, err = svc.Admit(ctx, &EntryRequest{Plate: "aaa1111"})
	requireAppError(t, err, http.StatusConflict, ErrCodeDuplicateOccupied)
	assert.ErrorIs(t, err, ErrDuplicateOccupied)

	_, err = svc.Admit(ctx, &EntryRequest{Plate: "bbb2222"})
	requireAppError(t, err, http.StatusConflict, ErrCodeDuplicateQueued)
	assert.ErrorIs(t, err, ErrDuplicateQueued)

	assert.Len(t, pub.Calls, 2, "rejections publish nothing")
}

func TestService_Admit_FutureEntryTime(t *testing.T) {
	svc, pub, clock := newTestService(t, 1)
	future := clock.Now().Add(time.Minute)

	_, err := svc.Admit(context.Background(), &EntryRequest{Plate: "ABC1234", EntryTime: &future})

	requireAppError(t, err, http.StatusBadRequest, ErrCodeFutureEntryTime)
	assert.Zero(t, svc.Summary(context.Background()).HistorySize)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Admit_PublishFailureDoesNotFail(t *testing.T) {
	svc, pub, _ := newTestService(t, 1)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("nats: timeout"))

	admission, err := svc.Admit(context.Background(), &EntryRequest{Plate: "ABC1234"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeSeated, admission.Outcome)
	assert.Equal(t, 1, svc.Occupancy(context.Background()).Occupied)
}

func TestService_Admit_PublishSurvivesCancelledRequest(t *testing.T) {
	svc, pub, _ := newTestService(t, 1)
	pub.On("Publish", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), eventbus.SubjectVehicleSeated, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Admit(ctx, &EntryRequest{Plate: "ABC1234"})

	require.NoError(t, err)
	pub.AssertExpectations(t)
}

// ============================================================================
// Depart
// ============================================================================

func TestService_Depart_WithPromotion(t *testing.T) {
	svc, pub, clock := newTestService(t, 1)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	seated, err := svc.Admit(ctx, &EntryRequest{Plate: "AAA1111"})
	require.NoError(t, err)
	waiting, err := svc.Admit(ctx, &EntryRequest{Plate: "BBB2222", VehicleType: "motorcycle"})
	require.NoError(t, err)

	clock.Advance(75 * time.Minute)
	dep, err := svc.Depart(ctx, &ExitRequest{Plate: "aaa1111"})

	require.NoError(t, err)
	assert.Equal(t, 20.0, dep.Fee)
	require.NotNil(t, dep.Promoted)
	assert.Equal(t, waiting.Record.ID, dep.Promoted.ID)

	assert.Equal(t, []string{
		eventbus.SubjectVehicleSeated,
		eventbus.SubjectVehicleQueued,
		eventbus.SubjectVehicleDeparted,
		eventbus.SubjectVehiclePromoted,
	}, pub.subjects())

	departed := eventData[eventbus.VehicleDepartedData](t, pub, eventbus.SubjectVehicleDeparted)
	assert.Equal(t, seated.Record.ID, departed.RecordID)
	assert.Equal(t, int64(2), departed.BillableHours)
	assert.Equal(t, 20.0, departed.Fee)

	promoted := eventData[eventbus.VehiclePromotedData](t, pub, eventbus.SubjectVehiclePromoted)
	assert.Equal(t, waiting.Record.ID, promoted.RecordID)
	assert.Equal(t, seated.Record.ID, promoted.FreedByRecord)
	assert.True(t, clock.Now().Equal(promoted.SeatedAt))
	assert.True(t, baseTime.Equal(promoted.EntryTime))
}

func TestService_Depart_NotFound(t *testing.T) {
	svc, pub, _ := newTestService(t, 1)

	dep, err := svc.Depart(context.Background(), &ExitRequest{Plate: "ZZZ9999"})

	assert.Nil(t, dep)
	requireAppError(t, err, http.StatusNotFound, ErrCodeVehicleNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================================
// Queries
// ============================================================================

func TestService_VehicleStatus(t *testing.T) {
	svc, pub, clock := newTestService(t, 1)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	_, err := svc.Admit(ctx, &EntryRequest{Plate: "ABC1234", Model: "Civic"})
	require.NoError(t, err)
	clock.Advance(125 * time.Minute)

	status, err := svc.VehicleStatus(ctx, "abc1234")
	require.NoError(t, err)
	assert.Equal(t, "Civic", status.Record.Model)
	assert.Equal(t, int64(125), status.ElapsedMinutes)
	assert.Equal(t, "2 hour(s) and 5 minute(s)", status.Elapsed)
	assert.Equal(t, int64(3), status.BillableHours)
	assert.Equal(t, 28.0, status.EstimatedFee)

	_, err = svc.VehicleStatus(ctx, "NOPE123")
	requireAppError(t, err, http.StatusNotFound, ErrCodeVehicleNotFound)
}

func TestService_RevenueAndSummary(t *testing.T) {
	svc, pub, clock := newTestService(t, 2)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	for _, plate := range []string{"AAA1111", "BBB2222", "CCC3333"} {
		_, err := svc.Admit(ctx, &EntryRequest{Plate: plate})
		require.NoError(t, err)
	}
	clock.Advance(30 * time.Minute)
	_, err := svc.Depart(ctx, &ExitRequest{Plate: "AAA1111"})
	require.NoError(t, err)

	daily := svc.DailyRevenue(ctx, clock.Now())
	assert.Equal(t, "2026-03-02", daily.Date)
	assert.Equal(t, 12.0, daily.Revenue)
	assert.Equal(t, 12.0, svc.TotalRevenue(ctx))

	summary := svc.Summary(ctx)
	assert.Equal(t, 2, summary.Occupancy.Occupied)
	assert.Zero(t, summary.QueueLength)
	assert.Equal(t, 12.0, summary.TotalRevenue)
	assert.Equal(t, 3, summary.HistorySize)

	assert.Equal(t, []string{"BBB2222", "CCC3333"}, plates(svc.OccupiedList(ctx)))
	assert.Len(t, svc.History(ctx), 3)
	assert.Empty(t, svc.Queue(ctx))
}

func TestService_SetEventBusNil(t *testing.T) {
	svc, _, _ := newTestService(t, 1)
	svc.SetEventBus(nil)

	_, err := svc.Admit(context.Background(), &EntryRequest{Plate: "ABC1234"})
	assert.NoError(t, err)
}

// ============================================================================
// Tracing
// ============================================================================

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestService_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracing.Install(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	svc, pub, clock := newTestService(t, 1)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	_, err := svc.Admit(ctx, &EntryRequest{Plate: "AAA1111"})
	require.NoError(t, err)
	_, err = svc.Admit(ctx, &EntryRequest{Plate: "BBB2222"})
	require.NoError(t, err)
	clock.Advance(90 * time.Minute)
	_, err = svc.Depart(ctx, &ExitRequest{Plate: "AAA1111"})
	require.NoError(t, err)
	_, err = svc.Depart(ctx, &ExitRequest{Plate: "ZZZ9999"})
	require.Error(t, err)

	ended := recorder.Ended()
	require.Len(t, ended, 4)

	queued := ended[1]
	assert.Equal(t, "parking.Admit", queued.Name())
	outcome, ok := spanAttr(queued, tracing.OutcomeKey)
	require.True(t, ok)
	assert.Equal(t, string(OutcomeQueued), outcome.AsString())

	departed := ended[2]
	assert.Equal(t, "parking.Depart", departed.Name())
	fee, ok := spanAttr(departed, tracing.FeeKey)
	require.True(t, ok)
	assert.Equal(t, 20.0, fee.AsFloat64())
	promoted, ok := spanAttr(departed, tracing.PromotedKey)
	require.True(t, ok)
	assert.Equal(t, "BBB2222", promoted.AsString())

	missed := ended[3]
	assert.Equal(t, codes.Error, missed.Status().Code)
}

package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// NewEvent
// ---------------------------------------------------------------------------

func TestNewEvent_Success(t *testing.T) {
	data := map[string]string{"plate": "ABC1234"}

	event, err := NewEvent(SubjectVehicleSeated, "parking-service", data)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, SubjectVehicleSeated, event.Type)
	assert.Equal(t, "parking-service", event.Source)
	assert.False(t, event.Timestamp.IsZero())

	_, err = uuid.Parse(event.ID)
	assert.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(event.Data, &decoded))
	assert.Equal(t, "ABC1234", decoded["plate"])
}

func TestNewEvent_NilData(t *testing.T) {
	event, err := NewEvent("test.event", "test-source", nil)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), event.Data)
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	event, err := NewEvent("test", "src", make(chan int))
	assert.Error(t, err)
	assert.Nil(t, event)
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		event, err := NewEvent("test", "src", nil)
		require.NoError(t, err)
		assert.False(t, ids[event.ID], "duplicate event ID generated")
		ids[event.ID] = true
	}
}

func TestNewEvent_TimestampIsUTC(t *testing.T) {
	event, err := NewEvent("test", "src", nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, event.Timestamp.Location())
}

func TestNewEvent_DepartedPayload(t *testing.T) {
	entry := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	data := VehicleDepartedData{
		RecordID:      uuid.New(),
		Plate:         "ABC1234",
		VehicleType:   "car",
		EntryTime:     entry,
		ExitTime:      entry.Add(90 * time.Minute),
		BillableHours: 2,
		Fee:           20,
	}

	event, err := NewEvent(SubjectVehicleDeparted, "parking-service", data)
	require.NoError(t, err)

	var decoded VehicleDepartedData
	require.NoError(t, json.Unmarshal(event.Data, &decoded))
	assert.Equal(t, data.RecordID, decoded.RecordID)
	assert.Equal(t, int64(2), decoded.BillableHours)
	assert.Equal(t, 20.0, decoded.Fee)
	assert.True(t, data.ExitTime.Equal(decoded.ExitTime))
}

// ---------------------------------------------------------------------------
// Subjects and config
// ---------------------------------------------------------------------------

func TestSubjectConstants(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		expected string
	}{
		{"VehicleSeated", SubjectVehicleSeated, "parking.vehicle.seated"},
		{"VehicleQueued", SubjectVehicleQueued, "parking.vehicle.queued"},
		{"VehicleDeparted", SubjectVehicleDeparted, "parking.vehicle.departed"},
		{"VehiclePromoted", SubjectVehiclePromoted, "parking.vehicle.promoted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.subject)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "nats://127.0.0.1:4222", cfg.URL)
	assert.Equal(t, "parking-lot", cfg.Name)
	assert.Equal(t, "PARKING", cfg.StreamName)
}

func TestConfig_StreamFallback(t *testing.T) {
	assert.Equal(t, "PARKING", Config{}.stream())
	assert.Equal(t, "LOT7", Config{StreamName: "LOT7"}.stream())
}

// ---------------------------------------------------------------------------
// Publishers
// ---------------------------------------------------------------------------

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	event, _ := NewEvent("test", "src", nil)
	assert.NoError(t, p.Publish(context.Background(), SubjectVehicleQueued, event))
}

func TestBus_Connected_NilConn(t *testing.T) {
	bus := &Bus{}
	assert.False(t, bus.Connected())
}

func TestBus_Close_NilConn(t *testing.T) {
	bus := &Bus{}
	assert.NotPanics(t, bus.Close)
}

package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbridge/internal/incontrol"
)

// stubClient records calls and serves canned telemetry.
type stubClient struct {
	status     incontrol.StatusSnapshot
	statusErr  error
	attributes *incontrol.VehicleAttributes

	wakeCalls   int
	wakeErr     error
	lockCalls   int
	unlockCalls int
	startCalls  []float64
	stopCalls   int
}

func (s *stubClient) GetVehicleStatus(ctx context.Context) (incontrol.StatusSnapshot, error) {
	return s.status, s.statusErr
}

func (s *stubClient) GetVehicleAttributes(ctx context.Context) (*incontrol.VehicleAttributes, error) {
	return s.attributes, nil
}

func (s *stubClient) LockVehicle(ctx context.Context) error {
	s.lockCalls++
	return nil
}

func (s *stubClient) UnlockVehicle(ctx context.Context) error {
	s.unlockCalls++
	return nil
}

func (s *stubClient) StartPreconditioning(ctx context.Context, targetCelsius float64) error {
	s.startCalls = append(s.startCalls, targetCelsius)
	return nil
}

func (s *stubClient) StopPreconditioning(ctx context.Context) error {
	s.stopCalls++
	return nil
}

func (s *stubClient) WakeUp(ctx context.Context) error {
	s.wakeCalls++
	return s.wakeErr
}

func newTestBridge(client *stubClient) *Bridge {
	return New(client, Config{LowBatteryThreshold: 25}, nil)
}

func TestBridge_BatteryLevel(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantErr bool
	}{
		{name: "json number", value: float64(82), want: 82},
		{name: "string number", value: "82", want: 82},
		{name: "non-numeric string", value: "unknown", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{status: incontrol.StatusSnapshot{"EV_STATE_OF_CHARGE": tt.value}}
			level, err := newTestBridge(client).BatteryLevel(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, level)
		})
	}
}

func TestBridge_BatteryLevel_MissingKey(t *testing.T) {
	client := &stubClient{status: incontrol.StatusSnapshot{}}
	_, err := newTestBridge(client).BatteryLevel(context.Background())
	assert.Error(t, err)
}

func TestBridge_IsLowBattery(t *testing.T) {
	tests := []struct {
		name  string
		level float64
		want  bool
	}{
		{name: "below threshold", level: 24, want: true},
		{name: "at threshold", level: 25, want: false},
		{name: "above threshold", level: 80, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{status: incontrol.StatusSnapshot{"EV_STATE_OF_CHARGE": tt.level}}
			low, err := newTestBridge(client).IsLowBattery(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, low)
		})
	}
}

func TestBridge_IsCharging(t *testing.T) {
	client := &stubClient{status: incontrol.StatusSnapshot{"EV_CHARGING_STATUS": "CHARGING"}}
	charging, err := newTestBridge(client).IsCharging(context.Background())
	require.NoError(t, err)
	assert.True(t, charging)

	client.status["EV_CHARGING_STATUS"] = "NOTCONNECTED"
	charging, err = newTestBridge(client).IsCharging(context.Background())
	require.NoError(t, err)
	assert.False(t, charging)
}

func TestBridge_IsLocked(t *testing.T) {
	client := &stubClient{status: incontrol.StatusSnapshot{"DOOR_IS_ALL_DOORS_LOCKED": "TRUE"}}
	locked, err := newTestBridge(client).IsLocked(context.Background())
	require.NoError(t, err)
	assert.True(t, locked)

	client.status["DOOR_IS_ALL_DOORS_LOCKED"] = "FALSE"
	locked, err = newTestBridge(client).IsLocked(context.Background())
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestBridge_IsClimateOn(t *testing.T) {
	client := &stubClient{status: incontrol.StatusSnapshot{"CLIMATE_STATUS_OPERATING_STATUS": "HEATING"}}
	on, err := newTestBridge(client).IsClimateOn(context.Background())
	require.NoError(t, err)
	assert.True(t, on)
}

func TestBridge_StatusDoesNotWakeVehicle(t *testing.T) {
	client := &stubClient{status: incontrol.StatusSnapshot{}}
	b := newTestBridge(client)

	_, err := b.Status(context.Background())
	require.NoError(t, err)
	_, err = b.IsCharging(context.Background())
	require.NoError(t, err)

	assert.Zero(t, client.wakeCalls, "state reads must never wake the vehicle")
}

func TestBridge_LockDoorsWakesFirst(t *testing.T) {
	client := &stubClient{}
	b := newTestBridge(client)

	require.NoError(t, b.LockDoors(context.Background()))
	assert.Equal(t, 1, client.wakeCalls)
	assert.Equal(t, 1, client.lockCalls)
}

func TestBridge_WakeUpFailureBlocksCommand(t *testing.T) {
	wakeErr := errors.New("vehicle did not wake up")
	client := &stubClient{wakeErr: wakeErr}
	b := newTestBridge(client)

	err := b.UnlockDoors(context.Background())
	assert.ErrorIs(t, err, wakeErr)
	assert.Zero(t, client.unlockCalls, "the command must not be sent when wake-up fails")
}

func TestBridge_StartClimateUsesTarget(t *testing.T) {
	client := &stubClient{}
	b := newTestBridge(client)

	applied := b.SetTargetTemperature(21)
	assert.Equal(t, float64(21), applied)

	require.NoError(t, b.StartClimate(context.Background()))
	require.Len(t, client.startCalls, 1)
	assert.Equal(t, float64(21), client.startCalls[0])
	assert.Equal(t, 1, client.wakeCalls)
}

func TestBridge_StopClimate(t *testing.T) {
	client := &stubClient{}
	b := newTestBridge(client)

	require.NoError(t, b.StopClimate(context.Background()))
	assert.Equal(t, 1, client.stopCalls)
	assert.Equal(t, 1, client.wakeCalls)
}

func TestBridge_TargetTemperatureClamping(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{name: "too cold", value: 10, want: MinTargetTemperature},
		{name: "too hot", value: 35, want: MaxTargetTemperature},
		{name: "in range", value: 20.5, want: 20.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBridge(&stubClient{})
			assert.Equal(t, tt.want, b.SetTargetTemperature(tt.value))
			assert.Equal(t, tt.want, b.TargetTemperature())
		})
	}
}

func TestBridge_DefaultTargetTemperature(t *testing.T) {
	b := New(&stubClient{}, Config{LowBatteryThreshold: 25}, nil)
	assert.Equal(t, float64(DefaultTargetTemperature), b.TargetTemperature())
}

package incontrol

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockVehicle(t *testing.T) {
	upstream := newFakeUpstream(t)
	client := newTestClient(t, upstream)

	err := client.LockVehicle(context.Background())
	require.NoError(t, err)

	require.Len(t, upstream.tokenRequests, 1)
	assert.Equal(t, serviceRemoteDoorLock, upstream.tokenRequests[0]["serviceName"])
	assert.Equal(t, "1234", upstream.tokenRequests[0]["pin"])

	require.Len(t, upstream.commandBodies["lock"], 1)
	assert.Equal(t, "cmd-token-1", upstream.commandBodies["lock"][0]["token"])
}

func TestUnlockVehicle(t *testing.T) {
	upstream := newFakeUpstream(t)
	client := newTestClient(t, upstream)

	err := client.UnlockVehicle(context.Background())
	require.NoError(t, err)

	require.Len(t, upstream.tokenRequests, 1)
	assert.Equal(t, serviceRemoteDoorUnlock, upstream.tokenRequests[0]["serviceName"])
	require.Len(t, upstream.commandBodies["unlock"], 1)
}

func TestLockVehicle_CommandTokenFreshness(t *testing.T) {
	upstream := newFakeUpstream(t)
	client := newTestClient(t, upstream)

	require.NoError(t, client.LockVehicle(context.Background()))
	require.NoError(t, client.LockVehicle(context.Background()))

	require.Len(t, upstream.tokenRequests, 2, "every dispatch must request its own token")
	locks := upstream.commandBodies["lock"]
	require.Len(t, locks, 2)
	assert.NotEqual(t, locks[0]["token"], locks[1]["token"], "command tokens must never be reused")
}

func TestLockUnlock_RequirePIN(t *testing.T) {
	upstream := newFakeUpstream(t)

	client, err := NewClient(Config{
		Username:       testUsername,
		Password:       "secret",
		DeviceID:       testDeviceID,
		VIN:            testVIN,
		AuthBaseURL:    upstream.server.URL,
		DeviceBaseURL:  upstream.server.URL,
		VehicleBaseURL: upstream.server.URL,
		WakeUpTimeout:  time.Minute,
	}, testLogger())
	require.NoError(t, err)

	assert.ErrorIs(t, client.LockVehicle(context.Background()), ErrPINRequired)
	assert.ErrorIs(t, client.UnlockVehicle(context.Background()), ErrPINRequired)
	assert.Zero(t, upstream.authCalls, "a missing PIN must fail before any network call")
}

func TestStartPreconditioning_TemperatureEncoding(t *testing.T) {
	upstream := newFakeUpstream(t)
	client := newTestClient(t, upstream)

	err := client.StartPreconditioning(context.Background(), 21)
	require.NoError(t, err)

	require.Len(t, upstream.tokenRequests, 1)
	assert.Equal(t, serviceClimateControl, upstream.tokenRequests[0]["serviceName"])

	bodies := upstream.commandBodies["preconditioning"]
	require.Len(t, bodies, 1)
	params := bodies[0]["serviceParameters"].([]any)
	require.Len(t, params, 2)

	first := params[0].(map[string]any)
	assert.Equal(t, "PRECONDITIONING", first["key"])
	assert.Equal(t, "START", first["value"])

	second := params[1].(map[string]any)
	assert.Equal(t, "TARGET_TEMPERATURE_CELSIUS", second["key"])
	assert.Equal(t, "210", second["value"], "Celsius must be encoded in tenths")
}

func TestStartPreconditioning_HalfDegreeRounds(t *testing.T) {
	upstream := newFakeUpstream(t)
	client := newTestClient(t, upstream)

	err := client.StartPreconditioning(context.Background(), 15.5)
	require.NoError(t, err)

	bodies := upstream.commandBodies["preconditioning"]
	require.Len(t, bodies, 1)
	params := bodies[0]["serviceParameters"].([]any)
	second := params[1].(map[string]any)
	assert.Equal(t, "155", second["value"])
}

func TestStopPreconditioning(t *testing.T) {
	upstream := newFakeUpstream(t)
	client := newTestClient(t, upstream)

	err := client.StopPreconditioning(context.Background())
	require.NoError(t, err)

	bodies := upstream.commandBodies["preconditioning"]
	require.Len(t, bodies, 1)
	params := bodies[0]["serviceParameters"].([]any)
	require.Len(t, params, 1)

	first := params[0].(map[string]any)
	assert.Equal(t, "PRECONDITIONING", first["key"])
	assert.Equal(t, "STOP", first["value"])
}

func TestPreconditioning_PINFallsBackToVINSuffix(t *testing.T) {
	upstream := newFakeUpstream(t)

	client, err := NewClient(Config{
		Username:       testUsername,
		Password:       "secret",
		DeviceID:       testDeviceID,
		VIN:            testVIN,
		AuthBaseURL:    upstream.server.URL,
		DeviceBaseURL:  upstream.server.URL,
		VehicleBaseURL: upstream.server.URL,
		WakeUpTimeout:  time.Minute,
	}, testLogger())
	require.NoError(t, err)

	require.NoError(t, client.StopPreconditioning(context.Background()))

	require.Len(t, upstream.tokenRequests, 1)
	assert.Equal(t, testVIN[len(testVIN)-4:], upstream.tokenRequests[0]["pin"])
}

func TestPreconditioning_ConfiguredPINWins(t *testing.T) {
	upstream := newFakeUpstream(t)
	client := newTestClient(t, upstream)

	require.NoError(t, client.StopPreconditioning(context.Background()))

	require.Len(t, upstream.tokenRequests, 1)
	assert.Equal(t, "1234", upstream.tokenRequests[0]["pin"])
}

package incontrol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVehicleStatus_Flattening(t *testing.T) {
	upstream := newFakeUpstream(t)
	upstream.statusPairs = []map[string]any{
		{"key": "EV_STATE_OF_CHARGE", "value": 82},
		{"key": "DOOR_IS_ALL_DOORS_LOCKED", "value": "TRUE"},
		{"key": "EV_CHARGING_STATUS", "value": "NOTCONNECTED"},
	}
	client := newTestClient(t, upstream)

	snapshot, err := client.GetVehicleStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, float64(82), snapshot["EV_STATE_OF_CHARGE"])
	assert.Equal(t, "TRUE", snapshot["DOOR_IS_ALL_DOORS_LOCKED"])
	assert.Equal(t, "NOTCONNECTED", snapshot["EV_CHARGING_STATUS"])
	assert.Len(t, snapshot, 3)
}

func TestGetVehicleStatus_DuplicateKeysLastWriteWins(t *testing.T) {
	upstream := newFakeUpstream(t)
	upstream.statusPairs = []map[string]any{
		{"key": "EV_STATE_OF_CHARGE", "value": 40},
		{"key": "EV_STATE_OF_CHARGE", "value": 82},
	}
	client := newTestClient(t, upstream)

	snapshot, err := client.GetVehicleStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, float64(82), snapshot["EV_STATE_OF_CHARGE"])
	assert.Len(t, snapshot, 1)
}

func TestGetVehicleStatus_ReusesSession(t *testing.T) {
	upstream := newFakeUpstream(t)
	client := newTestClient(t, upstream)

	_, err := client.GetVehicleStatus(context.Background())
	require.NoError(t, err)
	_, err = client.GetVehicleStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.statusCalls)
	assert.Equal(t, 1, upstream.authCalls)
}

func TestGetVehicleAttributes(t *testing.T) {
	upstream := newFakeUpstream(t)
	client := newTestClient(t, upstream)

	attributes, err := client.GetVehicleAttributes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Growler", attributes.Nickname)
	assert.Equal(t, "AB12 CDE", attributes.RegistrationNumber)
	assert.Equal(t, "Jaguar", attributes.VehicleBrand)
	assert.Equal(t, "I-Pace", attributes.VehicleType)
	assert.Equal(t, "IPACE2018", attributes.VehicleTypeCode)
}

func TestVehicleInformation_UnknownOperation(t *testing.T) {
	upstream := newFakeUpstream(t)
	client := newTestClient(t, upstream)

	err := client.vehicleInformation(context.Background(), "position", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown vehicle information operation")
}

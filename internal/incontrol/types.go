package incontrol

import "time"

// Session is a resolved authenticated identity with the InControl cloud.
// It is built in one piece by the session manager and read-only afterward;
// callers never mutate it.
type Session struct {
	AccessToken        string
	AuthorizationToken string
	RefreshToken       string
	TokenType          string

	// ValidUntil is the instant after which the session must be rebuilt.
	// It already includes the renewal skew.
	ValidUntil time.Time

	DeviceRegistered bool
	UserID           string
}

// StatusSnapshot is a point-in-time view of the vehicle's telemetry,
// flattened from the upstream key/value list. Duplicate keys resolve
// last-write-wins in list order.
type StatusSnapshot map[string]any

// VehicleAttributes describes the configured vehicle.
type VehicleAttributes struct {
	Nickname           string `json:"nickname"`
	RegistrationNumber string `json:"registrationNumber"`
	VehicleBrand       string `json:"vehicleBrand"`
	VehicleType        string `json:"vehicleType"`
	VehicleTypeCode    string `json:"vehicleTypeCode"`
}

// Vehicle online states reported by the vehicle endpoint.
const (
	VehicleStateOnline = "online"
	VehicleStateAsleep = "asleep"
)

// keyValue is the pair shape the upstream uses both for status responses
// and for command service parameters.
type keyValue struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

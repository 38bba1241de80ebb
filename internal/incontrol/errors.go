package incontrol

import (
	"errors"
	"fmt"
)

var (
	// ErrWakeUpTimeout reports that the vehicle did not come online within
	// the configured wake-up deadline. It is distinct from transport
	// errors so callers can tell "car stayed asleep" from "cloud is down".
	ErrWakeUpTimeout = errors.New("vehicle did not wake up within the deadline")

	// ErrPINRequired reports that a command needs the owner's PIN and none
	// is configured.
	ErrPINRequired = errors.New("no PIN configured - lock and unlock require the owner's PIN")
)

// APIError is a non-2xx response from the InControl cloud.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("InControl API request failed with status %d: %s", e.StatusCode, e.Body)
}

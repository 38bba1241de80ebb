package incontrol

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
)

// Logical vehicle services and the commands bound to them. Each command
// couples a human-readable name to the service code its authorization
// token must be issued for and to the endpoint path under the vehicle.
const (
	serviceRemoteDoorLock   = "RDL"
	serviceRemoteDoorUnlock = "RDU"
	serviceClimateControl   = "ECC"
)

type command struct {
	name    string
	service string
	path    string
}

var (
	commandLock            = command{name: "lock", service: serviceRemoteDoorLock, path: "lock"}
	commandUnlock          = command{name: "unlock", service: serviceRemoteDoorUnlock, path: "unlock"}
	commandPreconditioning = command{name: "preconditioning", service: serviceClimateControl, path: "preconditioning"}
)

// dispatch obtains a fresh command token for cmd and issues the command.
// Fire-and-forget: the call returns once the cloud accepts the command;
// it does not poll for completion.
func (c *Client) dispatch(ctx context.Context, cmd command, pin string, params []keyValue) error {
	token, err := c.commandToken(ctx, cmd.service, pin)
	if err != nil {
		return err
	}

	s, err := c.session(ctx)
	if err != nil {
		return err
	}

	c.logger.Info("Dispatching vehicle command", "command", cmd.name)

	body := map[string]any{
		"token": token,
	}
	if params != nil {
		body["serviceParameters"] = params
	}

	endpoint := fmt.Sprintf("%s/vehicles/%s/%s", c.config.VehicleBaseURL, c.config.VIN, cmd.path)
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)

	return c.sendJSON(req, nil)
}

// LockVehicle locks the doors. Requires the owner's configured PIN.
func (c *Client) LockVehicle(ctx context.Context) error {
	if c.config.PIN == "" {
		return ErrPINRequired
	}
	return c.dispatch(ctx, commandLock, c.config.PIN, nil)
}

// UnlockVehicle unlocks the doors. Requires the owner's configured PIN.
func (c *Client) UnlockVehicle(ctx context.Context) error {
	if c.config.PIN == "" {
		return ErrPINRequired
	}
	return c.dispatch(ctx, commandUnlock, c.config.PIN, nil)
}

// StartPreconditioning starts climate preconditioning toward the target
// cabin temperature in Celsius. The protocol encodes the temperature in
// tenths of a degree.
func (c *Client) StartPreconditioning(ctx context.Context, targetCelsius float64) error {
	params := []keyValue{
		{Key: "PRECONDITIONING", Value: "START"},
		{Key: "TARGET_TEMPERATURE_CELSIUS", Value: strconv.Itoa(int(math.Round(targetCelsius * 10)))},
	}
	return c.dispatch(ctx, commandPreconditioning, c.climatePIN(), params)
}

// StopPreconditioning stops climate preconditioning.
func (c *Client) StopPreconditioning(ctx context.Context) error {
	params := []keyValue{
		{Key: "PRECONDITIONING", Value: "STOP"},
	}
	return c.dispatch(ctx, commandPreconditioning, c.climatePIN(), params)
}

// climatePIN returns the PIN used for climate commands. Without a
// configured PIN the platform accepts the last four characters of the
// VIN for the ECC service; a platform convention, not a security control.
func (c *Client) climatePIN() string {
	if c.config.PIN != "" {
		return c.config.PIN
	}
	vin := c.config.VIN
	return vin[len(vin)-4:]
}

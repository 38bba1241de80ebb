package incontrol

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	wakeUpInitialWait = time.Second
	wakeUpMaxWait     = 5 * time.Second
)

// WakeUp sends a wake command and polls the vehicle state with
// exponential backoff until the vehicle reports online or the configured
// deadline elapses. The cloud offers no push notification for wake
// completion, so polling is the only option. A deadline miss returns an
// error wrapping ErrWakeUpTimeout; transport failures propagate as-is.
func (c *Client) WakeUp(ctx context.Context) error {
	c.logger.Info("Waking up vehicle", "vin", c.config.VIN, "timeout", c.config.WakeUpTimeout)

	if err := c.sendWakeCommand(ctx); err != nil {
		return err
	}

	deadline := c.clock.Now().Add(c.config.WakeUpTimeout)
	wait := wakeUpInitialWait

	for {
		state, err := c.vehicleState(ctx)
		if err != nil {
			return err
		}
		if state == VehicleStateOnline {
			c.logger.Info("Vehicle is online")
			return nil
		}

		if !c.clock.Now().Before(deadline) {
			return fmt.Errorf("%w (deadline %s)", ErrWakeUpTimeout, c.config.WakeUpTimeout)
		}

		c.logger.Debug("Vehicle still asleep, backing off", "state", state, "wait", wait)
		if err := c.clock.Sleep(ctx, wait); err != nil {
			return err
		}

		wait *= 2
		if wait > wakeUpMaxWait {
			wait = wakeUpMaxWait
		}
	}
}

// sendWakeCommand fires the wake request. The response carries no state
// guarantee; the poll loop decides when the vehicle is actually awake.
func (c *Client) sendWakeCommand(ctx context.Context) error {
	s, err := c.session(ctx)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/vehicles/%s/wakeup", c.config.VehicleBaseURL, c.config.VIN)
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, map[string]any{})
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)

	return c.sendJSON(req, nil)
}

package incontrol

import (
	"context"
	"fmt"
	"net/http"
)

// vehicleInformation performs a GET against one of the vehicle
// information operations, with the Accept header the operation demands.
func (c *Client) vehicleInformation(ctx context.Context, operation string, out any) error {
	accept, ok := vehicleInfoAccepts[operation]
	if !ok {
		// NewClient verifies the required operations, so this only fires
		// if a caller invents a new operation name.
		return fmt.Errorf("unknown vehicle information operation %q", operation)
	}

	s, err := c.session(ctx)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/vehicles/%s/%s", c.config.VehicleBaseURL, c.config.VIN, operation)
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)

	return c.sendJSON(req, out)
}

// GetVehicleStatus fetches the current telemetry snapshot. The upstream
// returns an ordered key/value list; it is flattened into a map in list
// order, so duplicated keys resolve to the last occurrence.
func (c *Client) GetVehicleStatus(ctx context.Context) (StatusSnapshot, error) {
	c.logger.Debug("Getting vehicle status", "vin", c.config.VIN)

	var response struct {
		VehicleStatus []keyValue `json:"vehicleStatus"`
	}
	if err := c.vehicleInformation(ctx, opStatus, &response); err != nil {
		return nil, err
	}

	snapshot := make(StatusSnapshot, len(response.VehicleStatus))
	for _, kvp := range response.VehicleStatus {
		snapshot[kvp.Key] = kvp.Value
	}

	return snapshot, nil
}

// GetVehicleAttributes fetches the vehicle's descriptive attributes.
func (c *Client) GetVehicleAttributes(ctx context.Context) (*VehicleAttributes, error) {
	c.logger.Debug("Getting vehicle attributes", "vin", c.config.VIN)

	var attributes VehicleAttributes
	if err := c.vehicleInformation(ctx, opAttributes, &attributes); err != nil {
		return nil, err
	}

	return &attributes, nil
}

// vehicleState reports whether the vehicle is online or asleep.
func (c *Client) vehicleState(ctx context.Context) (string, error) {
	s, err := c.session(ctx)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/vehicles/%s", c.config.VehicleBaseURL, c.config.VIN)
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)

	var vehicle struct {
		State string `json:"state"`
	}
	if err := c.sendJSON(req, &vehicle); err != nil {
		return "", err
	}

	return vehicle.State, nil
}

package incontrol

import (
	"context"
	"fmt"
	"net/http"
)

// commandToken requests a fresh, single-use authorization token scoped to
// one logical vehicle service. Tokens are never cached; every command
// dispatch asks for a new one.
func (c *Client) commandToken(ctx context.Context, serviceName, pin string) (string, error) {
	s, err := c.session(ctx)
	if err != nil {
		return "", err
	}

	c.logger.Debug("Requesting command authorization token", "service", serviceName)

	body := map[string]string{
		"serviceName": serviceName,
		"pin":         pin,
	}

	endpoint := fmt.Sprintf("%s/vehicles/%s/users/%s/authenticate", c.config.VehicleBaseURL, c.config.VIN, s.UserID)
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)

	var issued struct {
		Token string `json:"token"`
	}
	if err := c.sendJSON(req, &issued); err != nil {
		return "", err
	}
	if issued.Token == "" {
		return "", fmt.Errorf("command authorization for %s returned no token", serviceName)
	}

	return issued.Token, nil
}

package incontrol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// clientBasicAuth is the fixed client credential the token endpoint
	// expects on every credential exchange.
	clientBasicAuth = "Basic YXM6YXNwYXNz"

	defaultWakeUpTimeout = time.Minute
)

// Information operations served by the vehicle host. Each one maps to a
// versioned Accept header; the mapping is checked at construction time so
// an unknown operation name fails NewClient instead of producing an
// undefined header at request time.
const (
	opStatus     = "status"
	opAttributes = "attributes"
)

var vehicleInfoAccepts = map[string]string{
	opStatus:     "application/vnd.ngtp.org.if9.healthstatus-v2+json",
	opAttributes: "application/vnd.ngtp.org.VehicleAttributes-v3+json",
}

var requiredInfoOperations = []string{opStatus, opAttributes}

const userInfoAccept = "application/vnd.wirelesscar.ngtp.if9.User-v3+json"

// Config contains InControl cloud account and vehicle settings
type Config struct {
	Username string
	Password string
	DeviceID string
	VIN      string
	PIN      string // optional; see commands.go for the preconditioning fallback

	AuthBaseURL    string // token issuance host
	DeviceBaseURL  string // device registration host
	VehicleBaseURL string // user and vehicle data host

	// WakeUpTimeout bounds how long WakeUp polls for the vehicle to come
	// online. Defaults to one minute.
	WakeUpTimeout time.Duration
}

// Client talks to the InControl cloud API on behalf of a single vehicle.
// All methods are safe for concurrent use; the only shared mutable state
// is the cached session, which the session manager guards.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	clock      Clock
	sessions   *sessionManager
}

// NewClient creates a new InControl client
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if config.Username == "" || config.Password == "" {
		return nil, fmt.Errorf("InControl credentials are required")
	}
	if config.DeviceID == "" {
		return nil, fmt.Errorf("device ID is required")
	}
	if config.VIN == "" {
		return nil, fmt.Errorf("vehicle VIN is required")
	}
	if config.AuthBaseURL == "" || config.DeviceBaseURL == "" || config.VehicleBaseURL == "" {
		return nil, fmt.Errorf("upstream base URLs are required")
	}
	if config.WakeUpTimeout <= 0 {
		config.WakeUpTimeout = defaultWakeUpTimeout
	}

	for _, op := range requiredInfoOperations {
		if _, ok := vehicleInfoAccepts[op]; !ok {
			return nil, fmt.Errorf("no Accept header mapped for vehicle information operation %q", op)
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With("component", "incontrol"),
		clock:  realClock{},
	}
	c.sessions = newSessionManager(c)

	return c, nil
}

// newRequest creates an HTTP request with a JSON body and the standard
// content-type and device headers
func (c *Client) newRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var bodyReader io.Reader

	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-Id", c.config.DeviceID)

	return req, nil
}

// send issues the request and reads the full response body. It only fails
// on network-level errors; callers interpret the status code.
func (c *Client) send(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

// sendJSON issues the request, requires a 2xx status and, when out is
// non-nil, decodes the response body into it.
func (c *Client) sendJSON(req *http.Request, out any) error {
	status, body, err := c.send(req)
	if err != nil {
		return err
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return &APIError{StatusCode: status, Body: string(body)}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

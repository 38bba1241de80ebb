package incontrol

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"carbridge/internal/mutexgate"
)

const (
	// sessionGateTTL bounds how long a single login sequence may hold the
	// construction gate. A hung sequence unblocks waiters after this.
	sessionGateTTL = 20 * time.Second

	// sessionRenewalSkew renews sessions slightly before the upstream
	// lifetime actually ends so in-flight requests do not race expiry.
	sessionRenewalSkew = time.Minute
)

// Session construction states. Transitions are strictly ordered; no step
// can be skipped and a failure at any step resets to unauthenticated.
const (
	stateUnauthenticated = "unauthenticated"
	stateAuthenticating  = "authenticating"
	stateRegistering     = "registering"
	stateResolvingUser   = "resolving_user"
	stateResolved        = "resolved"
)

const (
	eventBegin         = "begin"
	eventAuthenticated = "authenticated"
	eventRegistered    = "registered"
	eventResolved      = "resolved"
	eventReset         = "reset"
)

// sessionManager owns the cached Session and the state machine that
// orders its construction. The mutex gate serializes construction so
// only one authenticate/register/resolve sequence ever runs at a time;
// the machine itself is only touched inside the gate's critical section.
type sessionManager struct {
	client  *Client
	gate    *mutexgate.Gate
	machine *fsm.FSM

	mu      sync.RWMutex
	current *Session
}

func newSessionManager(client *Client) *sessionManager {
	m := &sessionManager{
		client: client,
		gate:   mutexgate.New(sessionGateTTL),
	}

	m.machine = fsm.NewFSM(
		stateUnauthenticated,
		fsm.Events{
			{Name: eventBegin, Src: []string{stateUnauthenticated, stateResolved}, Dst: stateAuthenticating},
			{Name: eventAuthenticated, Src: []string{stateAuthenticating}, Dst: stateRegistering},
			{Name: eventRegistered, Src: []string{stateRegistering}, Dst: stateResolvingUser},
			{Name: eventResolved, Src: []string{stateResolvingUser}, Dst: stateResolved},
			{Name: eventReset, Src: []string{stateAuthenticating, stateRegistering, stateResolvingUser, stateResolved}, Dst: stateUnauthenticated},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				client.logger.Debug("Session state transition",
					"from", e.Src,
					"to", e.Dst,
					"event", e.Event,
				)
			},
		},
	)

	return m
}

// cached returns the current session if it is still valid at now.
func (m *sessionManager) cached(now time.Time) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current != nil && now.Before(m.current.ValidUntil) {
		return m.current
	}
	return nil
}

func (m *sessionManager) store(s *Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}

// session returns the cached session, building one first if none exists
// or the cached one has expired. Concurrent callers are serialized by the
// construction gate, so N simultaneous calls trigger at most one login
// sequence and all observe the same session.
func (c *Client) session(ctx context.Context) (*Session, error) {
	if s := c.sessions.cached(c.clock.Now()); s != nil {
		return s, nil
	}

	release, err := c.sessions.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// Another caller may have finished construction while we waited.
	if s := c.sessions.cached(c.clock.Now()); s != nil {
		return s, nil
	}

	s, err := c.sessions.build(ctx)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// build runs the full construction sequence. On failure the machine and
// cache reset so the next caller restarts from unauthenticated.
func (m *sessionManager) build(ctx context.Context) (*Session, error) {
	if err := m.machine.Event(ctx, eventBegin); err != nil {
		return nil, fmt.Errorf("cannot start session construction: %w", err)
	}

	s, err := m.runSequence(ctx)
	if err != nil {
		m.store(nil)
		if resetErr := m.machine.Event(ctx, eventReset); resetErr != nil {
			m.client.logger.Error("Failed to reset session state", "error", resetErr)
		}
		return nil, err
	}

	m.store(s)
	return s, nil
}

func (m *sessionManager) runSequence(ctx context.Context) (*Session, error) {
	s, expiresIn, err := m.client.authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if err := m.machine.Event(ctx, eventAuthenticated); err != nil {
		return nil, err
	}

	registered, err := m.client.registerDevice(ctx, s, expiresIn)
	if err != nil {
		return nil, fmt.Errorf("device registration failed: %w", err)
	}
	s.DeviceRegistered = registered
	if !registered {
		return nil, fmt.Errorf("device registration was not confirmed by the server")
	}
	if err := m.machine.Event(ctx, eventRegistered); err != nil {
		return nil, err
	}

	userID, err := m.client.resolveUser(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("user resolution failed: %w", err)
	}
	s.UserID = userID
	if err := m.machine.Event(ctx, eventResolved); err != nil {
		return nil, err
	}

	return s, nil
}

type tokenResponse struct {
	AccessToken        string      `json:"access_token"`
	AuthorizationToken string      `json:"authorization_token"`
	RefreshToken       string      `json:"refresh_token"`
	TokenType          string      `json:"token_type"`
	ExpiresIn          json.Number `json:"expires_in"`
}

// authenticate exchanges the user credentials for tokens. The returned
// expiresIn is the raw upstream lifetime, needed verbatim by device
// registration.
func (c *Client) authenticate(ctx context.Context) (*Session, json.Number, error) {
	c.logger.Info("Authenticating with InControl API", "username", c.config.Username)

	body := map[string]string{
		"grant_type": "password",
		"username":   c.config.Username,
		"password":   c.config.Password,
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.config.AuthBaseURL+"/tokens", body)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", clientBasicAuth)

	var tokens tokenResponse
	if err := c.sendJSON(req, &tokens); err != nil {
		return nil, "", err
	}

	expirySeconds, err := tokens.ExpiresIn.Int64()
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse token lifetime %q: %w", tokens.ExpiresIn.String(), err)
	}

	lifetime := time.Duration(expirySeconds)*time.Second - sessionRenewalSkew
	s := &Session{
		AccessToken:        tokens.AccessToken,
		AuthorizationToken: tokens.AuthorizationToken,
		RefreshToken:       tokens.RefreshToken,
		TokenType:          tokens.TokenType,
		ValidUntil:         c.clock.Now().Add(lifetime),
	}

	c.logger.Info("Got an authentication token", "valid_until", s.ValidUntil)
	return s, tokens.ExpiresIn, nil
}

// registerDevice binds the device identifier to the account. The server
// signals success with 204 No Content; that is a boolean outcome, not an
// error condition.
func (c *Client) registerDevice(ctx context.Context, s *Session, expiresIn json.Number) (bool, error) {
	c.logger.Info("Registering device", "device_id", c.config.DeviceID)

	body := map[string]any{
		"access_token":        s.AccessToken,
		"authorization_token": s.AuthorizationToken,
		"expires_in":          expiresIn,
		"deviceID":            c.config.DeviceID,
	}

	endpoint := fmt.Sprintf("%s/users/%s/clients", c.config.DeviceBaseURL, url.PathEscape(c.config.Username))
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return false, err
	}

	status, respBody, err := c.send(req)
	if err != nil {
		return false, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return false, &APIError{StatusCode: status, Body: string(respBody)}
	}

	registered := status == http.StatusNoContent
	c.logger.Info("Device registration result", "registered", registered)
	return registered, nil
}

// resolveUser looks up the account's user identifier with the bearer
// token obtained during authentication.
func (c *Client) resolveUser(ctx context.Context, s *Session) (string, error) {
	c.logger.Info("Resolving user", "username", c.config.Username)

	endpoint := fmt.Sprintf("%s/users?loginName=%s", c.config.VehicleBaseURL, url.QueryEscape(c.config.Username))
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", userInfoAccept)
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)

	var user struct {
		UserID string `json:"userId"`
	}
	if err := c.sendJSON(req, &user); err != nil {
		return "", err
	}
	if user.UserID == "" {
		return "", fmt.Errorf("user lookup returned no userId")
	}

	return user.UserID, nil
}

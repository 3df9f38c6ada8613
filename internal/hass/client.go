package hass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/config"
	"github.com/goatboynz/pro-irrigation-addon/internal/infrastructure/logging"
)

// EntityState represents the current state of a Home Assistant entity.
type EntityState struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged string         `json:"last_changed"`
	LastUpdated string         `json:"last_updated"`
}

// FriendlyName returns the friendly_name attribute, falling back to the
// entity ID when the attribute is missing.
func (s *EntityState) FriendlyName() string {
	if name, ok := s.Attributes["friendly_name"].(string); ok && name != "" {
		return name
	}
	return s.EntityID
}

// Client is a Home Assistant REST API client with retry support.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
	logger     *logging.Logger
}

// New creates a new Home Assistant client from configuration.
//
// Parameters:
//   - cfg: Home Assistant connection settings from config.yaml
//   - logger: Logger instance (a "component"=hass child is derived)
//
// Returns:
//   - *Client: Configured client ready for use
func New(cfg config.HomeAssistantConfig, logger *logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Duration(cfg.RetryDelay) * time.Second,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger.With("component", "hass"),
	}
}

// GetState retrieves the current state of a specific entity.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - entityID: The entity ID (e.g., "switch.irrigation_zone_1")
//
// Returns:
//   - *EntityState: Current state and attributes
//   - error: ErrEntityNotFound if the reference is unknown,
//     ErrServiceUnavailable for transient failures after retries
func (c *Client) GetState(ctx context.Context, entityID string) (*EntityState, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, "/states/"+entityID, nil)
	if err != nil {
		return nil, err
	}

	var state EntityState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("%w: decoding state for %s: %v", ErrBadResponse, entityID, err)
	}
	return &state, nil
}

// ListEntities retrieves all entity states, optionally filtered by a
// domain prefix (e.g., "switch", "input_boolean", "input_datetime").
//
// Used by the configuration API so operators can pick entity references
// without typing them by hand.
func (c *Client) ListEntities(ctx context.Context, prefix string) ([]EntityState, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, "/states", nil)
	if err != nil {
		return nil, err
	}

	var states []EntityState
	if err := json.Unmarshal(body, &states); err != nil {
		return nil, fmt.Errorf("%w: decoding entity list: %v", ErrBadResponse, err)
	}

	if prefix == "" {
		return states, nil
	}

	filtered := states[:0]
	for _, s := range states {
		if strings.HasPrefix(s.EntityID, prefix+".") {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}

// TurnOn invokes the turn_on service on an entity.
// The service domain is derived from the entity ID prefix, so
// "input_boolean.pump_lock" calls input_boolean.turn_on and
// "switch.zone_1" calls switch.turn_on. The call is idempotent.
func (c *Client) TurnOn(ctx context.Context, entityID string) error {
	return c.callService(ctx, serviceDomain(entityID), "turn_on", entityID)
}

// TurnOff invokes the turn_off service on an entity. Idempotent.
func (c *Client) TurnOff(ctx context.Context, entityID string) error {
	return c.callService(ctx, serviceDomain(entityID), "turn_off", entityID)
}

// HealthCheck verifies the Home Assistant API is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.doWithRetry(ctx, http.MethodGet, "/config", nil); err != nil {
		return fmt.Errorf("hass health check: %w", err)
	}
	return nil
}

// callService invokes a Home Assistant service on a single entity.
func (c *Client) callService(ctx context.Context, domain, service, entityID string) error {
	payload, err := json.Marshal(map[string]any{"entity_id": entityID})
	if err != nil {
		return fmt.Errorf("encoding service call: %w", err)
	}

	path := fmt.Sprintf("/services/%s/%s", domain, service)
	if _, err := c.doWithRetry(ctx, http.MethodPost, path, payload); err != nil {
		return err
	}

	c.logger.Debug("service called",
		"domain", domain,
		"service", service,
		"entity_id", entityID,
	)
	return nil
}

// doWithRetry performs an HTTP request with exponential-backoff retry for
// transient failures. Not-found responses are returned immediately; network
// errors and server errors are retried maxRetries times with the delay
// doubling each attempt, honouring context cancellation between attempts.
func (c *Client) doWithRetry(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: delay * 2^(attempt-1)
			delay := c.retryDelay << (attempt - 1)
			c.logger.Warn("request failed, retrying",
				"path", path,
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"delay", delay.String(),
				"error", lastErr,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, ctx.Err())
			}
		}

		respBody, retryable, err := c.do(ctx, method, path, body)
		if err == nil {
			return respBody, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %d attempts exhausted: %v", ErrServiceUnavailable, c.maxRetries+1, lastErr)
}

// do performs a single HTTP request. The retryable result indicates whether
// the failure is transient (network error, 5xx) or permanent (404, 4xx).
func (c *Client) do(ctx context.Context, method, path string, body []byte) (respBody []byte, retryable bool, err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: reading response: %v", ErrServiceUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return data, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: %s", ErrEntityNotFound, path)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, truncate(data))
	default:
		return nil, false, fmt.Errorf("%w: status %d: %s", ErrBadResponse, resp.StatusCode, truncate(data))
	}
}

// serviceDomain extracts the service domain from an entity ID.
// "input_boolean.pump_lock" -> "input_boolean". Entities without a domain
// prefix default to "switch".
func serviceDomain(entityID string) string {
	if domain, _, ok := strings.Cut(entityID, "."); ok {
		return domain
	}
	return "switch"
}

// maxErrorBody limits how much of an error response is echoed into logs.
const maxErrorBody = 200

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}

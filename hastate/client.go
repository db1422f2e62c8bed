// Package hastate reads sensor state from a Home Assistant instance over its
// REST API: battery SoC/power/voltage, day-ahead price, PV forecast and home
// consumption, all addressed by the entity-id bindings in config.ConfigProfile.
package hastate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/greenhaus/chargesched/consumption"
	"github.com/greenhaus/chargesched/model"
)

const defaultTimeout = 10 * time.Second

// Client talks to Home Assistant's REST API using a long-lived bearer token,
// in the style of a Supervisor-issued token for an add-on running alongside
// Home Assistant.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
}

// New returns a Client for the Home Assistant instance at baseURL (e.g.
// "http://supervisor/core"), authorizing with token.
func New(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		logger:     slog.Default().With("component", "hastate"),
	}
}

type stateResponse struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

func (c *Client) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// unavailable reports whether a Home Assistant state string carries no usable
// data. Per spec, "unknown"/"unavailable" must never collapse to a numeric
// zero -- callers need to distinguish "no data" from "reads as zero".
func unavailable(state string) bool {
	return state == "" || state == "unknown" || state == "unavailable"
}

// State fetches the raw state of an entity. The bool return is false when
// the entity is missing or reports "unknown"/"unavailable".
func (c *Client) State(ctx context.Context, entityID string) (model.EntityState, bool, error) {
	if c.token == "" {
		return model.EntityState{}, false, nil
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/states/"+entityID)
	if err != nil {
		return model.EntityState{}, false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.EntityState{}, false, fmt.Errorf("get state for %s: %w", entityID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("failed to get entity state", "entity_id", entityID, "status", resp.StatusCode)
		return model.EntityState{}, false, nil
	}

	var parsed stateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return model.EntityState{}, false, fmt.Errorf("decode state for %s: %w", entityID, err)
	}

	entity := model.EntityState{State: parsed.State, Attributes: parsed.Attributes}
	return entity, !unavailable(parsed.State), nil
}

// Attributes fetches just the attribute bag of an entity.
func (c *Client) Attributes(ctx context.Context, entityID string) (map[string]any, bool, error) {
	entity, ok, err := c.State(ctx, entityID)
	if err != nil || !ok {
		return nil, ok, err
	}
	return entity.Attributes, true, nil
}

// CallService invokes a Home Assistant service, e.g. domain="input_boolean",
// service="turn_on".
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	if c.token == "" {
		return fmt.Errorf("no home assistant token configured")
	}

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal service data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/services/"+domain+"/"+service, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call service %s.%s: %w", domain, service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("call service %s.%s: unexpected status %d", domain, service, resp.StatusCode)
	}
	return nil
}

func (c *Client) floatState(ctx context.Context, entityID string) (float64, bool, error) {
	if entityID == "" {
		return 0, false, nil
	}
	entity, ok, err := c.State(ctx, entityID)
	if err != nil || !ok {
		return 0, ok, err
	}
	var value float64
	if _, scanErr := fmt.Sscanf(entity.State, "%g", &value); scanErr != nil {
		return 0, false, nil
	}
	return value, true, nil
}

var _ consumption.HistorySource = (*Client)(nil)

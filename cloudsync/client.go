// Package cloudsync mirrors consumption history and control decisions to an
// optional Supabase backend. It is never required for the control loop to
// run; a disabled or unreachable backend only means the mirror falls behind.
package cloudsync

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	supa "github.com/nedpals/supabase-go"

	"github.com/google/uuid"
	"github.com/greenhaus/chargesched/model"
)

const uploadTimeout = 10 * time.Second

// Client hides the underlying open-source Supabase library behind
// reconnect and timeout handling.
type Client struct {
	url      string
	anonKey  string
	userKey  string
	schema   string
	deviceID uuid.UUID

	subClient       *supa.Client
	shouldReconnect bool
	logger          *slog.Logger
}

// New constructs a Client. deviceID identifies this scheduler instance in
// the mirrored rows; an empty or malformed value falls back to a random ID
// rather than failing construction, since cloud sync is advisory.
func New(url, anonKey, userKey, schema, deviceID string) *Client {
	id, err := uuid.Parse(deviceID)
	if err != nil {
		id = uuid.New()
	}
	return &Client{
		url:             url,
		anonKey:         anonKey,
		userKey:         userKey,
		schema:          schema,
		deviceID:        id,
		shouldReconnect: true,
		logger:          slog.Default().With("component", "cloudsync", "host", url),
	}
}

// UploadConsumption mirrors a batch of hourly consumption samples.
func (c *Client) UploadConsumption(samples []model.ConsumptionSample) error {
	if len(samples) == 0 {
		return nil
	}
	return c.upload(samples)
}

// UploadDecision mirrors a single control-loop decision.
func (c *Client) UploadDecision(at time.Time, decision model.ControlDecision) error {
	return c.upload(decisionUpload{At: at, Decision: decision})
}

func (c *Client) upload(readings interface{}) error {
	c.reconnectIfNecessary()

	rows, table := rowsForUpload(c.deviceID, readings)
	if table == "" {
		return fmt.Errorf("cloudsync: no table mapping for %T", readings)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.subClient.DB.From(table).Insert(rows).Execute(nil)
	}()

	select {
	case <-time.After(uploadTimeout):
		c.setShouldReconnect()
		return errors.New("cloudsync: upload timed out")
	case err := <-errCh:
		if err != nil {
			c.setShouldReconnect()
		}
		return err
	}
}

func (c *Client) createSubClient() {
	subClient := supa.CreateClient(c.url, c.anonKey)
	subClient.DB.AddHeader("Accept-Profile", c.schema)
	subClient.DB.AddHeader("Content-Profile", c.schema)
	if c.userKey != "" {
		subClient.DB.AddHeader("Authorization", fmt.Sprintf("Bearer %s", c.userKey))
	}
	c.subClient = subClient
}

func (c *Client) setShouldReconnect() {
	c.shouldReconnect = true
}

func (c *Client) reconnectIfNecessary() {
	if !c.shouldReconnect {
		return
	}
	c.createSubClient()
	c.shouldReconnect = false
	c.logger.Info("connected to supabase")
}

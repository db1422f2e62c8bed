// Package modbus wraps the simonvetter/modbus TCP client with the
// reconnect-on-error behaviour the inverter's setpoint writes need: a
// heartbeat failing to land shouldn't take the process down, it should mark
// the connection dirty and rebuild it on the next write.
package modbus

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/simonvetter/modbus"
)

const dialTimeout = 2 * time.Second

// Client is a modbus TCP connection to the inverter's field bus, auto-
// reconnecting after a write error.
type Client struct {
	host string

	conn            *modbus.ModbusClient
	shouldReconnect bool
	logger          *slog.Logger
}

// NewClient dials the inverter at host (e.g. "192.168.1.50:502").
func NewClient(host string) (*Client, error) {
	c := &Client{
		host:   host,
		logger: slog.Default().With("host", host),
	}

	if err := c.dial(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) dial() error {
	conn, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s", c.host),
		Timeout: dialTimeout,
	})
	if err != nil {
		return fmt.Errorf("create modbus client: %w", err)
	}
	if err := conn.Open(); err != nil {
		return fmt.Errorf("open modbus connection: %w", err)
	}

	c.conn = conn
	return nil
}

func (c *Client) markDirty() {
	c.shouldReconnect = true
}

// reconnectIfNeeded rebuilds the underlying connection if the last write
// marked it dirty.
func (c *Client) reconnectIfNeeded() error {
	if !c.shouldReconnect {
		return nil
	}

	c.conn.Close() // best effort; we're about to replace the connection anyway

	if err := c.dial(); err != nil {
		return err
	}
	c.shouldReconnect = false
	c.logger.Info("reconnected modbus client")
	return nil
}

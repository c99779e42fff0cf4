// Package bridge connects the reader to other processes over NATS. A
// trigger (an editor plugin, a hotkey daemon, another terminal) publishes
// text on the initiate subject; the serving reader reads it aloud and
// publishes progress.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"
)

// Config holds the bridge settings.
type Config struct {
	URL            string        `mapstructure:"url"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	Embedded       bool          `mapstructure:"embedded"`
	Port           int           `mapstructure:"port"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DefaultConfig returns settings for a local NATS server.
func DefaultConfig() Config {
	return Config{
		URL:            nats.DefaultURL,
		SubjectPrefix:  DefaultSubjectPrefix,
		Port:           nats.DefaultPort,
		ConnectTimeout: 2 * time.Second,
		RequestTimeout: 60 * time.Second,
	}
}

// Client wraps a NATS connection.
type Client struct {
	conn   *nats.Conn
	logger *log.Logger
}

// Connect dials the NATS server at cfg.URL.
func Connect(ctx context.Context, cfg Config, name string, logger *log.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("no NATS server configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ConnectTimeout
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.Timeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	logger.Debug("Bridge: connected", "url", cfg.URL, "name", name)
	return &Client{conn: conn, logger: logger}, nil
}

// Conn returns the underlying connection.
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// Healthy reports whether the connection is up.
func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}

// Close drains and closes the connection.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.logger.Debug("Bridge: closing connection")
	_ = c.conn.Drain()
	c.conn.Close()
}

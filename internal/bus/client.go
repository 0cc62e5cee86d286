// Package bus mirrors stream events onto NATS so other processes on the same
// deployment (recorders, debug consoles, downstream automations) can observe
// live streams without holding an HTTP connection open. Mirroring is strictly
// best effort: the bus never slows down or fails a client-facing stream.
package bus

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AlaeddineMessadi/supertonic/internal/config"
	"github.com/AlaeddineMessadi/supertonic/internal/event"
	"github.com/nats-io/nats.go"
)

// Client wraps the NATS connection and JetStream context with minimal helpers.
type Client struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	log    *slog.Logger
	prefix string
}

func Connect(ctx context.Context, cfg config.BusConfig, log *slog.Logger) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}

	options := []nats.Option{
		nats.Name("supertonic"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond),
	}

	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	log.Info("connected to NATS", slog.String("servers", url))

	return &Client{
		conn:   conn,
		js:     js,
		log:    log,
		prefix: cfg.SubjectPrefix,
	}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	c.log.Info("closing NATS connection")
	c.conn.Drain()
	c.conn.Close()
}

func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}

func (c *Client) JetStream() nats.JetStreamContext {
	return c.js
}

func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// MirrorSink wraps a transport sink so every event is also published to
// `<prefix>.<streamID>`. Publish failures are logged and swallowed; only the
// inner sink's error propagates. A nil client returns the inner sink
// unchanged, so callers wire the mirror unconditionally.
func (c *Client) MirrorSink(inner event.Sink, streamID string) event.Sink {
	if c == nil {
		return inner
	}
	subject := c.prefix + "." + streamID
	return event.SinkFunc(func(ev event.Event) error {
		if data, err := json.Marshal(ev); err == nil {
			if err := c.conn.Publish(subject, data); err != nil {
				c.log.Debug("bus mirror publish failed",
					slog.String("subject", subject),
					slog.String("error", err.Error()))
			}
		}
		return inner.Send(ev)
	})
}

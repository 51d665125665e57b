// Package hermes publishes and follows sitesmith generation events on NATS.
package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

// NewClient connects to NATS as "sitesmith". A deadline on ctx bounds the
// initial connect; later disconnects are retried in the background.
func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("sitesmith"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

// PublishPhase announces that a generation entered a new phase.
func (c *Client) PublishPhase(evt PhaseEvent) error {
	return c.publish(SubjectPhase, evt)
}

// PublishCompleted announces a generation whose stream ended normally.
func (c *Client) PublishCompleted(evt CompletedEvent) error {
	return c.publish(SubjectCompleted, evt)
}

// PublishFailed announces a generation that could not open or broke.
func (c *Client) PublishFailed(evt FailedEvent) error {
	return c.publish(SubjectFailed, evt)
}

// Announce publishes the service registration.
func (c *Client) Announce(reg Registration) error {
	if reg.Timestamp.IsZero() {
		reg.Timestamp = time.Now().UTC()
	}
	return c.publish(SubjectRegistered, reg)
}

// SubscribeGenerations delivers every generation event. Messages that do not
// decode are logged and dropped.
func (c *Client) SubscribeGenerations(handler func(Event)) error {
	return c.subscribe(SubjectGenerationAll, func(subject string, data []byte) {
		evt, err := DecodeEvent(subject, data)
		if err != nil {
			c.logger.Warn("dropping undecodable event", "subject", subject, "error", err)
			return
		}
		handler(evt)
	})
}

func (c *Client) publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}

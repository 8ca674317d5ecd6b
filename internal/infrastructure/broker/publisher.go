package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"main/internal/hub"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const defaultReconnectDelay = 5 * time.Second

var errSubscriptionEvicted = errors.New("relay subscription evicted")

// ExchangeSet names the fanout exchanges the publisher mirrors events into.
type ExchangeSet struct {
	Tickers string
	Trades  string
}

// relaySession is one live AMQP connection with its declared exchanges.
type relaySession interface {
	publish(ctx context.Context, exchange string, body []byte) error
	Close() error
}

type amqpSession struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func (s *amqpSession) publish(ctx context.Context, exchange string, body []byte) error {
	return s.channel.PublishWithContext(ctx, exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (s *amqpSession) Close() error {
	_ = s.channel.Close()
	return s.conn.Close()
}

// Publisher relays broadcast frames into RabbitMQ so downstream consumers
// can receive the same stream that websocket clients see. Like the feed
// client it reconnects forever on any failure: a broken broker must never
// stop the rest of the pipeline.
type Publisher struct {
	url            string
	exchanges      ExchangeSet
	reconnectDelay time.Duration
	logger         *logrus.Entry

	// connect overrides the AMQP transport; nil means the real one.
	connect func() (relaySession, error)
}

func NewPublisher(url string, exchanges ExchangeSet, logger *logrus.Logger) (*Publisher, error) {
	if exchanges.Tickers == "" || exchanges.Trades == "" {
		return nil, errors.New("exchange name cannot be empty")
	}
	p := &Publisher{
		url:            url,
		exchanges:      exchanges,
		reconnectDelay: defaultReconnectDelay,
		logger:         logger.WithField("component", "broker"),
	}
	p.connect = p.dial
	return p, nil
}

func (p *Publisher) dial() (relaySession, error) {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create channel: %w", err)
	}
	declared := map[string]struct{}{}
	for _, name := range []string{p.exchanges.Tickers, p.exchanges.Trades} {
		if _, ok := declared[name]; ok {
			continue
		}
		if err := ch.ExchangeDeclare(name, "fanout", true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare exchange %s: %w", name, err)
		}
		declared[name] = struct{}{}
	}
	return &amqpSession{conn: conn, channel: ch}, nil
}

// Run drives the relay until ctx is cancelled. The only non-nil return
// value is ctx.Err(); broker failures drop the session and retry after a
// fixed delay, with a fresh hub subscription per session.
func (p *Publisher) Run(ctx context.Context, stream *hub.Hub) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		session, err := p.connect()
		if err != nil {
			p.logger.WithError(err).Warn("broker connect failed")
			if !p.wait(ctx) {
				return ctx.Err()
			}
			continue
		}

		err = p.relay(ctx, session, stream)
		_ = session.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.WithError(err).Warn("broker relay interrupted")
		if !p.wait(ctx) {
			return ctx.Err()
		}
	}
}

// relay drains one hub subscription into the session, routing each frame to
// the exchange that matches its envelope type. Unknown frame types are
// skipped. Returns when the session or the subscription breaks.
func (p *Publisher) relay(ctx context.Context, session relaySession, stream *hub.Hub) error {
	sub := stream.Subscribe()
	defer stream.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.Done():
			return errSubscriptionEvicted
		case body, ok := <-sub.C():
			if !ok {
				return errSubscriptionEvicted
			}
			exchange, ok := p.routeFrame(body)
			if !ok {
				continue
			}
			if err := session.publish(ctx, exchange, body); err != nil {
				return fmt.Errorf("publish to %s: %w", exchange, err)
			}
		}
	}
}

func (p *Publisher) routeFrame(body []byte) (string, bool) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		p.logger.WithError(err).Warn("skip unroutable frame")
		return "", false
	}
	switch envelope.Type {
	case "ticker":
		return p.exchanges.Tickers, true
	case "trade":
		return p.exchanges.Trades, true
	default:
		return "", false
	}
}

// wait sleeps for the reconnect delay; false means the context ended first.
func (p *Publisher) wait(ctx context.Context) bool {
	timer := time.NewTimer(p.reconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

package feed

import (
	"context"
	"fmt"
	"time"

	interfaces "main/internal/domain/interfaces"
	"main/internal/hub"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const defaultReconnectDelay = 5 * time.Second

// Conn is the transport surface the client needs from one connection.
type Conn interface {
	ReadMessage() (messageType int, payload []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// Dialer opens the upstream transport.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type wsDialer struct{}

func (wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Config holds the upstream feed parameters.
type Config struct {
	URL            string
	Symbols        []string
	ReconnectDelay time.Duration

	// Dialer overrides the websocket transport; nil means the real one.
	Dialer Dialer
}

// subscribeRequest matches the upstream subscription wire format.
type subscribeRequest struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

// Client owns the upstream connection lifecycle: connect, subscribe, stream
// frames, reconnect after a fixed delay on any failure, for as long as the
// context lives. Decoded events go to the sink (persistence) and, as
// normalized projections, to the hub.
type Client struct {
	cfg    Config
	dialer Dialer
	sink   interfaces.Sink
	hub    *hub.Hub
	logger *logrus.Entry
}

func NewClient(cfg Config, sink interfaces.Sink, h *hub.Hub, logger *logrus.Logger) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = wsDialer{}
	}
	return &Client{
		cfg:    cfg,
		dialer: dialer,
		sink:   sink,
		hub:    h,
		logger: logger.WithField("component", "feed"),
	}
}

// Run drives the connection state machine until ctx is cancelled. The only
// non-nil return value is ctx.Err(); transport failures are retried forever.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := c.dialer.Dial(ctx, c.cfg.URL)
		if err != nil {
			c.logger.WithError(err).Warn("feed connect failed")
			if !c.wait(ctx) {
				return ctx.Err()
			}
			continue
		}

		err = c.stream(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WithError(err).Warn("feed disconnected")
		if !c.wait(ctx) {
			return ctx.Err()
		}
	}
}

func (c *Client) stream(ctx context.Context, conn Conn) error {
	// Unblock the pending read when the context ends mid-stream.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	subscribe := subscribeRequest{
		Type:       "subscribe",
		ProductIDs: c.cfg.Symbols,
		Channels:   []string{"ticker", "matches"},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}
	c.logger.WithField("symbols", len(c.cfg.Symbols)).Info("feed connected")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleFrame(ctx, payload)
	}
}

// handleFrame processes one inbound frame. Decode and persistence failures
// are isolated per event: log and continue, one bad frame or insert must not
// drop the rest of the feed.
func (c *Client) handleFrame(ctx context.Context, payload []byte) {
	event, err := Decode(payload)
	if err != nil {
		c.logger.WithError(err).Warn("dropping frame")
		return
	}
	if event == nil {
		return
	}

	switch {
	case event.Ticker != nil:
		if err := c.sink.OnTicker(ctx, event.Ticker); err != nil {
			c.logger.WithError(err).WithField("symbol", event.Ticker.Symbol).Error("persist ticker failed")
		}
		c.hub.Publish(hub.NewTickerMessage(event.Ticker))
	case event.Trade != nil:
		if err := c.sink.OnTrade(ctx, event.Trade); err != nil {
			c.logger.WithError(err).WithField("symbol", event.Trade.Symbol).Error("persist trade failed")
		}
		c.hub.Publish(hub.NewTradeMessage(event.Trade))
	}
}

// wait sleeps for the reconnect delay; false means the context ended first.
func (c *Client) wait(ctx context.Context) bool {
	timer := time.NewTimer(c.cfg.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

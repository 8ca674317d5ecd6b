package feed

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	marketdata "main/internal/domain/entity/marketdata"
	"main/internal/hub"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn replays scripted frames; a closed frame queue reads as a
// transport failure.
type fakeConn struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes []any
}

func newFakeConn(frames ...[]byte) *fakeConn {
	ch := make(chan []byte, len(frames))
	for _, frame := range frames {
		ch <- frame
	}
	close(ch)
	return &fakeConn{frames: ch, done: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case frame, ok := <-c.frames:
		if !ok {
			return 0, nil, errors.New("connection reset")
		}
		return 1, frame, nil
	case <-c.done:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) subscribes() []subscribeRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	var reqs []subscribeRequest
	for _, w := range c.writes {
		if req, ok := w.(subscribeRequest); ok {
			reqs = append(reqs, req)
		}
	}
	return reqs
}

// scriptDialer hands out scripted connections, then fails every dial.
type scriptDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials int
}

func (d *scriptDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.conns) == 0 {
		return nil, errors.New("no route to host")
	}
	conn := d.conns[0]
	d.conns = d.conns[1:]
	return conn, nil
}

func (d *scriptDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type captureSink struct {
	mu        sync.Mutex
	tickers   []marketdata.TickerUpdate
	trades    []marketdata.TradeExecution
	tickerErr error
}

func (s *captureSink) OnTicker(ctx context.Context, ticker *marketdata.TickerUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickers = append(s.tickers, *ticker)
	return s.tickerErr
}

func (s *captureSink) OnTrade(ctx context.Context, trade *marketdata.TradeExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, *trade)
	return nil
}

func (s *captureSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickers), len(s.trades)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

const tickerFrame = `{"type":"ticker","product_id":"BTC-USD","price":"50000","best_bid":"49999","best_ask":"50001","volume_24h":"10","time":"2026-03-01T12:30:45Z"}`
const matchFrame = `{"type":"match","product_id":"BTC-USD","price":"50000.5","size":"0.1","side":"buy","trade_id":42,"time":"2026-03-01T12:30:46Z"}`

func TestClientReconnectsAfterDisconnect(t *testing.T) {
	conn1 := newFakeConn([]byte(tickerFrame))
	conn2 := newFakeConn([]byte(tickerFrame))
	dialer := &scriptDialer{conns: []*fakeConn{conn1, conn2}}
	sink := &captureSink{}
	stream := hub.New(0, quietLogger())

	client := NewClient(Config{
		URL:            "ws://feed.test",
		Symbols:        []string{"BTC-USD", "ETH-USD"},
		ReconnectDelay: time.Millisecond,
		Dialer:         dialer,
	}, sink, stream, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()

	require.Eventually(t, func() bool {
		tickers, _ := sink.counts()
		return tickers == 2 && dialer.dialCount() >= 2
	}, 2*time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-runErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop after cancel")
	}

	// Each connection re-sends the subscription.
	for i, conn := range []*fakeConn{conn1, conn2} {
		reqs := conn.subscribes()
		require.Len(t, reqs, 1, "conn %d", i)
		assert.Equal(t, "subscribe", reqs[0].Type)
		assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, reqs[0].ProductIDs)
		assert.Equal(t, []string{"ticker", "matches"}, reqs[0].Channels)
	}
}

func TestClientKeepsStreamingWhenSinkFails(t *testing.T) {
	conn := newFakeConn([]byte(tickerFrame), []byte(matchFrame))
	dialer := &scriptDialer{conns: []*fakeConn{conn}}
	sink := &captureSink{tickerErr: errors.New("insert failed")}
	stream := hub.New(0, quietLogger())
	sub := stream.Subscribe()

	client := NewClient(Config{
		URL:            "ws://feed.test",
		ReconnectDelay: time.Millisecond,
		Dialer:         dialer,
	}, sink, stream, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	// Both frames reach subscribers even though the ticker insert failed.
	var frames [][]byte
	for len(frames) < 2 {
		select {
		case frame := <-sub.C():
			frames = append(frames, frame)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frames, got %d", len(frames))
		}
	}
	assert.Contains(t, string(frames[0]), `"type":"ticker"`)
	assert.Contains(t, string(frames[1]), `"type":"trade"`)

	tickers, trades := sink.counts()
	assert.Equal(t, 1, tickers)
	assert.Equal(t, 1, trades)
}

func TestClientDropsMalformedFrames(t *testing.T) {
	conn := newFakeConn(
		[]byte(`{"type":"ticker","product_id":"BTC-USD"`),
		[]byte(`{"type":"heartbeat"}`),
		[]byte(matchFrame),
	)
	dialer := &scriptDialer{conns: []*fakeConn{conn}}
	sink := &captureSink{}
	stream := hub.New(0, quietLogger())

	client := NewClient(Config{
		URL:            "ws://feed.test",
		ReconnectDelay: time.Millisecond,
		Dialer:         dialer,
	}, sink, stream, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, trades := sink.counts()
		return trades == 1
	}, 2*time.Second, time.Millisecond)

	tickers, _ := sink.counts()
	assert.Zero(t, tickers)
}

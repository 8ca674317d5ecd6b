package hub

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	marketdata "main/internal/domain/entity/marketdata"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testTicker(symbol string, price float64) *marketdata.TickerUpdate {
	return &marketdata.TickerUpdate{
		Symbol:    symbol,
		LastPrice: price,
		BestBid:   price - 1,
		BestAsk:   price + 1,
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := New(8, quietLogger())
	a := h.Subscribe()
	b := h.Subscribe()
	require.Equal(t, 2, h.Len())

	h.Publish(NewTickerMessage(testTicker("BTC-USD", 50000)))

	for _, sub := range []*Subscriber{a, b} {
		select {
		case frame := <-sub.C():
			var msg Message
			require.NoError(t, json.Unmarshal(frame, &msg))
			assert.Equal(t, "ticker", msg.Type)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive frame")
		}
	}
}

func TestPublishPreservesPerSubscriberOrder(t *testing.T) {
	h := New(16, quietLogger())
	sub := h.Subscribe()

	for i := 0; i < 10; i++ {
		h.Publish(NewTickerMessage(testTicker("BTC-USD", float64(i))))
	}

	for i := 0; i < 10; i++ {
		select {
		case frame := <-sub.C():
			var msg struct {
				Data TickerData `json:"data"`
			}
			require.NoError(t, json.Unmarshal(frame, &msg))
			assert.Equal(t, float64(i), msg.Data.Price)
		case <-time.After(time.Second):
			t.Fatalf("missing frame %d", i)
		}
	}
}

func TestSlowSubscriberEvictedOthersUnaffected(t *testing.T) {
	const buffer = 4
	h := New(buffer, quietLogger())
	slow := h.Subscribe()
	fast := h.Subscribe()

	// One more publish than the slow subscriber can buffer. The fast
	// subscriber drains after every publish, so only the slow one fills up.
	fastFrames := 0
	for i := 0; i <= buffer; i++ {
		h.Publish(NewTickerMessage(testTicker("BTC-USD", float64(i))))
		select {
		case <-fast.C():
			fastFrames++
		case <-time.After(time.Second):
			t.Fatalf("fast subscriber missed frame %d", i)
		}
	}
	assert.Equal(t, buffer+1, fastFrames)

	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("slow subscriber was not evicted")
	}
	assert.Equal(t, 1, h.Len())

	// Buffered frames remain readable after eviction.
	assert.Len(t, slow.C(), buffer)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := New(0, quietLogger())
	sub := h.Subscribe()

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	h.Unsubscribe(nil)

	select {
	case <-sub.Done():
	default:
		t.Fatal("done channel not closed")
	}
	assert.Zero(t, h.Len())

	// Publishing after removal must not panic or deliver.
	h.Publish(NewTickerMessage(testTicker("BTC-USD", 1)))
	assert.Empty(t, sub.C())
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	h := New(2, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		sub := h.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Unsubscribe(sub)
		}()
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.Publish(NewTradeMessage(&marketdata.TradeExecution{
				Symbol:  "ETH-USD",
				Price:   float64(i),
				Side:    marketdata.TradeSideBuy,
				TradeID: int64(i),
			}))
		}(i)
	}
	wg.Wait()
	assert.Zero(t, h.Len())
}

func TestConnectedMessageShape(t *testing.T) {
	msg := NewConnectedMessage("Connected to market data stream", map[string]float64{"BTC-USD": 50000})
	frame, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`{
		"type": "connected",
		"data": {
			"message": "Connected to market data stream",
			"prices": {"BTC-USD": %d}
		}
	}`, 50000), string(frame))

	// Nil prices render as an empty object, not null.
	frame, err = json.Marshal(NewConnectedMessage("hi", nil))
	require.NoError(t, err)
	assert.Contains(t, string(frame), `"prices":{}`)
}

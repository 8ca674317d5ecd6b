package http

import (
	"encoding/json"
	"net/http"
	"time"

	"main/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWebsocket upgrades the request and bridges the connection to a hub
// subscription. The connection gets a greeting with current prices, then a
// copy of every broadcast frame until it disconnects or falls behind.
func (h *Handler) serveWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.stream.Subscribe()
	defer h.stream.Unsubscribe(sub)

	log := h.logger.WithField("subscriber", sub.ID().String())
	log.Info("websocket client connected")

	prices, err := h.marketdata.LatestPrices(c.Request.Context())
	if err != nil {
		log.WithError(err).Warn("load prices for greeting")
	}
	greeting, err := json.Marshal(hub.NewConnectedMessage("Connected to market data stream", prices))
	if err == nil {
		if err := h.writeFrame(conn, greeting); err != nil {
			log.WithError(err).Info("websocket client gone before greeting")
			return
		}
	}

	// The reader goroutine exists only to detect disconnects; inbound
	// frames are discarded.
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case err := <-readErr:
			log.WithError(err).Info("websocket client disconnected")
			return
		case <-sub.Done():
			log.Info("websocket subscription closed")
			return
		case frame, ok := <-sub.C():
			if !ok {
				return
			}
			if err := h.writeFrame(conn, frame); err != nil {
				log.WithError(err).Info("websocket write failed")
				return
			}
		}
	}
}

func (h *Handler) writeFrame(conn *websocket.Conn, frame []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	domain "main/internal/domain/entity/marketdata"
	domainsymbols "main/internal/domain/entity/symbols"
	"main/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	apiBasePath  = "/api/v1"
	defaultLimit = 60
	maxLimit     = 1440
)

var errUnknownSymbol = errors.New("unknown symbol")

// MarketData is the slice of the application service the HTTP surface needs.
type MarketData interface {
	LatestPrices(ctx context.Context) (map[string]float64, error)
	MarketStats(ctx context.Context) ([]domain.MarketStat, error)
	RecentCandles(ctx context.Context, symbol string, limit int) ([]domain.Candle, error)
	DataPointCount(ctx context.Context) (int64, error)
}

// SymbolRegistry lists the active trading pairs.
type SymbolRegistry interface {
	List(ctx context.Context) ([]domainsymbols.Pair, error)
}

type Handler struct {
	router     *gin.Engine
	marketdata MarketData
	registry   SymbolRegistry
	stream     *hub.Hub
	symbols    map[string]struct{}
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     *logrus.Logger
}

func NewHandler(md MarketData, registry SymbolRegistry, stream *hub.Hub, symbols []string, cache *redis.Client, cacheTTL time.Duration, logger *logrus.Logger) *Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	known := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		known[symbol] = struct{}{}
	}

	h := &Handler{
		router:     router,
		marketdata: md,
		registry:   registry,
		stream:     stream,
		symbols:    known,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
	h.registerRoutes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/healthz", h.health)
	h.router.GET("/ws", h.serveWebsocket)

	api := h.router.Group(apiBasePath)
	if h.cache != nil {
		api.Use(h.cacheMiddleware())
	}
	{
		api.GET("/symbols", h.getSymbols)
		api.GET("/prices", h.getPrices)
		api.GET("/market-stats", h.getMarketStats)
		api.GET("/candles/:symbol", h.getCandles)
		api.GET("/data-points", h.getDataPoints)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"subscribers": h.stream.Len(),
	})
}

func (h *Handler) getSymbols(c *gin.Context) {
	pairs, err := h.registry.List(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]gin.H, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, gin.H{
			"symbol": pair.Symbol,
			"base":   pair.Base,
			"quote":  pair.Quote,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) getPrices(c *gin.Context) {
	prices, err := h.marketdata.LatestPrices(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, prices)
}

func (h *Handler) getMarketStats(c *gin.Context) {
	stats, err := h.marketdata.MarketStats(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	if stats == nil {
		stats = []domain.MarketStat{}
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) getCandles(c *gin.Context) {
	symbol := c.Param("symbol")
	if _, ok := h.symbols[symbol]; !ok {
		writeError(c, http.StatusNotFound, errUnknownSymbol)
		return
	}
	limit, err := parseLimitQuery(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	candles, err := h.marketdata.RecentCandles(c.Request.Context(), symbol, limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	if candles == nil {
		candles = []domain.Candle{}
	}
	c.JSON(http.StatusOK, candles)
}

func (h *Handler) getDataPoints(c *gin.Context) {
	count, err := h.marketdata.DataPointCount(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data_points": count})
}

// Helpers

func parseLimitQuery(c *gin.Context) (int, error) {
	value := c.Query("limit")
	if value == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer")
	}
	if limit <= 0 || limit > maxLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxLimit)
	}
	return limit, nil
}

func writeError(c *gin.Context, status int, err error) {
	if err == nil {
		status = http.StatusInternalServerError
		err = errors.New("unknown error")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// cacheMiddleware caches GET responses in Redis.
func (h *Handler) cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.cache == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := h.cacheKey(c)
		ctx := c.Request.Context()

		if cached, err := h.cache.Get(ctx, key).Result(); err == nil {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			c.Abort()
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: c.Writer,
			status:         http.StatusOK,
			body:           &bytes.Buffer{},
		}
		c.Writer = recorder

		c.Next()

		if recorder.status >= 200 && recorder.status < 300 && recorder.body.Len() > 0 {
			_ = h.cache.Set(ctx, key, recorder.body.Bytes(), h.cacheTTL).Err()
		}
	}
}

type responseRecorder struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if len(data) > 0 {
		r.body.Write(data)
	}
	return r.ResponseWriter.Write(data)
}

func (h *Handler) cacheKey(c *gin.Context) string {
	return fmt.Sprintf("cache:%s:%s?%s", c.Request.Method, c.FullPath(), c.Request.URL.RawQuery)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"main/internal/aggregate"
	appmarketdata "main/internal/application/service/marketdata"
	appsymbols "main/internal/application/service/symbols"
	"main/internal/config"
	"main/internal/feed"
	"main/internal/hub"
	"main/internal/infrastructure/broker"
	inframarketdata "main/internal/infrastructure/marketdata"
	infrasymbols "main/internal/infrastructure/symbols"
	infrahttp "main/internal/interfaces/http"
	"main/internal/pipeline"
	"main/internal/spot"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	marketdataRepo, err := inframarketdata.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("failed to init marketdata repo: %v", err)
	}
	defer marketdataRepo.Close()
	if err := marketdataRepo.EnsureSchema(ctx); err != nil {
		logger.Fatalf("failed to ensure marketdata schema: %v", err)
	}

	symbolsRepo, err := infrasymbols.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("failed to init symbols repo: %v", err)
	}
	defer symbolsRepo.Close()
	if err := symbolsRepo.EnsureSchema(ctx); err != nil {
		logger.Fatalf("failed to ensure symbols schema: %v", err)
	}

	symbolsService := appsymbols.NewService(symbolsRepo)
	if err := symbolsService.Sync(ctx, cfg.Feed.Symbols); err != nil {
		logger.Fatalf("failed to sync symbol registry: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	marketdataService := appmarketdata.NewService(marketdataRepo)
	stream := hub.New(cfg.Hub.SubscriberBuffer, logger)

	feedClient := feed.NewClient(feed.Config{
		URL:            cfg.Feed.URL,
		Symbols:        cfg.Feed.Symbols,
		ReconnectDelay: cfg.Feed.ReconnectDelay,
	}, marketdataService, stream, logger)

	aggregator := aggregate.New(aggregate.Config{
		SweepInterval: cfg.Aggregator.SweepInterval,
		Lookback:      cfg.Aggregator.Lookback,
	}, marketdataService, logger)

	pipe := pipeline.New(logger)
	pipe.Register("feed", feedClient.Run)
	pipe.Register("aggregator", aggregator.Run)

	if cfg.Spot.Enabled {
		poller := spot.NewPoller(spot.Config{
			BaseURL:  cfg.Spot.BaseURL,
			Bases:    baseCurrencies(cfg.Feed.Symbols),
			Interval: cfg.Spot.Interval,
		}, marketdataService, logger)
		pipe.Register("spot", poller.Run)
	}

	if cfg.Rabbit.URL != "" {
		publisher, err := broker.NewPublisher(cfg.Rabbit.URL, broker.ExchangeSet{
			Tickers: cfg.Rabbit.TickersExchange,
			Trades:  cfg.Rabbit.TradesExchange,
		}, logger)
		if err != nil {
			logger.Fatalf("failed to init rabbitmq publisher: %v", err)
		}
		pipe.Register("broker", func(ctx context.Context) error {
			return publisher.Run(ctx, stream)
		})
	}

	if err := pipe.Start(ctx); err != nil {
		logger.Fatalf("failed to start pipeline: %v", err)
	}

	handler := infrahttp.NewHandler(marketdataService, symbolsService, stream, cfg.Feed.Symbols, redisClient, cfg.Cache.TTL(), logger)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr(),
		Handler: handler,
	}

	go func() {
		logger.Infof("HTTP server listening on %s", cfg.HTTP.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown error: %v", err)
	}
	if err := pipe.Stop(); err != nil {
		logger.Errorf("pipeline shutdown error: %v", err)
	}
	logger.Info("server stopped")
}

// baseCurrencies extracts the unique base legs from BASE-QUOTE symbols,
// preserving the configured order.
func baseCurrencies(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	bases := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		base, _, ok := strings.Cut(symbol, "-")
		if !ok || base == "" {
			continue
		}
		if _, dup := seen[base]; dup {
			continue
		}
		seen[base] = struct{}{}
		bases = append(bases, base)
	}
	return bases
}

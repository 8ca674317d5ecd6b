package spot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	marketdata "main/internal/domain/entity/marketdata"

	"github.com/sirupsen/logrus"
)

const (
	defaultInterval = 10 * time.Second
	errorBackoff    = 30 * time.Second
	requestPause    = 500 * time.Millisecond
)

// Store is the slice of the repository the poller consumes.
type Store interface {
	AddSpotPrice(ctx context.Context, spot *marketdata.SpotPrice) error
}

// Config holds the REST polling parameters.
type Config struct {
	BaseURL  string
	Bases    []string
	Interval time.Duration
}

// Poller periodically fetches USD exchange rates for the configured base
// currencies and stores them as spot price samples.
type Poller struct {
	cfg    Config
	client *http.Client
	store  Store
	logger *logrus.Entry
	now    func() time.Time
}

func NewPoller(cfg Config, store Store, logger *logrus.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	return &Poller{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		store:  store,
		logger: logger.WithField("component", "spot"),
		now:    time.Now,
	}
}

// Run polls until ctx ends. A failed round logs and extends the wait.
func (p *Poller) Run(ctx context.Context) error {
	for {
		wait := p.cfg.Interval
		if err := p.fetchRound(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.WithError(err).Error("spot price round failed")
			wait = errorBackoff
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Poller) fetchRound(ctx context.Context) error {
	for i, base := range p.cfg.Bases {
		if i > 0 {
			// Rate limiting between upstream requests.
			timer := time.NewTimer(requestPause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		rate, err := p.fetchUSDRate(ctx, base)
		if err != nil {
			return fmt.Errorf("fetch %s rate: %w", base, err)
		}
		spotPrice := &marketdata.SpotPrice{
			Base:      base,
			Currency:  "USD",
			Amount:    rate,
			FetchedAt: p.now().UTC(),
		}
		if err := p.store.AddSpotPrice(ctx, spotPrice); err != nil {
			p.logger.WithError(err).WithField("base", base).Error("persist spot price failed")
		}
	}
	return nil
}

type ratesResponse struct {
	Data struct {
		Currency string            `json:"currency"`
		Rates    map[string]string `json:"rates"`
	} `json:"data"`
}

func (p *Poller) fetchUSDRate(ctx context.Context, base string) (float64, error) {
	url := fmt.Sprintf("%s/exchange-rates?currency=%s", p.cfg.BaseURL, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode rates: %w", err)
	}
	raw, ok := payload.Data.Rates["USD"]
	if !ok {
		return 0, fmt.Errorf("no USD rate for %s", base)
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse USD rate %q: %w", raw, err)
	}
	return rate, nil
}

package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Runner is a long-lived background loop that exits when its context ends.
type Runner func(ctx context.Context) error

type component struct {
	name string
	run  Runner
}

// Pipeline supervises the ingestion loops as one unit with a shared
// lifecycle. Start and Stop are idempotent.
type Pipeline struct {
	mu         sync.Mutex
	components []component
	logger     *logrus.Logger

	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

func New(logger *logrus.Logger) *Pipeline {
	return &Pipeline{logger: logger}
}

// Register adds a named loop. Must be called before Start.
func (p *Pipeline) Register(name string, run Runner) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.components = append(p.components, component{name: name, run: run})
}

func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if len(p.components) == 0 {
		return errors.New("no components registered")
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(runCtx)
	for _, comp := range p.components {
		comp := comp
		group.Go(func() error {
			p.logger.WithField("component", comp.name).Info("component started")
			err := comp.run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				p.logger.WithField("component", comp.name).WithError(err).Error("component stopped with error")
				return err
			}
			p.logger.WithField("component", comp.name).Info("component stopped")
			return nil
		})
	}

	p.cancel = cancel
	p.group = group
	p.started = true
	return nil
}

// Stop cancels every component and waits for all of them to return.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil
	}

	p.cancel()
	err := p.group.Wait()

	p.started = false
	p.cancel = nil
	p.group = nil

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Wait blocks until every component has returned. Callers that want to
// react to the first failure should use Wait instead of polling.
func (p *Pipeline) Wait() error {
	p.mu.Lock()
	group := p.group
	p.mu.Unlock()
	if group == nil {
		return nil
	}
	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Package notifications keeps the unread notification count fresh while a user is
// signed in.
package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/internal/observer"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const (
	DefaultInterval = 30 * time.Second

	pollerName = "unread_notifications"
)

type countSource interface {
	UnreadCount(ctx context.Context) (int, error)
}

type sessionState interface {
	IsAuthenticated() bool
}

// PollerParams configure the unread-count poller.
type PollerParams struct {
	Logger   *logger.Logger
	Source   countSource
	Session  sessionState
	Metrics  *metrics.PollerMetrics
	Interval time.Duration
}

// Poller refreshes the unread count on a fixed cadence between Start and Stop.
type Poller struct {
	logg     *logger.Logger
	source   countSource
	session  sessionState
	metrics  *metrics.PollerMetrics
	interval time.Duration

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}

	mu    sync.RWMutex
	count int
	subs  observer.Registry[int]
}

// NewPoller builds a poller.
func NewPoller(params PollerParams) (*Poller, error) {
	if params.Source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unread count source is required")
	}
	if params.Session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auth session is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		logg:     logg,
		source:   params.Source,
		session:  params.Session,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Start launches the polling loop. It is a no-op while the loop is already running.
func (p *Poller) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	if p.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	go func() {
		defer close(done)
		p.run(runCtx)
	}()
}

// Stop cancels the loop and waits for it to exit. Calling Stop on a stopped poller is
// a no-op.
func (p *Poller) Stop() {
	p.lifecycle.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) Running() bool {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	return p.cancel != nil
}

// UnreadCount is the most recently observed count.
func (p *Poller) UnreadCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.count
}

// Subscribe registers fn to receive the count whenever it changes.
func (p *Poller) Subscribe(fn func(int)) func() {
	return p.subs.Subscribe(fn)
}

// Refresh polls once immediately, e.g. after notifications were marked read.
func (p *Poller) Refresh(ctx context.Context) error {
	if !p.session.IsAuthenticated() {
		p.setCount(0)
		return nil
	}
	start := time.Now()
	count, err := p.source.UnreadCount(ctx)
	p.metrics.ObserveDuration(pollerName, time.Since(start))
	if err != nil {
		p.metrics.IncFailure(pollerName)
		return err
	}
	p.metrics.IncSuccess(pollerName)
	p.metrics.SetValue(pollerName, float64(count))
	p.setCount(count)
	return nil
}

func (p *Poller) run(ctx context.Context) {
	ctx = p.logg.WithField(ctx, "poller", pollerName)
	p.tick(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logg.Debug(ctx, "poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
		p.logg.Error(ctx, "unread count refresh failed", err)
	}
}

func (p *Poller) setCount(count int) {
	p.mu.Lock()
	changed := p.count != count
	p.count = count
	p.mu.Unlock()
	if changed {
		p.subs.Notify(count)
	}
}

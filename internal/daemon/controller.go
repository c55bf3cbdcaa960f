// Package daemon implements the focus monitor lifecycle controller.
package daemon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_mode/internal/domain"
)

// Ticker runs one detect-classify-enforce cycle.
// Implemented by usecase.StateMachine.
type Ticker interface {
	Tick(ctx context.Context) error
}

// DefaultPollInterval is the tick spacing of the monitoring loop.
const DefaultPollInterval = 3 * time.Second

// Controller owns the background monitoring worker: at most one worker
// exists at a time, enforced by a single exclusive lock around start, stop
// and liveness checks. The worker handle and its cancellation signal live
// only here; no other component may cancel the worker directly.
//
// Cleanup (unblock all configured entries, re-apply productive policies)
// runs on every worker exit path: normal cancellation, a fatal tick error,
// or a panic inside a tick. The daemon never leaves blocked websites or
// muted audio behind.
type Controller struct {
	ticker    Ticker
	blocklist domain.BlocklistManager
	actuator  domain.PolicyActuator
	interval  time.Duration
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a controller in the idle state.
func NewController(
	ticker Ticker,
	blocklist domain.BlocklistManager,
	actuator domain.PolicyActuator,
	interval time.Duration,
	logger *zap.Logger,
) *Controller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Controller{
		ticker:    ticker,
		blocklist: blocklist,
		actuator:  actuator,
		interval:  interval,
		logger:    logger,
	}
}

// Start launches the monitoring worker.
// Returns false if a worker is already alive.
func (c *Controller) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.alive() {
		return false
	}

	// Release the previous context if the worker died without a Stop call.
	if c.cancel != nil {
		c.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(ctx, c.done)

	c.logger.Info("focus daemon started", zap.Duration("interval", c.interval))
	return true
}

// Stop raises the cancellation signal and blocks until the worker has fully
// exited, cleanup included. Returns false when no worker was alive.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return false
	}

	wasAlive := c.alive()
	c.cancel()
	<-c.done

	c.cancel = nil
	c.done = nil

	if wasAlive {
		c.logger.Info("focus daemon stopped")
	}
	return wasAlive
}

// IsRunning reports whether the background worker is alive.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive()
}

// alive must be called with mu held.
func (c *Controller) alive() bool {
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// run is the worker loop. The fixed-interval wait is the only suspension
// point, so worst-case stop latency is one interval plus the current tick.
func (c *Controller) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.cleanup()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("tick panicked, stopping daemon", zap.Any("panic", r))
		}
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// First tick runs immediately; the interval spaces the rest.
	if err := c.ticker.Tick(ctx); err != nil {
		c.logger.Error("tick failed, stopping daemon", zap.Error(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ticker.Tick(ctx); err != nil {
				c.logger.Error("tick failed, stopping daemon", zap.Error(err))
				return
			}
		}
	}
}

// cleanup unconditionally reverts enforcement. Re-applying productive
// policies when nothing was blocked is an intended idempotent no-op.
func (c *Controller) cleanup() {
	entries, err := c.blocklist.Entries()
	if err != nil {
		c.logger.Warn("cleanup: failed to read blocklist", zap.Error(err))
	} else if err := c.blocklist.Unblock(entries); err != nil {
		c.logger.Warn("cleanup: failed to unblock", zap.Error(err))
	}

	c.actuator.Apply(domain.ModeProductive)
	c.logger.Info("focus policies reset")
}

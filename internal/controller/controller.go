// Package controller owns the polling cadence of the inventory cache.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/farm-platform/farm-dashboard/internal/domain"
	"github.com/farm-platform/farm-dashboard/pkg/logging"
	"github.com/farm-platform/farm-dashboard/pkg/tenant"
)

// DefaultPollInterval is the refresh cadence of the inventory panels
const DefaultPollInterval = 30 * time.Second

// State is the lifecycle state of the controller
type State string

const (
	StateStopped State = "Stopped"
	StatePolling State = "Polling"
)

// InventoryCache is the part of the cache the controller drives
type InventoryCache interface {
	Initialize(tenantID string) uint64
	Reset()
	Refresh(ctx context.Context) error
	RefreshSession(ctx context.Context, epoch uint64) error
}

// Config holds controller configuration
type Config struct {
	PollInterval time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{PollInterval: DefaultPollInterval}
}

// Controller refreshes one cache on a fixed interval for the active tenant. All views of a tenant
// share it, so the gateway sees a single poll stream.
type Controller struct {
	cache    InventoryCache
	logger   *logging.Logger
	interval time.Duration

	mu        sync.Mutex
	state     State
	tenantID  string
	session   uint64 // cache epoch the poll loop refreshes for
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// New creates a stopped controller. logger may be nil.
func New(cache InventoryCache, config *Config, logger *logging.Logger) *Controller {
	if config == nil {
		config = DefaultConfig()
	}
	interval := config.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Controller{
		cache:    cache,
		logger:   logger.WithComponent("sync-controller"),
		interval: interval,
		state:    StateStopped,
	}
}

// Start begins polling for tenantID: the cache is reset for the tenant, refreshed at once and then
// on every interval. Starting for the tenant already being polled is a no-op. Starting for a
// different tenant stops the current polling first, so the old snapshot is discarded.
// Polling ends on Stop or when ctx is cancelled.
func (c *Controller) Start(ctx context.Context, tenantID string) error {
	tenantID = tenant.Normalize(tenantID)
	if err := tenant.Validate(tenantID); err != nil {
		return &domain.Error{Kind: domain.KindMissingTenant, Message: "cannot poll without a valid tenant", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pollingLocked() {
		if c.tenantID == tenantID {
			return nil
		}
		c.logger.Info("Switching inventory tenant", "from", c.tenantID, "to", tenantID)
		c.stopLocked()
	}

	c.session = c.cache.Initialize(tenantID)
	c.tenantID = tenantID
	c.state = StatePolling
	c.stopCh = make(chan struct{})
	c.stoppedCh = make(chan struct{})

	c.logger.Info("Starting inventory polling", "tenantId", tenantID, "interval", c.interval)

	go c.refresh(ctx, c.session)
	go c.run(ctx, c.session, c.stopCh, c.stoppedCh)
	return nil
}

// Stop cancels the periodic refresh, discards any response still in flight and resets the cache
// to a snapshot without a tenant. Calling Stop on a stopped controller does nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePolling {
		return
	}
	c.stopLocked()
	c.cache.Reset()
}

// stopLocked ends the poll loop and waits for it to exit. Refreshes already scheduled carry the
// old session and are discarded by the cache once it moves on. c.mu must be held.
func (c *Controller) stopLocked() {
	close(c.stopCh)
	<-c.stoppedCh

	c.logger.Info("Inventory polling stopped", "tenantId", c.tenantID)
	c.state = StateStopped
	c.tenantID = ""
}

// pollingLocked reports whether the poll loop is alive. c.mu must be held.
func (c *Controller) pollingLocked() bool {
	if c.state != StatePolling {
		return false
	}
	select {
	case <-c.stoppedCh:
		// loop ended with its context
		return false
	default:
		return true
	}
}

// Refresh triggers a manual refresh. It shares the cache's in-flight guard with the timer, so a
// refresh already in progress makes this a no-op.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.cache.Refresh(ctx)
}

// State returns the lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pollingLocked() {
		return StatePolling
	}
	return StateStopped
}

// TenantID returns the tenant being polled, or "" when stopped
func (c *Controller) TenantID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pollingLocked() {
		return c.tenantID
	}
	return ""
}

// Interval returns the poll interval
func (c *Controller) Interval() time.Duration {
	return c.interval
}

// run is the poll loop. Refreshes run on their own goroutines so the loop, and therefore Stop,
// never waits on the network.
func (c *Controller) run(ctx context.Context, session uint64, stopCh <-chan struct{}, stoppedCh chan<- struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			go c.refresh(ctx, session)
		case <-stopCh:
			return
		case <-ctx.Done():
			c.logger.Info("Inventory polling context cancelled")
			return
		}
	}
}

func (c *Controller) refresh(ctx context.Context, session uint64) {
	// failures are recorded on the snapshot; the next tick retries
	_ = c.cache.RefreshSession(ctx, session)
}

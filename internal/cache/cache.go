// Package cache holds the latest inventory of the active tenant and applies mutations only after
// the remote inventory service confirms them.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/farm-platform/farm-dashboard/internal/alerting"
	"github.com/farm-platform/farm-dashboard/internal/domain"
	"github.com/farm-platform/farm-dashboard/internal/gateway"
	"github.com/farm-platform/farm-dashboard/pkg/logging"
	"github.com/farm-platform/farm-dashboard/pkg/metrics"
	"github.com/farm-platform/farm-dashboard/pkg/tenant"
)

// Listener receives every published snapshot in publish order
type Listener func(Snapshot)

// Config holds cache settings
type Config struct {
	ReorderHorizonDays int
}

// DefaultConfig returns the cache defaults
func DefaultConfig() *Config {
	return &Config{ReorderHorizonDays: alerting.DefaultReorderHorizonDays}
}

// Cache is the inventory cache of one dashboard session.
//
// Responses are matched to the session that issued them by an epoch counter. Initialize and
// Reset bump the epoch, so responses that arrive afterwards are discarded.
type Cache struct {
	gateway gateway.Gateway
	deriver *alerting.Deriver
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	snapshot Snapshot
	epoch    uint64
	version  uint64
	inFlight bool

	listeners    map[uint64]Listener
	nextListener uint64
	pending      []Snapshot
	delivering   bool
}

// New creates an empty Idle cache with no tenant. logger and m may be nil.
func New(gw gateway.Gateway, config *Config, logger *logging.Logger, m *metrics.Metrics) *Cache {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		gateway:   gw,
		deriver:   alerting.NewDeriver(config.ReorderHorizonDays),
		logger:    logger.WithComponent("inventory-cache"),
		metrics:   m,
		now:       time.Now,
		snapshot:  Snapshot{Items: []domain.InventoryItem{}, Status: StatusIdle},
		listeners: make(map[uint64]Listener),
	}
}

// Initialize replaces the state with an empty Idle snapshot for tenantID and returns the epoch of
// the new session. Responses to requests issued for the previous session are discarded when
// they arrive.
func (c *Cache) Initialize(tenantID string) uint64 {
	tenantID = tenant.Normalize(tenantID)
	epoch := c.restart(tenantID)
	c.logger.Info("Inventory session initialized", "tenantId", tenantID)
	return epoch
}

// Reset ends the session: the tenant and items are dropped and in-flight responses are
// discarded. Refreshes and mutations fail with ErrMissingTenant until Initialize is called again.
func (c *Cache) Reset() {
	c.restart("")
	c.logger.Info("Inventory session reset")
}

func (c *Cache) restart(tenantID string) uint64 {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.inFlight = false
	c.commitLocked(Snapshot{
		TenantID: tenantID,
		Items:    []domain.InventoryItem{},
		Status:   StatusIdle,
	})
	c.mu.Unlock()

	c.deliver()
	return epoch
}

// Refresh fetches the tenant's items and replaces the cached list. While a refresh is in flight
// further calls are dropped and return nil. A failed refresh keeps the previous items, moves the
// snapshot to Error and returns the classified error.
func (c *Cache) Refresh(ctx context.Context) error {
	return c.refresh(ctx, 0, false)
}

// RefreshSession is Refresh bound to the session identified by epoch. Once the cache has been
// reset or initialized for another session it returns nil without contacting the gateway.
func (c *Cache) RefreshSession(ctx context.Context, epoch uint64) error {
	return c.refresh(ctx, epoch, true)
}

func (c *Cache) refresh(ctx context.Context, session uint64, bound bool) error {
	c.mu.Lock()
	if bound && session != c.epoch {
		c.mu.Unlock()
		c.recordRefresh(metrics.OutcomeStale)
		c.logger.Debug("Skipped refresh scheduled for an ended session")
		return nil
	}
	tenantID := c.snapshot.TenantID
	if tenantID == "" {
		c.mu.Unlock()
		return domain.ErrMissingTenant
	}
	if c.inFlight {
		c.mu.Unlock()
		c.recordRefresh(metrics.OutcomeDropped)
		c.logger.Debug("Refresh dropped, another refresh is in flight", "tenantId", tenantID)
		return nil
	}
	c.inFlight = true
	epoch := c.epoch
	loading := c.snapshot
	loading.Status = StatusLoading
	c.commitLocked(loading)
	c.mu.Unlock()
	c.deliver()

	items, err := c.gateway.ListItems(ctx, tenantID)

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		c.recordRefresh(metrics.OutcomeStale)
		c.logger.Debug("Discarded stale refresh response", "tenantId", tenantID)
		return nil
	}
	c.inFlight = false

	next := c.snapshot
	if err != nil {
		next.Status = StatusError
		next.LastError = errorInfo(err, c.now())
	} else {
		next.Items = c.sanitize(tenantID, items)
		next.Status = StatusReady
		next.LastError = nil
		next.FetchedAt = c.now()
	}
	published := c.commitLocked(next)
	c.mu.Unlock()
	c.deliver()

	if err != nil {
		c.recordRefresh(metrics.OutcomeError)
		c.logger.WithError(err).Warn("Inventory refresh failed",
			"tenantId", tenantID,
			"kind", string(domain.KindOf(err)),
		)
		return err
	}

	c.recordRefresh(metrics.OutcomeSuccess)
	c.logger.SnapshotApplied(ctx, tenantID, string(published.Status), len(published.Items), published.Version)
	if c.metrics != nil {
		derived := c.deriver.Derive(published.Items)
		c.metrics.SetSnapshotGauges(tenantID, len(published.Items), len(derived.LowStock))
	}
	return nil
}

// AddItem creates an item through the gateway and caches the confirmed item
func (c *Cache) AddItem(ctx context.Context, draft domain.Draft) (domain.InventoryItem, error) {
	draft = draft.Normalize()
	if err := domain.ValidateDraft(draft); err != nil {
		return domain.InventoryItem{}, err
	}

	tenantID, epoch, err := c.session()
	if err != nil {
		return domain.InventoryItem{}, err
	}

	item, err := c.gateway.CreateItem(ctx, tenantID, draft)
	c.recordMutation(gateway.OpCreateItem, err)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if item, err = c.confirmed(tenantID, item); err != nil {
		return domain.InventoryItem{}, err
	}

	if err := c.applyMutation(epoch, func(items []domain.InventoryItem) []domain.InventoryItem {
		return upsert(items, item)
	}); err != nil {
		return item, err
	}

	c.logger.Info("Inventory item added", "tenantId", tenantID, "itemId", item.ID)
	return item, nil
}

// UpdateItem patches a cached item through the gateway and replaces it with the confirmed item.
// An id the cache does not hold fails with NotFound before anything is sent.
func (c *Cache) UpdateItem(ctx context.Context, id string, patch domain.Patch) (domain.InventoryItem, error) {
	patch = patch.Normalize()
	if err := domain.ValidatePatch(patch); err != nil {
		return domain.InventoryItem{}, err
	}

	tenantID, epoch, err := c.session()
	if err != nil {
		return domain.InventoryItem{}, err
	}

	c.mu.Lock()
	known := indexOf(c.snapshot.Items, id) >= 0
	c.mu.Unlock()
	if !known {
		return domain.InventoryItem{}, domain.NewNotFound(id)
	}

	item, err := c.gateway.UpdateItem(ctx, tenantID, id, patch)
	c.recordMutation(gateway.OpUpdateItem, err)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	if item, err = c.confirmed(tenantID, item); err != nil {
		return domain.InventoryItem{}, err
	}

	if err := c.applyMutation(epoch, func(items []domain.InventoryItem) []domain.InventoryItem {
		return upsert(items, item)
	}); err != nil {
		return item, err
	}

	c.logger.Info("Inventory item updated", "tenantId", tenantID, "itemId", item.ID)
	return item, nil
}

// DeleteItem deletes an item through the gateway and removes it from the cache
func (c *Cache) DeleteItem(ctx context.Context, id string) error {
	tenantID, epoch, err := c.session()
	if err != nil {
		return err
	}

	err = c.gateway.DeleteItem(ctx, tenantID, id)
	c.recordMutation(gateway.OpDeleteItem, err)
	if err != nil {
		return err
	}

	if err := c.applyMutation(epoch, func(items []domain.InventoryItem) []domain.InventoryItem {
		return without(items, id)
	}); err != nil {
		return err
	}

	c.logger.Info("Inventory item deleted", "tenantId", tenantID, "itemId", id)
	return nil
}

func (c *Cache) session() (string, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot.TenantID == "" {
		return "", 0, domain.ErrMissingTenant
	}
	return c.snapshot.TenantID, c.epoch, nil
}

// applyMutation publishes the result of a confirmed mutation unless the session has moved on.
// Status, lastError and fetchedAt are left as they are.
func (c *Cache) applyMutation(epoch uint64, change func([]domain.InventoryItem) []domain.InventoryItem) error {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		c.logger.Debug("Discarded stale mutation response")
		return domain.ErrStaleResponse
	}
	next := c.snapshot
	next.Items = change(c.snapshot.Items)
	c.commitLocked(next)
	c.mu.Unlock()

	c.deliver()
	return nil
}

// confirmed checks an item returned by a create or update before it is cached. An item that
// breaks the item invariants is treated as a rejection and never applied.
func (c *Cache) confirmed(tenantID string, item domain.InventoryItem) (domain.InventoryItem, error) {
	if item.TenantID == "" {
		item.TenantID = tenantID
	}
	if err := domain.ValidateItem(item); err != nil {
		c.logger.WithError(err).Warn("Inventory service confirmed an invalid item", "tenantId", tenantID, "itemId", item.ID)
		return domain.InventoryItem{}, &domain.Error{
			Kind:    domain.KindServerRejected,
			Message: "inventory service returned an invalid item",
			Err:     err,
		}
	}
	return item, nil
}

// sanitize drops items that break item invariants or repeat an id
func (c *Cache) sanitize(tenantID string, items []domain.InventoryItem) []domain.InventoryItem {
	clean := make([]domain.InventoryItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.TenantID == "" {
			item.TenantID = tenantID
		}
		if err := domain.ValidateItem(item); err != nil {
			c.logger.WithError(err).Warn("Dropping invalid inventory item", "tenantId", tenantID, "itemId", item.ID)
			continue
		}
		if _, dup := seen[item.ID]; dup {
			c.logger.Warn("Dropping duplicate inventory item", "tenantId", tenantID, "itemId", item.ID)
			continue
		}
		seen[item.ID] = struct{}{}
		clean = append(clean, item)
	}
	return clean
}

// commitLocked stamps and stores next and queues it for listeners. c.mu must be held.
func (c *Cache) commitLocked(next Snapshot) Snapshot {
	c.version++
	next.Version = c.version
	c.snapshot = next
	c.pending = append(c.pending, next)
	return next
}

// deliver hands queued snapshots to listeners. Only one goroutine delivers at a time; others
// leave their snapshots in the queue for it, which keeps publish order without holding c.mu
// while listeners run.
func (c *Cache) deliver() {
	c.mu.Lock()
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true

	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending[0] = Snapshot{}
		c.pending = c.pending[1:]
		listeners := make([]Listener, 0, len(c.listeners))
		for _, l := range c.listeners {
			listeners = append(listeners, l)
		}
		c.mu.Unlock()

		for _, l := range listeners {
			c.safeNotify(l, next)
		}

		c.mu.Lock()
	}

	c.delivering = false
	c.mu.Unlock()
}

func (c *Cache) safeNotify(l Listener, s Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Panic(context.Background(), r)
		}
	}()
	l(s)
}

func (c *Cache) recordRefresh(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordRefresh(outcome)
	}
}

func (c *Cache) recordMutation(op string, err error) {
	if c.metrics != nil {
		c.metrics.RecordMutation(op, err)
	}
}

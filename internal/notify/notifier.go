// Package notify publishes low-stock and replenishment CloudEvents when the cached inventory
// crosses reorder thresholds.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/farm-platform/farm-dashboard/internal/alerting"
	"github.com/farm-platform/farm-dashboard/internal/cache"
	"github.com/farm-platform/farm-dashboard/internal/domain"
	"github.com/farm-platform/farm-dashboard/pkg/cloudevents"
	"github.com/farm-platform/farm-dashboard/pkg/kafka"
	"github.com/farm-platform/farm-dashboard/pkg/logging"
	"github.com/farm-platform/farm-dashboard/pkg/metrics"
)

// Config holds notifier configuration
type Config struct {
	Topic          string
	QueueSize      int
	PublishTimeout time.Duration
	HorizonDays    int
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Topic:          kafka.TopicInventoryAlerts,
		QueueSize:      256,
		PublishTimeout: 10 * time.Second,
		HorizonDays:    alerting.DefaultReorderHorizonDays,
	}
}

// Notifier turns snapshot transitions into events. Snapshot handling never blocks: events go
// through a bounded queue drained by a single publisher goroutine, and are dropped when it is full.
type Notifier struct {
	publisher kafka.EventPublisher
	factory   *cloudevents.EventFactory
	logger    *logging.Logger
	metrics   *metrics.Metrics
	config    *Config

	queue chan *cloudevents.FarmCloudEvent

	stateMu  sync.Mutex
	tenantID string
	last     []domain.InventoryItem

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}

	publishedCnt int
	failedCnt    int
	droppedCnt   int
}

// New creates a notifier. logger and m may be nil.
func New(publisher kafka.EventPublisher, config *Config, logger *logging.Logger, m *metrics.Metrics) *Notifier {
	if config == nil {
		config = DefaultConfig()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = DefaultConfig().PublishTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Notifier{
		publisher: publisher,
		factory:   cloudevents.NewEventFactory(cloudevents.SourceDashboard),
		logger:    logger.WithComponent("low-stock-notifier"),
		metrics:   m,
		config:    config,
		queue:     make(chan *cloudevents.FarmCloudEvent, config.QueueSize),
	}
}

// Attach subscribes the notifier to c and returns the unsubscribe function
func (n *Notifier) Attach(c *cache.Cache) func() {
	return c.Subscribe(n.OnSnapshot)
}

// OnSnapshot compares a Ready snapshot with the previous Ready snapshot of the same tenant and
// queues one event per item that entered or left the low-stock set. The first Ready snapshot
// of a tenant is compared against an empty list, so items already low are reported once.
func (n *Notifier) OnSnapshot(s cache.Snapshot) {
	n.stateMu.Lock()
	if s.TenantID != n.tenantID {
		n.tenantID = s.TenantID
		n.last = nil
	}
	if s.Status != cache.StatusReady || !s.HasTenant() {
		n.stateMu.Unlock()
		return
	}
	prev := n.last
	n.last = s.Items
	n.stateMu.Unlock()

	transition := alerting.CompareLowStock(prev, s.Items)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, item := range transition.NewlyLow {
		suggestion := alerting.ReorderSuggestions([]domain.InventoryItem{item}, n.config.HorizonDays)[0]
		n.enqueue(n.factory.CreateLowStockAlertEvent(ctx, s.TenantID, cloudevents.LowStockAlertData{
			ItemID:     item.ID,
			ItemName:   item.Name,
			Category:   string(item.Category),
			Quantity:   item.Quantity,
			Threshold:  item.Threshold,
			Suggestion: suggestion.Message,
			DetectedAt: now,
		}))
	}
	for _, item := range transition.Replenished {
		n.enqueue(n.factory.CreateStockReplenishedEvent(ctx, s.TenantID, cloudevents.StockReplenishedData{
			ItemID:     item.ID,
			ItemName:   item.Name,
			Quantity:   item.Quantity,
			Threshold:  item.Threshold,
			DetectedAt: now,
		}))
	}
}

func (n *Notifier) enqueue(event *cloudevents.FarmCloudEvent) {
	select {
	case n.queue <- event:
	default:
		n.mu.Lock()
		n.droppedCnt++
		n.mu.Unlock()
		if n.metrics != nil {
			n.metrics.RecordAlertPublished(false)
		}
		n.logger.Warn("Alert queue full, dropping event",
			"eventType", event.Type,
			"subject", event.Subject,
			"tenantId", event.TenantID,
		)
	}
}

// Start starts the publisher goroutine
func (n *Notifier) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return fmt.Errorf("notifier already running")
	}
	n.running = true
	n.stopCh = make(chan struct{})
	n.stoppedCh = make(chan struct{})

	n.logger.Info("Starting low-stock notifier", "topic", n.config.Topic, "queueSize", cap(n.queue))
	go n.run(ctx, n.stopCh, n.stoppedCh)
	return nil
}

// Stop publishes what is already queued and stops the publisher goroutine
func (n *Notifier) Stop() error {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return fmt.Errorf("notifier not running")
	}
	stopCh, stoppedCh := n.stopCh, n.stoppedCh
	n.mu.Unlock()

	close(stopCh)
	<-stoppedCh

	n.mu.Lock()
	n.running = false
	published, failed, dropped := n.publishedCnt, n.failedCnt, n.droppedCnt
	n.mu.Unlock()

	n.logger.Info("Low-stock notifier stopped", "published", published, "failed", failed, "dropped", dropped)
	return nil
}

func (n *Notifier) run(ctx context.Context, stopCh <-chan struct{}, stoppedCh chan<- struct{}) {
	defer close(stoppedCh)

	for {
		select {
		case event := <-n.queue:
			n.publish(ctx, event)
		case <-stopCh:
			n.drain(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (n *Notifier) drain(ctx context.Context) {
	for {
		select {
		case event := <-n.queue:
			n.publish(ctx, event)
		default:
			return
		}
	}
}

func (n *Notifier) publish(ctx context.Context, event *cloudevents.FarmCloudEvent) {
	ctx, cancel := context.WithTimeout(ctx, n.config.PublishTimeout)
	defer cancel()

	err := n.publisher.PublishEvent(ctx, n.config.Topic, event)

	n.mu.Lock()
	if err != nil {
		n.failedCnt++
	} else {
		n.publishedCnt++
	}
	n.mu.Unlock()

	if err != nil {
		n.logger.WithError(err).Error("Failed to publish inventory alert",
			"eventId", event.ID,
			"eventType", event.Type,
			"tenantId", event.TenantID,
		)
	}
}

// Stats returns publish counters
func (n *Notifier) Stats() (published, failed, dropped int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.publishedCnt, n.failedCnt, n.droppedCnt
}

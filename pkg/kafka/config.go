package kafka

import (
	"fmt"
	"strings"
	"time"
)

// TopicInventoryAlerts carries LowStockDetected and StockReplenished events. Messages are keyed
// by event subject, so all events of one item stay ordered on one partition.
const TopicInventoryAlerts = "farm.inventory.alerts"

// Config holds producer settings
type Config struct {
	Brokers  []string
	ClientID string

	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: none, 1: leader, -1: all in-sync replicas
	WriteTimeout time.Duration
}

// DefaultConfig is tuned for alert traffic: a handful of events per refresh, flushed almost
// immediately and acknowledged by every in-sync replica.
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		ClientID:     "farm-dashboard",
		BatchSize:    16,
		BatchTimeout: 20 * time.Millisecond,
		RequiredAcks: -1,
		WriteTimeout: 10 * time.Second,
	}
}

// Validate rejects settings kafka-go would only fail on at the first write
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: at least one broker is required")
	}
	for _, broker := range c.Brokers {
		if strings.TrimSpace(broker) == "" {
			return fmt.Errorf("kafka: empty broker address")
		}
	}
	if c.RequiredAcks < -1 || c.RequiredAcks > 1 {
		return fmt.Errorf("kafka: requiredAcks must be -1, 0 or 1, got %d", c.RequiredAcks)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("kafka: batchSize must be positive, got %d", c.BatchSize)
	}
	return nil
}

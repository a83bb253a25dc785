// Package events fan out usage changes of HR accounts to live subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"talentpool-backend/internal/model"
)

// Event types
const (
	UsageViewed  = "USAGE_VIEWED"
	UsageMatched = "USAGE_MATCHED"
	UsageCredit  = "USAGE_CREDITED"
	UsageReset   = "USAGE_RESET"
	UsageSet     = "USAGE_SET"

	// UsageSnapshot is the first event of a stream, not published through broker
	UsageSnapshot = "USAGE_SNAPSHOT"
)

// UsageEvent is published whenever usage counter of an HR change
type UsageEvent struct {
	Type     string             `json:"type"`
	HRUserID uuid.UUID          `json:"hr_user_id"`
	Usage    model.UsageMetrics `json:"usage"`
	At       time.Time          `json:"at"`
}

// Broker deliver usage events to subscribers of the same HR user
type Broker interface {
	Publish(ctx context.Context, ev UsageEvent) error
	// Subscribe return channel of events for hrID, the channel is closed after cancel is called
	Subscribe(ctx context.Context, hrID uuid.UUID) (<-chan UsageEvent, func(), error)
}

func channelName(hrID uuid.UUID) string {
	return "usage:" + hrID.String()
}

// RedisBroker use redis pub/sub so every API instance see the same events
type RedisBroker struct {
	rdb *redis.Client
	log *logrus.Entry
}

// NewRedisBroker create broker on top of redis client
func NewRedisBroker(rdb *redis.Client, log *logrus.Entry) *RedisBroker {
	return &RedisBroker{rdb: rdb, log: log}
}

// Publish implements Broker
func (b *RedisBroker) Publish(ctx context.Context, ev UsageEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode usage event: %w", err)
	}
	if err := b.rdb.Publish(ctx, channelName(ev.HRUserID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe implements Broker
func (b *RedisBroker) Subscribe(ctx context.Context, hrID uuid.UUID) (<-chan UsageEvent, func(), error) {
	sub := b.rdb.Subscribe(ctx, channelName(hrID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan UsageEvent, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev UsageEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.WithError(err).Warn("invalid usage event")
				continue
			}
			select {
			case out <- ev:
			default:
				b.log.WithField("hr_user_id", hrID).Warn("usage subscriber is slow, event dropped")
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = sub.Close() })
	}
	return out, cancel, nil
}

// MemoryBroker deliver events inside one process
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan UsageEvent]struct{}
}

// NewMemoryBroker create in-process broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[uuid.UUID]map[chan UsageEvent]struct{})}
}

// Publish implements Broker
func (b *MemoryBroker) Publish(_ context.Context, ev UsageEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.HRUserID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe implements Broker
func (b *MemoryBroker) Subscribe(_ context.Context, hrID uuid.UUID) (<-chan UsageEvent, func(), error) {
	ch := make(chan UsageEvent, 16)
	b.mu.Lock()
	if b.subs[hrID] == nil {
		b.subs[hrID] = make(map[chan UsageEvent]struct{})
	}
	b.subs[hrID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[hrID], ch)
			if len(b.subs[hrID]) == 0 {
				delete(b.subs, hrID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

// Subscribers count live subscriptions of hrID
func (b *MemoryBroker) Subscribers(hrID uuid.UUID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[hrID])
}

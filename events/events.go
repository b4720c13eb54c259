// Package events publishes the block tree's three lifecycle events to
// subscribers, mirroring the teacher's events.EventBus shape: a
// map of buffered per-subscriber channels behind an RWMutex, with a
// non-blocking publish that drops on a full buffer rather than stall
// the writer holding blockInfoLock.
package events

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/internal/logx"
)

// Kind identifies which of the three lifecycle events fired.
type Kind string

const (
	NewBestSuggestedBlock Kind = "NewBestSuggestedBlock"
	BlockAddedToMain      Kind = "BlockAddedToMain"
	NewHeadBlock          Kind = "NewHeadBlock"
)

// Event carries the block that triggered it.
type Event struct {
	Kind   Kind
	Header *block.Header
}

// SubscriberID identifies a live subscription.
type SubscriberID string

type subscriber struct {
	id      SubscriberID
	channel chan Event
}

// Bus is the tree's event channel. Publish runs on the publisher's
// goroutine (usually the thread calling Suggest/UpdateMainChain) and
// only enqueues into each subscriber's buffered channel; subscribers
// receive events on their own goroutines.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[SubscriberID]*subscriber
}

// NewBus returns an empty event bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[SubscriberID]*subscriber)}
}

// Subscribe registers a new subscriber with a buffered channel and
// returns its id alongside the receive-only channel.
func (b *Bus) Subscribe() (SubscriberID, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := SubscriberID(uuid.Must(uuid.NewV7()).String())
	ch := make(chan Event, 50)
	b.subscribers[id] = &subscriber{id: id, channel: ch}

	logx.Infof("EVENTS", "subscribed | subscriber_id=%s | total=%d", id, len(b.subscribers))
	return id, ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id SubscriberID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscribers[id]
	if !ok {
		return false
	}
	delete(b.subscribers, id)
	close(sub.channel)
	logx.Infof("EVENTS", "unsubscribed | subscriber_id=%s | remaining=%d", id, len(b.subscribers))
	return true
}

// Publish delivers event to every subscriber. A subscriber with a full
// buffer is skipped rather than blocking the publisher.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		select {
		case sub.channel <- event:
		default:
			logx.Warnf("EVENTS", "subscriber channel full, dropping event | subscriber_id=%s | kind=%s", id, event.Kind)
		}
	}
}

// Len reports the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

package agent

import (
	"log/slog"
	"sync"
	"time"
)

// Event types published by the orchestrator.
const (
	EventStatusChange     = "status_change"
	EventAnalysisComplete = "analysis_complete"
	EventToolStart        = "tool_start"
	EventToolComplete     = "tool_complete"
	EventToolFailed       = "tool_failed"
	EventToolSkipped      = "tool_skipped"
	EventAgentComplete    = "agent_complete"
	EventError            = "error"
	EventState            = "state"
)

// subscriberBuffer bounds each subscriber queue. A lagging subscriber loses
// its oldest events, never the publisher's progress.
const subscriberBuffer = 64

// AgentEvent is one lifecycle notification.
type AgentEvent struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// Bus fans events out to subscribers in publication order.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan AgentEvent
	nextID int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan AgentEvent)}
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called to release the queue. Replay events are delivered before anything
// published afterwards.
func (b *Bus) Subscribe(replay ...AgentEvent) (<-chan AgentEvent, func()) {
	ch := make(chan AgentEvent, subscriberBuffer)
	for _, ev := range replay {
		if len(ch) < cap(ch) {
			ch <- ev
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber. Full queues drop their
// oldest entry to make room.
func (b *Bus) Publish(eventType string, data map[string]any) {
	ev := AgentEvent{Type: eventType, Data: data, Timestamp: time.Now().UnixMilli()}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			select {
			case dropped := <-ch:
				slog.Warn("Event subscriber lagging, dropping oldest event", "dropped_type", dropped.Type)
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

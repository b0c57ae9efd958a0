package remoteserver

import (
	"sync"
	"sync/atomic"
)

// mailboxCapacity bounds the combined number of responses and distinct pending entity events a session's mailbox
// holds before the oldest pending entity event of another entity is dropped.
const mailboxCapacity = 256

// queuedEvent is one entity's not-yet-flushed entity_change frame. Pushing a second update for the same entity
// before the first is flushed replaces the frame in place rather than growing the queue.
type queuedEvent struct {
	entityID string
	raw      []byte
}

// mailbox is a session's outbound queue. Responses (replies to requests) are always delivered, in order, and never
// dropped. Entity-change events are deduplicated by entity ID: only the most recent update for each entity is kept,
// so a session lagging behind the controller never sees stale intermediate states, and the controller's fan-out
// never blocks on a slow session.
type mailbox struct {
	mu        sync.Mutex
	responses [][]byte
	events    []*queuedEvent
	byEntity  map[string]*queuedEvent
	wake      chan struct{}
	dropped   atomic.Int64
}

func newMailbox() *mailbox {
	return &mailbox{
		byEntity: make(map[string]*queuedEvent),
		wake:     make(chan struct{}, 1),
	}
}

// pushResponse enqueues a response or event frame that must never be dropped (replies, connect/disconnect acks,
// driver_setup_change progress).
func (m *mailbox) pushResponse(raw []byte) {
	m.mu.Lock()
	m.responses = append(m.responses, raw)
	m.mu.Unlock()
	m.notify()
}

// pushEntityEvent enqueues an entity_change frame, coalescing with any update for the same entity still waiting to
// be flushed. If the mailbox is at capacity and holds at least one other distinct pending entity event, the oldest
// one is dropped to make room; responses are never counted as droppable.
func (m *mailbox) pushEntityEvent(entityID string, raw []byte) {
	m.mu.Lock()
	if existing, ok := m.byEntity[entityID]; ok {
		existing.raw = raw
		m.mu.Unlock()
		m.notify()
		return
	}

	if len(m.responses)+len(m.events) >= mailboxCapacity && len(m.events) > 0 {
		oldest := m.events[0]
		m.events = m.events[1:]
		delete(m.byEntity, oldest.entityID)
		m.dropped.Add(1)
	}

	ev := &queuedEvent{entityID: entityID, raw: raw}
	m.events = append(m.events, ev)
	m.byEntity[entityID] = ev
	m.mu.Unlock()
	m.notify()
}

// DroppedChanges returns the number of entity_change events evicted for capacity since the mailbox was created.
func (m *mailbox) DroppedChanges() int64 {
	return m.dropped.Load()
}

func (m *mailbox) notify() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// drain removes and returns everything currently queued, responses first (in arrival order) then events (in the
// order their entity first appeared since the last drain).
func (m *mailbox) drain() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]byte, 0, len(m.responses)+len(m.events))
	out = append(out, m.responses...)
	for _, ev := range m.events {
		out = append(out, ev.raw)
	}
	m.responses = nil
	m.events = nil
	m.byEntity = make(map[string]*queuedEvent)
	return out
}

package hubclient

import (
	"sync"
	"time"
)

// pendingRequest is an in-flight hub request awaiting its correlated response frame. await delivers nil if
// the request timed out or the connection dropped before the hub answered.
type pendingRequest struct {
	await    chan []byte
	deadline *time.Timer
}

// pendingTable tracks requests by their monotonic correlation id, shared across both call_service/get_states results
// and ping/pong heartbeats since both use the hub's numeric "id" correlation.
type pendingTable struct {
	mu      sync.Mutex
	nextID  uint32
	pending map[uint32]*pendingRequest
}

func newPendingTable() *pendingTable {
	return &pendingTable{pending: make(map[uint32]*pendingRequest)}
}

// register allocates the next request id and a slot to await its response. The returned cancel func must be called
// once the caller stops waiting (on success, timeout, or disconnect) to release the timer and map entry.
func (t *pendingTable) register(timeout time.Duration) (id uint32, await <-chan []byte, cancel func()) {
	t.mu.Lock()
	t.nextID++
	id = t.nextID
	ch := make(chan []byte, 1)
	entry := &pendingRequest{await: ch}
	entry.deadline = time.AfterFunc(timeout, func() {
		t.complete(id, nil)
	})
	t.pending[id] = entry
	t.mu.Unlock()

	return id, ch, func() {
		t.mu.Lock()
		if e, ok := t.pending[id]; ok {
			e.deadline.Stop()
			delete(t.pending, id)
		}
		t.mu.Unlock()
	}
}

// complete delivers a raw response frame (or nil, for timeout/disconnect) to the awaiter for id, if still pending.
func (t *pendingTable) complete(id uint32, raw []byte) {
	t.mu.Lock()
	entry, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()
	if !ok {
		return
	}
	entry.deadline.Stop()
	entry.await <- raw
}

// failAll delivers nil to every pending awaiter, used when the connection drops with requests still outstanding.
func (t *pendingTable) failAll() {
	t.mu.Lock()
	ids := make([]uint32, 0, len(t.pending))
	for id := range t.pending {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	for _, id := range ids {
		t.complete(id, nil)
	}
}

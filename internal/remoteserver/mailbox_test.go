package remoteserver

import "testing"

func TestMailboxCoalescesSameEntity(t *testing.T) {
	t.Parallel()

	m := newMailbox()
	m.pushEntityEvent("light.kitchen", []byte("state=off"))
	m.pushEntityEvent("light.kitchen", []byte("state=on"))

	out := m.drain()
	if len(out) != 1 {
		t.Fatalf("drain() len = %d, want 1 (coalesced)", len(out))
	}
	if string(out[0]) != "state=on" {
		t.Errorf("drain()[0] = %q, want latest update", out[0])
	}
}

func TestMailboxResponsesNeverCoalesced(t *testing.T) {
	t.Parallel()

	m := newMailbox()
	m.pushResponse([]byte("resp1"))
	m.pushResponse([]byte("resp2"))
	m.pushEntityEvent("light.kitchen", []byte("event1"))

	out := m.drain()
	if len(out) != 3 {
		t.Fatalf("drain() len = %d, want 3", len(out))
	}
	if string(out[0]) != "resp1" || string(out[1]) != "resp2" {
		t.Errorf("responses out of order: %q", out[:2])
	}
}

func TestMailboxDropsOldestEntityEventWhenFull(t *testing.T) {
	t.Parallel()

	m := newMailbox()
	for i := 0; i < mailboxCapacity; i++ {
		m.pushEntityEvent(entityIDForIndex(i), []byte("v"))
	}
	// One more distinct entity should evict the oldest rather than growing past capacity.
	m.pushEntityEvent("overflow.entity", []byte("v"))

	out := m.drain()
	if len(out) != mailboxCapacity {
		t.Errorf("drain() len = %d, want %d (capacity enforced)", len(out), mailboxCapacity)
	}
	if got := m.DroppedChanges(); got != 1 {
		t.Errorf("DroppedChanges() = %d, want 1", got)
	}
}

func TestMailboxDrainClearsState(t *testing.T) {
	t.Parallel()

	m := newMailbox()
	m.pushResponse([]byte("r"))
	m.pushEntityEvent("light.kitchen", []byte("e"))
	m.drain()

	if out := m.drain(); len(out) != 0 {
		t.Errorf("second drain() len = %d, want 0", len(out))
	}
}

func entityIDForIndex(i int) string {
	digits := "0123456789"
	s := make([]byte, 0, 8)
	s = append(s, "entity."...)
	if i == 0 {
		s = append(s, '0')
	} else {
		var buf []byte
		for i > 0 {
			buf = append([]byte{digits[i%10]}, buf...)
			i /= 10
		}
		s = append(s, buf...)
	}
	return string(s)
}

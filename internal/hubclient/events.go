package hubclient

import "time"

// EventSink receives hub-originated facts the client cannot interpret itself: it owns the entity catalog and the
// translation tables, so the client only ever hands over raw (entity_id, state, attributes) tuples and lifecycle
// notifications.
type EventSink interface {
	// HandleStateChanged is called for every state_changed event and for every entry of an initial get_states
	// snapshot taken right after subscribing. observedAt is the hub's own last_updated timestamp (falling back to
	// last_changed), used by the sink to reject out-of-order reports; a zero value means the hub did not report one.
	HandleStateChanged(entityID, friendlyName, state string, attributes map[string]any, observedAt time.Time)

	// HandleRunning is called once the client reaches the Running state, after the initial snapshot has already been
	// delivered via HandleStateChanged.
	HandleRunning()

	// HandleDisconnected is called after every connection attempt that fails or drops (whether or not it reached
	// Running, and including an auth rejection), so the sink can mark every entity UNAVAILABLE until the next snapshot
	// arrives. It is not called when the client stops because its context was canceled.
	HandleDisconnected()

	// HandleConnectionState is called on every connection-lifecycle transition (including the transient ones on the
	// way to Running), so the sink can surface the bridge's own link health to remotes.
	HandleConnectionState(state State)
}

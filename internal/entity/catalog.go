package entity

import "time"

// Catalog is the typed entity catalog: an entity is created on first observation and mutated only by hub state
// events. Entries leave the catalog only through Delete or Reset; a resync after reconnect re-upserts entries in
// place, and nothing removes an entity the hub stops reporting. It is owned exclusively by the controller actor and is not itself safe for
// concurrent use — the catalog has a single writer, reached only through the controller's mailbox.
type Catalog struct {
	registry   *Registry
	entities   map[ID]*Entity
	warned     map[warnKey]struct{}
	staleDrops int
}

type warnKey struct {
	id    ID
	state string
}

// NewCatalog creates an empty catalog backed by the given translation registry.
func NewCatalog(registry *Registry) *Catalog {
	return &Catalog{
		registry: registry,
		entities: make(map[ID]*Entity),
		warned:   make(map[warnKey]struct{}),
	}
}

// Upsert creates or updates the entity for id with a raw hub state and attributes. It enforces the catalog invariant
// state ∈ allowed_states(domain) by routing the raw hub state through the domain's translation table; an unmapped
// hub state resolves to RemoteUnavailable. ShouldWarn is true only for an unmapped hub state whose
// (entity, hubState) pair has not been reported before, so the caller can apply a log-once-per-pair policy.
//
// observedAt is the hub's own timestamp for this report. If the entity already has a newer one on record, the update
// is dropped rather than reordered: the existing entity is returned unchanged and StaleDrops' counter is incremented.
// A zero observedAt (the hub did not report a timestamp) never triggers this check.
func (c *Catalog) Upsert(id ID, friendlyName string, rawState string, attributes map[string]any, observedAt time.Time) (entity *Entity, shouldWarn bool) {
	e, exists := c.entities[id]
	if exists && !observedAt.IsZero() && !e.LastUpdated.IsZero() && observedAt.Before(e.LastUpdated) {
		c.staleDrops++
		return e, false
	}

	domain, ok := id.Domain()
	if !ok {
		domain = Domain(id)
	}

	remoteState, known := c.registry.HubStateToRemote(domain, rawState)
	if !known {
		key := warnKey{id: id, state: rawState}
		if _, seen := c.warned[key]; !seen {
			c.warned[key] = struct{}{}
			shouldWarn = true
		}
	}

	if !exists {
		e = &Entity{ID: id, Domain: domain}
		c.entities[id] = e
	}
	e.FriendlyName = friendlyName
	e.State = remoteState
	e.Attributes = attributes
	if !observedAt.IsZero() {
		e.LastUpdated = observedAt
	}
	return e, shouldWarn
}

// StaleDrops returns the number of Upsert calls rejected because their observed timestamp was older than the
// entity's current one, for diagnostics.
func (c *Catalog) StaleDrops() int { return c.staleDrops }

// Get returns the entity for id, or nil if the catalog has no record of it (ErrEntityUnknown at the caller).
func (c *Catalog) Get(id ID) *Entity {
	return c.entities[id]
}

// Delete removes an entity from the catalog.
func (c *Catalog) Delete(id ID) {
	delete(c.entities, id)
}

// Reset clears the catalog entirely.
func (c *Catalog) Reset() {
	c.entities = make(map[ID]*Entity)
}

// All returns every entity currently in the catalog. The returned slice is a new allocation; mutating it does not
// affect the catalog.
func (c *Catalog) All() []*Entity {
	out := make([]*Entity, 0, len(c.entities))
	for _, e := range c.entities {
		out = append(out, e)
	}
	return out
}

// Registry returns the translation registry backing this catalog, so callers can route commands without a second
// lookup structure.
func (c *Catalog) Registry() *Registry { return c.registry }

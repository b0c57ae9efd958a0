package entity

import "time"

// ID is an opaque, hub-scoped entity identifier, e.g. "light.kitchen". Its domain prefix (up to the first dot)
// determines which translation Table applies.
type ID string

// Domain extracts the domain prefix from an entity ID. Returns false if the ID has no dot-separated domain prefix.
func (id ID) Domain() (Domain, bool) {
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			return Domain(id[:i]), true
		}
	}
	return "", false
}

// Entity is the last-known representation of a hub entity. It is created on first observation, mutated only by hub
// state events, and stays in the catalog until Catalog.Delete or Catalog.Reset removes it.
type Entity struct {
	ID           ID
	Domain       Domain
	FriendlyName string
	Features     map[Feature]struct{}
	State        string
	Attributes   map[string]any

	// LastUpdated is the hub's own observation timestamp for the current State/Attributes, used by the catalog to
	// reject out-of-order reports. Zero if the hub never reported one for this entity.
	LastUpdated time.Time
}

// HasFeature reports whether the entity advertises the given feature.
func (e *Entity) HasFeature(f Feature) bool {
	if e.Features == nil {
		return false
	}
	_, ok := e.Features[f]
	return ok
}

// Clone returns a deep-enough copy of the entity suitable for handing to code outside the catalog's single writer.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	out := &Entity{
		ID:           e.ID,
		Domain:       e.Domain,
		FriendlyName: e.FriendlyName,
		State:        e.State,
		LastUpdated:  e.LastUpdated,
	}
	if e.Features != nil {
		out.Features = make(map[Feature]struct{}, len(e.Features))
		for f := range e.Features {
			out.Features[f] = struct{}{}
		}
	}
	if e.Attributes != nil {
		out.Attributes = make(map[string]any, len(e.Attributes))
		for k, v := range e.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

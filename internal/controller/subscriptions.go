package controller

import "github.com/google/uuid"

// subscriptions is a dual-indexed registry of which sessions want fan-out for which entities, giving O(1) lookups in
// both directions: entity -> subscribed sessions (for fan-out) and session -> subscribed entities (for cleanup on
// disconnect).
type subscriptions struct {
	byEntity  map[string]map[uuid.UUID]struct{}
	bySession map[uuid.UUID]map[string]struct{}
}

func newSubscriptions() *subscriptions {
	return &subscriptions{
		byEntity:  make(map[string]map[uuid.UUID]struct{}),
		bySession: make(map[uuid.UUID]map[string]struct{}),
	}
}

// subscribeAll marks sessionID as subscribed to every entity in entityIDs. For an empty entity_ids list in
// subscribe_events (meaning "everything") callers pass the current entity ID set.
func (s *subscriptions) subscribeAll(sessionID uuid.UUID, entityIDs []string) {
	for _, id := range entityIDs {
		s.subscribe(sessionID, id)
	}
}

func (s *subscriptions) subscribe(sessionID uuid.UUID, entityID string) {
	if s.byEntity[entityID] == nil {
		s.byEntity[entityID] = make(map[uuid.UUID]struct{})
	}
	s.byEntity[entityID][sessionID] = struct{}{}

	if s.bySession[sessionID] == nil {
		s.bySession[sessionID] = make(map[string]struct{})
	}
	s.bySession[sessionID][entityID] = struct{}{}
}

func (s *subscriptions) unsubscribe(sessionID uuid.UUID, entityID string) {
	if sessions, ok := s.byEntity[entityID]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(s.byEntity, entityID)
		}
	}
	if entities, ok := s.bySession[sessionID]; ok {
		delete(entities, entityID)
		if len(entities) == 0 {
			delete(s.bySession, sessionID)
		}
	}
}

// unsubscribeAllForSession removes every subscription a session holds, used on disconnect.
func (s *subscriptions) unsubscribeAllForSession(sessionID uuid.UUID) {
	for entityID := range s.bySession[sessionID] {
		if sessions, ok := s.byEntity[entityID]; ok {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(s.byEntity, entityID)
			}
		}
	}
	delete(s.bySession, sessionID)
}

// subscribers returns the sessions subscribed to entityID.
func (s *subscriptions) subscribers(entityID string) []uuid.UUID {
	sessions := s.byEntity[entityID]
	out := make([]uuid.UUID, 0, len(sessions))
	for id := range sessions {
		out = append(out, id)
	}
	return out
}

// entitiesFor returns the entity IDs sessionID is subscribed to.
func (s *subscriptions) entitiesFor(sessionID uuid.UUID) []string {
	entities := s.bySession[sessionID]
	out := make([]string, 0, len(entities))
	for id := range entities {
		out = append(out, id)
	}
	return out
}

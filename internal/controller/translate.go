package controller

import (
	"github.com/rs/zerolog"

	"github.com/ucbridge/ha-bridge/internal/entity"
	"github.com/ucbridge/ha-bridge/internal/protocol/integration"
)

// toAvailableEntity renders a catalog entity as the remote protocol's get_available_entities shape. Features reflect
// the domain's static capability set rather than anything per-entity, since the hub does not report per-entity
// feature bits.
func toAvailableEntity(e *entity.Entity, registry *entity.Registry, log zerolog.Logger) integration.AvailableEntity {
	ae := integration.AvailableEntity{
		EntityID:   string(e.ID),
		EntityType: string(e.Domain),
		Name:       e.FriendlyName,
	}
	if ae.Name == "" {
		ae.Name = string(e.ID)
	}
	table, err := registry.Table(e.Domain)
	if err != nil {
		log.Warn().Err(err).Str("entity_id", string(e.ID)).Msg("no translation table for entity domain")
		return ae
	}
	for _, f := range table.SupportedFeatures() {
		ae.Features = append(ae.Features, string(f))
	}
	return ae
}

func toEntityStateSnapshot(e *entity.Entity) integration.EntityStateSnapshot {
	return integration.EntityStateSnapshot{
		EntityID:   string(e.ID),
		EntityType: string(e.Domain),
		State:      e.State,
		Attributes: e.Attributes,
	}
}

func toEntityChangePayload(e *entity.Entity) integration.EntityChangePayload {
	return integration.EntityChangePayload{
		EntityID:   string(e.ID),
		EntityType: string(e.Domain),
		State:      e.State,
		Attributes: e.Attributes,
	}
}

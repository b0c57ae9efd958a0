package entity

// Table is the per-domain translation variant: the set of hub states mapped to remote states, the supported feature
// bits, and the remote-command-to-hub-service mapping. Implementations are declared one per domain file (light.go,
// switch.go, ...) as tagged variants with no inheritance hierarchy; Registry is the only dispatch point.
type Table interface {
	// Domain returns the domain this table translates.
	Domain() Domain

	// AllowedStates returns every remote-protocol state this domain can report, used to enforce the catalog
	// invariant state ∈ allowed_states(domain).
	AllowedStates() []string

	// SupportedFeatures returns every remote-protocol feature bit this domain can advertise.
	SupportedFeatures() []Feature

	// HubStateToRemote maps a raw hub state string to the remote-protocol state enum. Unknown hub states are not an
	// error here: the caller maps ok == false to RemoteUnavailable and logs once per (entity, state) pair.
	HubStateToRemote(hubState string) (remoteState string, ok bool)

	// Command translates a remote command and its parameters into a hub service name plus call_service data.
	// Returns ErrNotSupported for commands the domain does not implement, ErrBadParameter for malformed parameters.
	Command(id ID, cmd RemoteCommand, params map[string]any) (service string, data map[string]any, err error)
}

// entityIDParam is the data key every hub service call carries to identify its target.
const entityIDParam = "entity_id"

// withEntityID returns a data map seeded with entity_id, the parameter every call_service payload requires.
func withEntityID(id ID) map[string]any {
	return map[string]any{entityIDParam: string(id)}
}

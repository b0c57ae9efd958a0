// Package discovery advertises the bridge on the local network over mDNS, so the remote-control device can find it
// without the user typing in an IP address.
package discovery

import (
	"context"
	"fmt"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"
)

// serviceType is the mDNS service type remote-control devices browse for.
const serviceType = "_uc-integration._tcp"

// Advertise registers an mDNS service announcement for the bridge and keeps it alive until ctx is canceled. name is
// the instance name shown to discovering remotes (typically the driver name); name, version and developer are
// published as TXT records so a remote can tell compatible bridges apart without connecting first.
func Advertise(ctx context.Context, name string, port int, version, developer string, log zerolog.Logger) error {
	server, err := zeroconf.Register(name, serviceType, "local.", port, buildTXT(name, version, developer), nil)
	if err != nil {
		return fmt.Errorf("register mdns service: %w", err)
	}

	log.Info().Str("name", name).Int("port", port).Msg("advertising mdns service")

	<-ctx.Done()
	server.Shutdown()
	return nil
}

// buildTXT renders the TXT records published alongside the service announcement.
func buildTXT(name, version, developer string) []string {
	return []string{
		fmt.Sprintf("name=%s", name),
		fmt.Sprintf("ver=%s", version),
		fmt.Sprintf("developer=%s", developer),
	}
}

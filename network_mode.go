package dcx

import (
	"fmt"
	"strings"
)

// EnvNetworkMode is exported to the devcontainer up child.
const EnvNetworkMode = "DCX_NETWORK_MODE"

// NetworkMode selects how much network the container gets. The
// devcontainer's own firewall setup reads it from EnvNetworkMode.
type NetworkMode string

const (
	NetworkRestricted NetworkMode = "restricted"
	NetworkMinimal    NetworkMode = "minimal"
	NetworkHost       NetworkMode = "host"
	NetworkOpen       NetworkMode = "open"
)

// DefaultNetworkMode is used when no mode is given.
const DefaultNetworkMode = NetworkMinimal

// NetworkModes lists the accepted values in display order.
var NetworkModes = []NetworkMode{NetworkRestricted, NetworkMinimal, NetworkHost, NetworkOpen}

// ParseNetworkMode accepts a mode name in any case. The empty string is the
// default mode.
func ParseNetworkMode(s string) (NetworkMode, error) {
	if s == "" {
		return DefaultNetworkMode, nil
	}
	for _, m := range NetworkModes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("Invalid network mode '%s'. Must be one of: restricted, minimal, host, open", s)
}

// Env returns the KEY=value pair for the child environment.
func (n NetworkMode) Env() string {
	return EnvNetworkMode + "=" + string(n)
}

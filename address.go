package dbus

import (
	"errors"
	"net/url"
	"os"
	"strings"
)

// errMissingUnixOption reports a "unix:" candidate address lacking
// both the "path" and "abstract" options.
var errMissingUnixOption = errors.New("dbus: unix transport requires a path or abstract option")

// Bus identifies which well-known bus a Connection should resolve an
// address for.
type Bus int

const (
	SessionBus Bus = iota
	SystemBus
)

const defaultSystemBusAddress = "unix:path=/var/run/dbus/system_bus_socket"

// candidateAddress is one semicolon-separated entry of a D-Bus address
// string, split into its transport scheme and key=value options.
type candidateAddress struct {
	raw     string
	scheme  string
	options map[string]string
}

// ResolveAddresses returns the ordered list of candidate addresses for
// bus, read from the environment per the D-Bus specification: session
// connections require DBUS_SESSION_BUS_ADDRESS; system connections
// fall back to a well-known socket path if DBUS_SYSTEM_BUS_ADDRESS is
// unset.
func ResolveAddresses(bus Bus) ([]string, error) {
	switch bus {
	case SessionBus:
		addr := os.Getenv("DBUS_SESSION_BUS_ADDRESS")
		if addr == "" {
			return nil, &ConnectError{MissingEnvVar: "DBUS_SESSION_BUS_ADDRESS"}
		}
		return strings.Split(addr, ";"), nil
	case SystemBus:
		addr := os.Getenv("DBUS_SYSTEM_BUS_ADDRESS")
		if addr == "" {
			addr = defaultSystemBusAddress
		}
		return strings.Split(addr, ";"), nil
	}
	return nil, &ConnectError{Scheme: "unknown bus selector"}
}

// parseCandidateAddress splits one "scheme:key=value,key=value" entry.
func parseCandidateAddress(raw string) (candidateAddress, error) {
	idx := strings.IndexByte(raw, ':')
	if idx < 0 {
		return candidateAddress{}, &ConnectError{Scheme: raw}
	}
	c := candidateAddress{raw: raw, scheme: raw[:idx], options: map[string]string{}}
	rest := raw[idx+1:]
	if rest == "" {
		return c, nil
	}
	for _, kv := range strings.Split(rest, ",") {
		pair := strings.SplitN(kv, "=", 2)
		key, err := url.QueryUnescape(pair[0])
		if err != nil {
			return candidateAddress{}, err
		}
		var value string
		if len(pair) == 2 {
			value, err = url.QueryUnescape(pair[1])
			if err != nil {
				return candidateAddress{}, err
			}
		}
		c.options[key] = value
	}
	return c, nil
}

// unixSocketAddress reports the net.Dial "unix" address for c, which
// must have scheme "unix". An abstract-namespace socket is returned as
// "@" + name, which Go's net package turns into the leading NUL of
// Linux's abstract sockaddr_un naming convention.
func unixSocketAddress(c candidateAddress) (string, error) {
	if abstract, ok := c.options["abstract"]; ok {
		return "@" + abstract, nil
	}
	if path, ok := c.options["path"]; ok {
		return path, nil
	}
	return "", errMissingUnixOption
}

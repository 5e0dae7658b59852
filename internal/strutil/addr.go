package strutil

import (
	"net"
	"strconv"
	"strings"
)

const defaultAddress = "0.0.0.0"

// NormalizeAddress completes an address missing the host, e.g. ":8080".
func NormalizeAddress(addr string) string {
	if len(addr) == 0 {
		// the function should never receive empty address anyway
		return addr
	}

	if addr[0] == ':' {
		addr = defaultAddress + addr
	}

	return addr
}

// DefaultPort returns the port implied by the scheme.
func DefaultPort(scheme string) uint16 {
	if scheme == "https" {
		return 443
	}

	return 80
}

// HostPort splits the Host header value. The port defaults to the one implied by the
// scheme when it's missing or malformed.
func HostPort(host, scheme string) (string, uint16) {
	port := DefaultPort(scheme)

	name, rawPort, err := net.SplitHostPort(host)
	if err != nil {
		return strings.Trim(host, "[]"), port
	}

	if n, err := strconv.ParseUint(rawPort, 10, 16); err == nil {
		port = uint16(n)
	}

	return name, port
}

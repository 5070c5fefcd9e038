// Package resolve turns a tablet server's host string into the string
// that gets matched against pool regexes.
package resolve

import (
	"context"
	"net"
	"strings"
)

// Resolver maps a host or IP to the name that should be regex-matched.
type Resolver interface {
	// Resolve returns the matchable name for host. When IP-based matching
	// is enabled the implementation should return host unchanged without
	// performing any lookup.
	Resolve(ctx context.Context, host string) (string, error)
}

// net.DefaultResolver-backed implementation. It performs a reverse DNS
// lookup and does not cache: a server that moves to a new IP is reflected
// on the very next pool recheck, matching the conformance note in the
// design that caching must never mask a server's IP changing between
// rechecks.
type dnsResolver struct{}

// NewDNSResolver returns a Resolver that resolves hosts to their
// canonical DNS name, performing no caching of its own.
func NewDNSResolver() Resolver {
	return dnsResolver{}
}

func (dnsResolver) Resolve(ctx context.Context, host string) (string, error) {
	addr := host

	// A host name has to go through a forward lookup first; the reverse
	// lookup below only accepts an address.
	if net.ParseIP(addr) == nil {
		addrs, err := net.DefaultResolver.LookupHost(ctx, addr)
		if err != nil {
			return "", err
		}

		if len(addrs) == 0 {
			return host, nil
		}

		addr = addrs[0]
	}

	names, err := net.DefaultResolver.LookupAddr(ctx, addr)
	if err != nil {
		return "", err
	}

	if len(names) == 0 {
		return host, nil
	}

	return strings.TrimSuffix(names[0], "."), nil
}

// IPResolver is used when the balancer is configured for IP-based
// matching: it returns the host unchanged and never touches the network.
type IPResolver struct{}

// NewIPResolver returns a Resolver that performs no resolution.
func NewIPResolver() Resolver {
	return IPResolver{}
}

// Resolve implements Resolver by returning host unchanged.
func (IPResolver) Resolve(ctx context.Context, host string) (string, error) {
	return host, nil
}

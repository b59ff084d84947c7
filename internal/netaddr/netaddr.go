// Package netaddr answers "what address should the user point their other
// devices at". Read-only system query, safe for concurrent callers.
package netaddr

import (
	"net"
	"strings"
)

// Candidate is one usable interface address.
type Candidate struct {
	Interface string
	Addr      string
}

// Current returns the device's LAN IPv4 address, preferring the named
// wireless interface when it has one. The second return is false when no
// non-loopback candidate exists; callers show a sentinel instead of failing.
func Current(preferredInterface string) (string, bool) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", false
	}
	return pick(collect(ifaces), preferredInterface)
}

func collect(ifaces []net.Interface) []Candidate {
	var out []Candidate
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipnet.IP.To4()
			if ip == nil || ip.IsLoopback() {
				continue
			}
			out = append(out, Candidate{Interface: iface.Name, Addr: ip.String()})
		}
	}
	return out
}

// pick prefers the named interface, then falls back to the first candidate.
func pick(candidates []Candidate, preferred string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	if preferred != "" {
		for _, c := range candidates {
			if strings.EqualFold(c.Interface, preferred) {
				return c.Addr, true
			}
		}
	}
	return candidates[0].Addr, true
}

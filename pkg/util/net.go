// Package util holds small helpers shared by the binaries.
package util

import (
	"net"
	"strings"
)

// ComposeLANURL turns a bind address into the URL a client on the local
// network would use. Wildcard hosts (empty, 0.0.0.0, ::) are replaced with the
// machine's primary LAN IPv4 when one can be found; anything else passes
// through unchanged.
func ComposeLANURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}

	host = strings.TrimSpace(host)
	if host == "" || host == "0.0.0.0" || host == "::" || host == "[::]" {
		if lan := lanIPv4(); lan != "" {
			host = lan
		}
	}
	if host == "" {
		host = "0.0.0.0"
	}

	return "http://" + net.JoinHostPort(host, port)
}

// lanIPv4 returns the first RFC1918 IPv4 address on an up, non-loopback
// interface, falling back to any IPv4 when no private one exists.
func lanIPv4() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	var fallback string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil {
				continue
			}
			if ip4.IsPrivate() {
				return ip4.String()
			}
			if fallback == "" {
				fallback = ip4.String()
			}
		}
	}
	return fallback
}

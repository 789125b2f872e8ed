// Package netinfo enumerates LAN addresses so remote devices can find
// the server.
package netinfo

import "net"

type Address struct {
	Interface string `json:"interface"`
	Address   string `json:"address"`
}

// Addresses returns the non-loopback IPv4 addresses of all interfaces
// that are up. Errors on individual interfaces are skipped; discovery is
// best-effort.
func Addresses() []Address {
	out := []Address{}
	ifaces, err := net.Interfaces()
	if err != nil {
		return out
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil || ip4.IsLoopback() {
				continue
			}
			out = append(out, Address{Interface: iface.Name, Address: ip4.String()})
		}
	}
	return out
}

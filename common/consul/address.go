package consul

import (
	"net"

	"github.com/pkg/errors"
)

var ErrNoValidNetworkInterfaceFound = errors.New("no valid network interface found")

// AdvertiseAddr returns the address other services should use to reach a
// listener bound to host. Wildcard hosts resolve to the first IPv4 address of
// an interface that is up and not loopback.
func AdvertiseAddr(host string) (string, error) {
	if ip := net.ParseIP(host); host != "" && (ip == nil || !ip.IsUnspecified()) {
		return host, nil
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", errors.Wrap(err, "list network interfaces")
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			return "", errors.Wrapf(err, "list addresses of %s", iface.Name)
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok {
				if ip4 := ipNet.IP.To4(); ip4 != nil {
					return ip4.String(), nil
				}
			}
		}
	}
	return "", ErrNoValidNetworkInterfaceFound
}

package arp

import (
	"net"
	"sync"
)

//  http://play.golang.org/p/m8TNTtygK0
func inc(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++
		if ip[j] > 0 {
			break
		}
	}
}

// hosts returns every usable IPv4 host address of cidr. IPv6 networks are
// not scanned and yield no hosts.
func hosts(cidr string) ([]net.IP, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	if x := ip.To4(); x == nil {
		return nil, nil
	}

	var ips []net.IP
	for ip := ip.To4().Mask(ipnet.Mask); ipnet.Contains(ip); inc(ip) {
		newIP := make([]byte, net.IPv4len)
		copy(newIP, ip)
		ips = append(ips, newIP)
	}
	if len(ips) <= 2 {
		// /31 and /32 have no network or broadcast address
		return ips, nil
	}
	// remove network address and broadcast address
	return ips[1 : len(ips)-1], nil
}

type discoveryTable struct {
	sync.Mutex
	discovered map[string]struct{}
}

// seen reports whether mac was already recorded and records it otherwise.
func (d *discoveryTable) seen(mac net.HardwareAddr) bool {
	d.Lock()
	defer d.Unlock()
	if d.discovered == nil {
		d.discovered = make(map[string]struct{})
	}
	k := mac.String()
	if _, ok := d.discovered[k]; ok {
		return true
	}
	d.discovered[k] = struct{}{}
	return false
}

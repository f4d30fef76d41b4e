package arp

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/frzifus/ouilookup/pkg/table"
)

const (
	columnIPAddr int = iota
	columnHWType
	columnFlags
	columnHWAddr
	columnMask
	columnDevice
	columnBound
)

// Entry represents an entry in the arp cache.
// This can usually be found under linux under "/proc/net/arp".
type Entry struct {
	Address net.IP
	Type    byte
	Flags   byte
	Mac     net.HardwareAddr
	Mask    string
	Device  *net.Interface
	Vendor  *table.Vendor
}

// Resolver maps a hardware address to the vendor that registered its
// prefix. *lookup.Service satisfies it.
type Resolver interface {
	LookupHardwareAddr(hw net.HardwareAddr) (table.Vendor, bool, error)
}

// ParseEntries parses s as an arp cache entry, returning the result.
// The table should look like this:
// IP address       HW type     Flags       HW address           Mask    Device
// 192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff    *       e.g.1
// 192.168.1.2      0x1         0x2         ff:ee:dd:cc:bb:aa    *       e.g.2
// If entries are not valid, they are ignored. If the list is empty, an empty
// result list is returned.
func ParseEntries(r io.Reader) []*Entry {
	entries := make([]*Entry, 0)
	if r == nil {
		return entries
	}
	s := bufio.NewScanner(r)
	s.Scan() // skip header
	for s.Scan() {
		f := strings.Fields(s.Text())
		if len(f) < columnBound {
			continue
		}
		e := &Entry{Address: net.ParseIP(f[columnIPAddr]), Mask: f[columnMask]}
		if t, err := strconv.ParseUint(f[columnHWType], 0, 8); err == nil {
			e.Type = byte(t)
		}
		if fl, err := strconv.ParseUint(f[columnFlags], 0, 8); err == nil {
			e.Flags = byte(fl)
		}
		if mac, err := net.ParseMAC(f[columnHWAddr]); err == nil {
			e.Mac = mac
		}
		if iface, err := net.InterfaceByName(f[columnDevice]); err == nil {
			e.Device = iface
		}
		entries = append(entries, e)
	}

	return entries
}

// Resolve sets the vendor of every entry with a known prefix. Entries
// without a hardware address are left untouched.
func Resolve(entries []*Entry, r Resolver) {
	for _, e := range entries {
		resolve(e, r)
	}
}

func resolve(e *Entry, r Resolver) {
	if len(e.Mac) == 0 || r == nil {
		return
	}
	if v, ok, err := r.LookupHardwareAddr(e.Mac); err == nil && ok {
		e.Vendor = &v
	}
}

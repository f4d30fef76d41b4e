package table

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/frzifus/ouilookup/pkg/registry"
)

const (
	// average number of keys per displacement bucket
	lambda = 5

	defaultSeed uint64 = 0x6f7569746162 // "ouitab"
	maxAttempts        = 1 << 10
)

// Vendor is the fixed-shape value stored for every prefix.
type Vendor struct {
	Company  string
	Location string
	Country  string
}

type slot struct {
	Prefix   string `msgpack:"prefix"`
	Company  string `msgpack:"company"`
	Location string `msgpack:"location"`
	Country  string `msgpack:"country"`
}

type displacement struct {
	D1 uint32 `msgpack:"d1"`
	D2 uint32 `msgpack:"d2"`
}

// Table is an immutable exact-match map from a 6 character hex prefix to
// its Vendor. It is built once by Compile or Read and is safe for
// concurrent use by multiple goroutines.
//
// Keys are placed with a minimal perfect hash (hash and displace): every
// key owns exactly one slot, and a lookup costs one hash, one displacement
// read and one key comparison regardless of the table size.
type Table struct {
	seed  uint64
	disps []displacement
	slots []slot
}

// Compile builds a Table from the parsed records. Only the prefix and the
// (company, location, country) tuple of each record are kept; keys that are
// not 6 uppercase hex characters are dropped. The layout is
// a pure function of the record set, so compiling the same records always
// produces the same table and the same serialized bytes.
func Compile(records registry.Records) *Table {
	keys := make([]string, 0, len(records))
	for k := range records {
		if validPrefix(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	seed := defaultSeed
	for attempt := 0; attempt < maxAttempts; attempt++ {
		disps, order, ok := place(keys, seed)
		if ok {
			slots := make([]slot, len(order))
			for i, ki := range order {
				r := records[keys[ki]]
				slots[i] = slot{
					Prefix:   keys[ki],
					Company:  r.Company,
					Location: r.Location,
					Country:  r.Country,
				}
			}
			return &Table{seed: seed, disps: disps, slots: slots}
		}
		seed = splitmix(seed)
	}
	// lambda=5 succeeds on the first or second seed for realistic inputs
	panic("table: no perfect hash found")
}

// Get returns the vendor registered for prefix. prefix has to be the
// normalized form: 6 uppercase hex characters without separators.
func (t *Table) Get(prefix string) (Vendor, bool) {
	if len(t.slots) == 0 {
		return Vendor{}, false
	}
	s := t.slots[t.index(prefix)]
	if s.Prefix != prefix {
		return Vendor{}, false
	}
	return Vendor{Company: s.Company, Location: s.Location, Country: s.Country}, true
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.slots)
}

// Seed returns the hash seed the table was built with.
func (t *Table) Seed() uint64 {
	return t.seed
}

// Prefixes returns all keys in ascending order.
func (t *Table) Prefixes() []string {
	keys := make([]string, len(t.slots))
	for i, s := range t.slots {
		keys[i] = s.Prefix
	}
	sort.Strings(keys)
	return keys
}

func (t *Table) index(key string) uint32 {
	h := hashKey(t.seed, key)
	d := t.disps[h.g%uint32(len(t.disps))]
	return displace(h.f1, h.f2, d.D1, d.D2) % uint32(len(t.slots))
}

type hashes struct {
	g, f1, f2 uint32
}

func hashKey(seed uint64, key string) hashes {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	d := xxhash.New()
	d.Write(b[:])
	d.WriteString(key)
	h := d.Sum64()
	return hashes{g: uint32(h >> 32), f1: uint32(h), f2: uint32(splitmix(h))}
}

func displace(f1, f2, d1, d2 uint32) uint32 {
	return d2 + f1*d1 + f2
}

func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func bucketCount(n int) int {
	return (n + lambda - 1) / lambda
}

// place assigns every key a distinct slot. It returns the displacement per
// bucket and, for each slot, the index of the key stored there.
func place(keys []string, seed uint64) ([]displacement, []int, bool) {
	n := len(keys)
	if n == 0 {
		return nil, nil, true
	}
	nb := bucketCount(n)
	hs := make([]hashes, n)
	buckets := make([][]int, nb)
	for i, k := range keys {
		hs[i] = hashKey(seed, k)
		b := hs[i].g % uint32(nb)
		buckets[b] = append(buckets[b], i)
	}

	// largest buckets first, ties by bucket index
	order := make([]int, nb)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return len(buckets[order[i]]) > len(buckets[order[j]])
	})

	disps := make([]displacement, nb)
	slots := make([]int, n)
	for i := range slots {
		slots[i] = -1
	}
	// generation marks slots claimed by the attempt currently being tried
	generation := make([]uint64, n)
	var gen uint64
	claimed := make([]uint32, 0, lambda*2)

	for _, b := range order {
		bucket := buckets[b]
		if len(bucket) == 0 {
			continue
		}
		found := false
	search:
		for d1 := uint32(0); d1 < uint32(n); d1++ {
			for d2 := uint32(0); d2 < uint32(n); d2++ {
				gen++
				claimed = claimed[:0]
				for _, ki := range bucket {
					idx := displace(hs[ki].f1, hs[ki].f2, d1, d2) % uint32(n)
					if slots[idx] != -1 || generation[idx] == gen {
						break
					}
					generation[idx] = gen
					claimed = append(claimed, idx)
				}
				if len(claimed) != len(bucket) {
					continue
				}
				for i, ki := range bucket {
					slots[claimed[i]] = ki
				}
				disps[b] = displacement{D1: d1, D2: d2}
				found = true
				break search
			}
		}
		if !found {
			return nil, nil, false
		}
	}
	return disps, slots, true
}

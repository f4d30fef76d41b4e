package lookup

import (
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/frzifus/ouilookup/pkg/registry"
	"github.com/frzifus/ouilookup/pkg/table"
)

func newTestService() *Service {
	return New(table.Compile(registry.Records{
		"6C639C": {Prefix: "6C639C", Company: "Example Corp", Location: "Springfield", Country: "US"},
		"AABBCC": {Prefix: "AABBCC", Company: "No Address Inc"},
	}))
}

func TestNormalize(t *testing.T) {
	tt := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "colon", in: "6C:63:9C:B6:92:09", want: "6C639C"},
		{name: "lower case", in: "6c:63:9c:b6:92:09", want: "6C639C"},
		{name: "hyphen", in: "6c-63-9c-b6-92-09", want: "6C639C"},
		{name: "dotted", in: "6c63.9cb6.9209", want: "6C639C"},
		{name: "bare", in: "6c639cb69209", want: "6C639C"},
		{name: "prefix only", in: "6C:63:9C", want: "6C639C"},
		{name: "too short", in: "6C:63", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "seven characters", in: "6C639CB", wantErr: true},
		{name: "not hex", in: "ZZ:63:9C:B6:92:09", wantErr: true},
		{name: "too many separators", in: "6C::::63:9C", wantErr: true},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in)
			if (err != nil) != tc.wantErr {
				t.Errorf("Normalize() error = %v, wantErr %v", err, tc.wantErr)
				return
			}
			if err != nil && !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Normalize() error = %v, want ErrInvalidFormat", err)
			}
			if got != tc.want {
				t.Errorf("Normalize() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestService_Lookup(t *testing.T) {
	s := newTestService()
	tt := []struct {
		name    string
		id      string
		want    table.Vendor
		ok      bool
		wantErr error
	}{
		{
			name: "expected",
			id:   "6C:63:9C:B6:92:09",
			want: table.Vendor{Company: "Example Corp", Location: "Springfield", Country: "US"},
			ok:   true,
		},
		{
			name: "no address lines",
			id:   "aa-bb-cc-00-00-01",
			want: table.Vendor{Company: "No Address Inc"},
			ok:   true,
		},
		{
			name: "not found",
			id:   "00:00:00:11:22:33",
		},
		{
			name:    "invalid format",
			id:      "6C:63",
			wantErr: ErrInvalidFormat,
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := s.Lookup(tc.id)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Lookup() error = %v, want %v", err, tc.wantErr)
			}
			if ok != tc.ok {
				t.Errorf("Lookup() ok = %v, want %v", ok, tc.ok)
			}
			if !cmp.Equal(got, tc.want) {
				t.Error(cmp.Diff(got, tc.want))
			}
		})
	}
}

func TestService_LookupIdempotent(t *testing.T) {
	s := newTestService()
	first, ok, err := s.Lookup("6C:63:9C:B6:92:09")
	if err != nil || !ok {
		t.Fatalf("Lookup() = %v, %v", ok, err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, ok, err := s.Lookup("6C:63:9C:B6:92:09")
				if err != nil || !ok || got != first {
					t.Errorf("Lookup() = %v, %v, %v; want %v", got, ok, err, first)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestService_LookupHardwareAddr(t *testing.T) {
	hw, err := net.ParseMAC("6c:63:9c:b6:92:09")
	if err != nil {
		t.Fatal(err)
	}
	got, ok, err := newTestService().LookupHardwareAddr(hw)
	if err != nil || !ok {
		t.Fatalf("LookupHardwareAddr() = %v, %v", ok, err)
	}
	if got.Company != "Example Corp" {
		t.Errorf("Company = %q, want %q", got.Company, "Example Corp")
	}
}

func TestService_EmptyTable(t *testing.T) {
	s := New(table.Compile(registry.Records{}))
	if _, ok, err := s.Lookup("6C:63:9C:B6:92:09"); ok || err != nil {
		t.Errorf("Lookup() = %v, %v; want not found", ok, err)
	}
}

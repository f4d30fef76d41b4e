package lookup

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/frzifus/ouilookup/pkg/table"
)

// MinLength is the shortest identifier accepted, enough for three
// separated octets, e.g. "6C:63:9C".
const MinLength = 8

// ErrInvalidFormat is matched by every InvalidFormatError.
var ErrInvalidFormat = errors.New("invalid identifier format")

// InvalidFormatError reports an identifier that can not be reduced to a
// 6 digit hex prefix. It is distinct from an unknown prefix, which is not
// an error.
type InvalidFormatError struct {
	Identifier string
	Reason     string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Identifier, e.Reason)
}

// Is reports whether target is ErrInvalidFormat.
func (e *InvalidFormatError) Is(target error) bool {
	return target == ErrInvalidFormat
}

var separators = strings.NewReplacer(":", "", "-", "", ".", "")

// Normalize reduces a hardware address to its 6 character uppercase prefix.
// Upper and lower case are accepted as well as the following notations:
// - 6C:63:9C:B6:92:09, 6C-63-9C-B6-92-09, 6c63.9cb6.9209 or 6c639cb69209
// Only the first 8 characters are considered.
func Normalize(identifier string) (string, error) {
	if len(identifier) < MinLength {
		return "", &InvalidFormatError{
			Identifier: identifier,
			Reason:     fmt.Sprintf("shorter than %d characters", MinLength),
		}
	}
	s := separators.Replace(strings.ToUpper(identifier[:MinLength]))
	if len(s) < 6 {
		return "", &InvalidFormatError{Identifier: identifier, Reason: "too many separators"}
	}
	s = s[:6]
	for i := 0; i < len(s); i++ {
		if c := s[i]; !('0' <= c && c <= '9') && !('A' <= c && c <= 'F') {
			return "", &InvalidFormatError{Identifier: identifier, Reason: fmt.Sprintf("non hex character %q", c)}
		}
	}
	return s, nil
}

// Service resolves identifiers against a compiled table. The table is
// shared read-only, a Service can be used from multiple goroutines.
type Service struct {
	table *table.Table
}

// New returns a Service backed by t.
func New(t *table.Table) *Service {
	return &Service{table: t}
}

// Table returns the table the service queries.
func (s *Service) Table() *table.Table {
	return s.table
}

// Lookup returns the vendor registered for the identifier's prefix. An
// unknown prefix yields ok=false and a nil error; err is only set for
// identifiers that fail Normalize.
func (s *Service) Lookup(identifier string) (v table.Vendor, ok bool, err error) {
	prefix, err := Normalize(identifier)
	if err != nil {
		return table.Vendor{}, false, err
	}
	v, ok = s.table.Get(prefix)
	return v, ok, nil
}

// LookupHardwareAddr returns the vendor for a net.HardwareAddr.
func (s *Service) LookupHardwareAddr(hw net.HardwareAddr) (table.Vendor, bool, error) {
	return s.Lookup(hw.String())
}

package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// DefaultSkipLines is the size of the oui.txt preamble:
	// OUI/MA-L      Organization
	// company_id    Organization
	//               Address
	// <blank>
	DefaultSkipLines = 4
	// DefaultMarker tags the header line carrying the bare hex prefix.
	DefaultMarker = "(base 16)"
	// DefaultLegendMarker tags the dashed form of the prefix that precedes
	// every header line.
	DefaultLegendMarker = "(hex)"

	prefixLen = 6
)

// ErrMalformedRecord is matched by every MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError describes a header line that could not yield a
// valid prefix. The record is skipped and parsing continues.
type MalformedRecordError struct {
	Line int
	Text string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: malformed record header %q", e.Line, e.Text)
}

// Is reports whether target is ErrMalformedRecord.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// Record is a single registry assignment.
type Record struct {
	Prefix   string
	Company  string
	Address  []string
	Location string
	Country  string
}

// Records maps a normalized prefix to its record.
type Records map[string]Record

// Logger interface passes to Parse
type Logger interface {
	Printf(format string, v ...interface{})
}

type nullLogger struct{}

func (*nullLogger) Printf(format string, v ...interface{}) {}

// An Option configures the parser.
type Option func(*parser)

// WithSkipLines sets the number of leading lines that are ignored.
func WithSkipLines(n int) Option {
	return func(p *parser) {
		p.skip = n
	}
}

// WithMarker sets the substring identifying a record header line.
func WithMarker(m string) Option {
	return func(p *parser) {
		p.marker = m
	}
}

// WithLegendMarker sets the substring identifying legend lines, which end
// a record without being stored.
func WithLegendMarker(m string) Option {
	return func(p *parser) {
		p.legend = m
	}
}

// WithLogger creates an option that sets the given logger to the parser.
func WithLogger(l Logger) Option {
	return func(p *parser) {
		p.logger = l
	}
}

type parser struct {
	skip   int
	marker string
	legend string
	logger Logger

	records Records
	current *Record
	lines   []string
}

// Parse reads an IEEE oui.txt style document and returns its records keyed
// by prefix. A header looks like this:
// 6C-63-9C   (hex)		Example Corp
// 6C639C     (base 16)		Example Corp
// 				Street 1
// 				Springfield
// 				US
// Malformed headers are logged and skipped. A document without records
// yields an empty result, not an error. Only read errors are returned.
func Parse(r io.Reader, opts ...Option) (Records, error) {
	p := &parser{
		skip:    DefaultSkipLines,
		marker:  DefaultMarker,
		legend:  DefaultLegendMarker,
		logger:  &nullLogger{},
		records: make(Records),
	}
	for _, o := range opts {
		o(p)
	}

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; s.Scan(); n++ {
		if n <= p.skip {
			continue
		}
		p.line(n, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	p.terminate()
	return p.records, nil
}

// ParseString is like Parse but reads from a string.
func ParseString(text string, opts ...Option) (Records, error) {
	return Parse(strings.NewReader(text), opts...)
}

func (p *parser) line(n int, line string) {
	switch {
	case p.marker != "" && strings.Contains(line, p.marker):
		p.terminate()
		p.header(n, line)
	case strings.TrimSpace(line) == "":
		p.terminate()
	case p.legend != "" && strings.Contains(line, p.legend):
		p.terminate()
	case p.current != nil:
		p.lines = append(p.lines, strings.TrimSpace(line))
	}
}

func (p *parser) header(n int, line string) {
	i := strings.Index(line, p.marker)
	prefix, ok := normalizePrefix(line[:i])
	if !ok {
		p.logger.Printf("skip: %v\n", &MalformedRecordError{Line: n, Text: line})
		return
	}
	p.current = &Record{
		Prefix:  prefix,
		Company: strings.TrimSpace(line[i+len(p.marker):]),
	}
}

// terminate finishes the current record, deriving country and location
// from the tail of the address buffer.
func (p *parser) terminate() {
	if p.current == nil {
		return
	}
	rec, lines := p.current, p.lines
	if n := len(lines); n > 0 {
		rec.Country, lines = lines[n-1], lines[:n-1]
	}
	if n := len(lines); n > 0 {
		rec.Location, lines = lines[n-1], lines[:n-1]
	}
	if len(lines) > 0 {
		rec.Address = append([]string(nil), lines...)
	}
	if _, ok := p.records[rec.Prefix]; ok {
		p.logger.Printf("duplicate prefix %s, keeping last occurrence\n", rec.Prefix)
	}
	p.records[rec.Prefix] = *rec
	p.current, p.lines = nil, p.lines[:0]
}

func normalizePrefix(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", ":", "").Replace(s)
	if len(s) != prefixLen {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		if !isHex(s[i]) {
			return "", false
		}
	}
	return s, true
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('A' <= c && c <= 'F')
}

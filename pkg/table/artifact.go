package table

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack"
)

// FormatVersion is the version of the artifact layout written by WriteTo.
const FormatVersion uint32 = 1

var magic = []byte("OUIT")

var (
	// ErrBadMagic is returned when the input is not a table artifact.
	ErrBadMagic = errors.New("invalid table header")
	// ErrUnsupportedVersion is returned for artifacts of a different layout version.
	ErrUnsupportedVersion = errors.New("unsupported table version")
	// ErrCorrupt is returned when the artifact decodes but is inconsistent.
	ErrCorrupt = errors.New("corrupt table")
)

// artifact is the msgpack encoded body following the header.
type artifact struct {
	Seed  uint64         `msgpack:"seed"`
	Disps []displacement `msgpack:"disps"`
	Slots []slot         `msgpack:"slots"`
}

// WriteTo serializes the table:
// - 4 bytes magic "OUIT"
// - uint32 little-endian format version
// - msgpack body (seed, displacements, slots)
// The body contains no maps, so equal tables encode to equal bytes.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	body, err := msgpack.Marshal(&artifact{Seed: t.seed, Disps: t.disps, Slots: t.slots})
	if err != nil {
		return 0, fmt.Errorf("encode table: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(magic) + 4 + len(body))
	buf.Write(magic)
	binary.Write(&buf, binary.LittleEndian, FormatVersion)
	buf.Write(body)
	return buf.WriteTo(w)
}

// Read decodes a table written by WriteTo and verifies that every stored
// key hashes to its own slot.
func Read(r io.Reader) (*Table, error) {
	header := make([]byte, len(magic)+4)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrBadMagic
		}
		return nil, fmt.Errorf("read table header: %w", err)
	}
	if !bytes.Equal(header[:len(magic)], magic) {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint32(header[len(magic):]); v != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	var a artifact
	if err := msgpack.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	t := &Table{seed: a.Seed, disps: a.Disps, slots: a.Slots}
	if err := t.verify(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) verify() error {
	if len(t.disps) != bucketCount(len(t.slots)) {
		return fmt.Errorf("%w: %d displacements for %d slots", ErrCorrupt, len(t.disps), len(t.slots))
	}
	for i, s := range t.slots {
		if !validPrefix(s.Prefix) {
			return fmt.Errorf("%w: invalid prefix %q", ErrCorrupt, s.Prefix)
		}
		if idx := t.index(s.Prefix); idx != uint32(i) {
			return fmt.Errorf("%w: prefix %s stored in slot %d, hashes to %d", ErrCorrupt, s.Prefix, i, idx)
		}
	}
	return nil
}

// Save writes the table to path. The file is written next to its final
// location and renamed into place, so concurrent readers see either the old
// or the new artifact.
func Save(path string, t *Table) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	w := bufio.NewWriter(f)
	if _, err := t.WriteTo(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// Load reads a table artifact from path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

func validPrefix(prefix string) bool {
	if len(prefix) != 6 {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if !('0' <= c && c <= '9') && !('A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

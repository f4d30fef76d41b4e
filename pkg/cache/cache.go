package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultCacheDir = "/tmp/vlookup"
	fileExt         = ".txt"
)

// ErrNotFound is returned by Get for unknown tags.
var ErrNotFound = errors.New("cache entry not found")

type Option func(*Cache) error

// WithUserDir stores the cache below the user cache directory, e.g.
// $HOME/.cache/vlookup.
func WithUserDir() Option {
	return func(c *Cache) error {
		dir, err := os.UserCacheDir()
		if err != nil {
			return err
		}
		c.path = filepath.Join(dir, "vlookup")
		return nil
	}
}

// WithPath uses an existing directory.
func WithPath(p string) Option {
	return func(c *Cache) error {
		f, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !f.IsDir() {
			return fmt.Errorf("%s is not a directory", p)
		}
		c.path = p
		return nil
	}
}

// New opens the cache directory and loads every entry whose content still
// matches the checksum in its file name. Entries that fail the check are
// removed.
func New(opts ...Option) (*Cache, error) {
	c := &Cache{path: defaultCacheDir, intern: make(map[string]entry)}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(c.path, 0o755); err != nil {
		return nil, err
	}
	return c, c.init()
}

type entry struct {
	payload  []byte
	modified time.Time
	dirty    bool
}

// Cache is a directory backed store of tagged blobs. Files are named
// [TAG]_[SHA256].txt, e.g. oui_9f86d08...txt.
type Cache struct {
	mu     sync.RWMutex
	path   string
	intern map[string]entry
}

// Path returns the cache directory.
func (c *Cache) Path() string {
	return c.path
}

func (c *Cache) init() error {
	files, err := os.ReadDir(c.path)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), fileExt) {
			continue
		}
		tag, hash, ok := splitName(f.Name())
		if !ok {
			continue
		}
		name := filepath.Join(c.path, f.Name())
		b, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		if checksum(b) != hash {
			if err := os.Remove(name); err != nil {
				return err
			}
			continue
		}
		info, err := f.Info()
		if err != nil {
			return err
		}
		if e, ok := c.intern[tag]; ok && e.modified.After(info.ModTime()) {
			continue
		}
		c.intern[tag] = entry{payload: b, modified: info.ModTime()}
	}
	return nil
}

// Set replaces the entry for tag. It is persisted on the next Flush.
func (c *Cache) Set(tag string, r io.Reader) error {
	if tag == "" || strings.Contains(tag, "_") {
		return fmt.Errorf("invalid cache tag %q", tag)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intern[tag] = entry{payload: buf.Bytes(), modified: time.Now(), dirty: true}
	return nil
}

// Get returns the content stored for tag.
func (c *Cache) Get(tag string) (io.Reader, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.intern[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, tag)
	}
	return bytes.NewReader(e.payload), nil
}

// Age returns how long ago the entry for tag was stored.
func (c *Cache) Age(tag string) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.intern[tag]
	if !ok {
		return 0, false
	}
	return time.Since(e.modified), true
}

// Flush writes modified entries to disk and removes the files they
// supersede.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for tag, e := range c.intern {
		if !e.dirty {
			continue
		}
		name := filepath.Join(c.path, fmt.Sprintf("%s_%s%s", tag, checksum(e.payload), fileExt))
		if err := os.WriteFile(name, e.payload, 0o644); err != nil {
			return err
		}
		if err := os.Chtimes(name, e.modified, e.modified); err != nil {
			return err
		}
		if err := c.prune(tag, name); err != nil {
			return err
		}
		e.dirty = false
		c.intern[tag] = e
	}
	return nil
}

func (c *Cache) prune(tag, keep string) error {
	old, err := filepath.Glob(filepath.Join(c.path, tag+"_*"+fileExt))
	if err != nil {
		return err
	}
	for _, name := range old {
		if name == keep {
			continue
		}
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func splitName(name string) (tag, hash string, ok bool) {
	name = strings.TrimSuffix(name, fileExt)
	i := strings.LastIndex(name, "_")
	if i <= 0 {
		return "", "", false
	}
	tag, hash = name[:i], name[i+1:]
	if len(hash) != hex.EncodedLen(sha256.Size) {
		return "", "", false
	}
	return tag, hash, true
}

func checksum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	cacheTag       = "oui"
	defaultTTL     = 24 * time.Hour
	defaultTimeout = 30 * time.Second
)

// ErrRetrieval is matched by every RetrievalError.
var ErrRetrieval = errors.New("registry retrieval failed")

// RetrievalError means no document is available. Callers must not build a
// table from partial data when they see it.
type RetrievalError struct {
	URL string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve %s: %v", e.URL, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Is reports whether target is ErrRetrieval.
func (e *RetrievalError) Is(target error) bool {
	return target == ErrRetrieval
}

// Store keeps the last retrieved document between runs.
// *cache.Cache satisfies it.
type Store interface {
	Set(tag string, r io.Reader) error
	Get(tag string) (io.Reader, error)
	Age(tag string) (time.Duration, bool)
	Flush() error
}

// Logger interface passes to Source
type Logger interface {
	Printf(format string, v ...interface{})
}

type nullLogger struct{}

func (*nullLogger) Printf(format string, v ...interface{}) {}

// Option recognized by Source
type Option func(*Source)

// WithURL sets the registry location.
func WithURL(url string) Option {
	return func(s *Source) {
		s.url = url
	}
}

// WithStore caches retrieved documents in st.
func WithStore(st Store) Option {
	return func(s *Source) {
		s.store = st
	}
}

// WithTTL sets how long a cached document is served without a refresh.
func WithTTL(d time.Duration) Option {
	return func(s *Source) {
		s.ttl = d
	}
}

// WithHTTPClient overrides the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) {
		s.client = c
	}
}

// WithLogger creates an option that sets the given logger to a Source.
func WithLogger(l Logger) Option {
	return func(s *Source) {
		s.logger = l
	}
}

// Source supplies the raw registry document, from a local cache while it
// is fresh and from the network otherwise.
type Source struct {
	url    string
	store  Store
	ttl    time.Duration
	client *http.Client
	logger Logger
}

// New creates a Source. The URL defaults to $DATA_URL and falls back to
// RemoteIeeeOUI.
func New(opts ...Option) *Source {
	s := &Source{
		url:    RemoteIeeeOUI,
		ttl:    defaultTTL,
		client: &http.Client{Timeout: defaultTimeout},
		logger: &nullLogger{},
	}
	if env := os.Getenv(EnvDataURL); env != "" {
		s.url = env
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// URL returns the registry location.
func (s *Source) URL() string {
	return s.url
}

// Document returns the registry text. A cached copy younger than the TTL is
// served unless forceRefresh is set. When a regular refresh fails, a stale
// cached copy is returned instead; a forced refresh never falls back.
func (s *Source) Document(ctx context.Context, forceRefresh bool) ([]byte, error) {
	if !forceRefresh {
		if age, ok := s.cached(); ok && age < s.ttl {
			s.logger.Printf("using cached registry (age %s)\n", age.Round(time.Second))
			return s.load()
		}
	}
	b, err := s.fetch(ctx)
	if err != nil {
		if _, ok := s.cached(); ok && !forceRefresh {
			s.logger.Printf("warn: %v, using stale cached registry\n", err)
			return s.load()
		}
		return nil, err
	}
	if s.store != nil {
		if err := s.store.Set(cacheTag, bytes.NewReader(b)); err != nil {
			return nil, err
		}
		if err := s.store.Flush(); err != nil {
			s.logger.Printf("warn: flush cache: %v\n", err)
		}
	}
	return b, nil
}

func (s *Source) cached() (time.Duration, bool) {
	if s.store == nil {
		return 0, false
	}
	return s.store.Age(cacheTag)
}

func (s *Source) load() ([]byte, error) {
	r, err := s.store.Get(cacheTag)
	if err != nil {
		return nil, &RetrievalError{URL: s.url, Err: err}
	}
	return io.ReadAll(r)
}

func (s *Source) fetch(ctx context.Context) ([]byte, error) {
	s.logger.Printf("get: %s\n", s.url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &RetrievalError{URL: s.url, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &RetrievalError{URL: s.url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &RetrievalError{URL: s.url, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	var b bytes.Buffer
	if _, err = io.Copy(&b, resp.Body); err != nil {
		return nil, &RetrievalError{URL: s.url, Err: err}
	}
	if b.Len() == 0 {
		return nil, &RetrievalError{URL: s.url, Err: errors.New("empty document")}
	}
	return b.Bytes(), nil
}

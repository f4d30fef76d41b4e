package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frzifus/ouilookup/pkg/cache"
)

type registryServer struct {
	*httptest.Server
	hits   int32
	status int32
	body   atomic.Value
}

func newRegistryServer(t *testing.T, body string) *registryServer {
	rs := &registryServer{status: http.StatusOK}
	rs.body.Store(body)
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&rs.hits, 1)
		w.WriteHeader(int(atomic.LoadInt32(&rs.status)))
		w.Write([]byte(rs.body.Load().(string)))
	}))
	t.Cleanup(rs.Close)
	return rs
}

func newStore(t *testing.T) *cache.Cache {
	c, err := cache.New(cache.WithPath(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSource_Document(t *testing.T) {
	srv := newRegistryServer(t, "registry v1")
	s := New(WithURL(srv.URL), WithStore(newStore(t)))

	for i := 0; i < 2; i++ {
		got, err := s.Document(context.Background(), false)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "registry v1" {
			t.Errorf("Document() = %q", got)
		}
	}
	if hits := atomic.LoadInt32(&srv.hits); hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}

	srv.body.Store("registry v2")
	got, err := s.Document(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "registry v2" {
		t.Errorf("forced Document() = %q", got)
	}
	if hits := atomic.LoadInt32(&srv.hits); hits != 2 {
		t.Errorf("server hit %d times, want 2", hits)
	}
}

func TestSource_ExpiredCache(t *testing.T) {
	srv := newRegistryServer(t, "registry")
	s := New(WithURL(srv.URL), WithStore(newStore(t)), WithTTL(0))
	for i := 0; i < 3; i++ {
		if _, err := s.Document(context.Background(), false); err != nil {
			t.Fatal(err)
		}
	}
	if hits := atomic.LoadInt32(&srv.hits); hits != 3 {
		t.Errorf("server hit %d times, want 3", hits)
	}
}

func TestSource_RetrievalError(t *testing.T) {
	tt := []struct {
		name   string
		status int32
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "oops"},
		{name: "not found", status: http.StatusNotFound},
		{name: "empty body", status: http.StatusOK},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			srv := newRegistryServer(t, tc.body)
			atomic.StoreInt32(&srv.status, tc.status)
			_, err := New(WithURL(srv.URL)).Document(context.Background(), false)
			if !errors.Is(err, ErrRetrieval) {
				t.Errorf("Document() error = %v, want ErrRetrieval", err)
			}
			var re *RetrievalError
			if !errors.As(err, &re) || re.URL != srv.URL {
				t.Errorf("Document() error = %#v, want RetrievalError for %s", err, srv.URL)
			}
		})
	}
}

func TestSource_StaleFallback(t *testing.T) {
	srv := newRegistryServer(t, "stale")
	s := New(WithURL(srv.URL), WithStore(newStore(t)), WithTTL(time.Nanosecond))
	if _, err := s.Document(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	atomic.StoreInt32(&srv.status, http.StatusServiceUnavailable)
	time.Sleep(time.Millisecond)

	got, err := s.Document(context.Background(), false)
	if err != nil {
		t.Fatalf("Document() error = %v, want stale copy", err)
	}
	if string(got) != "stale" {
		t.Errorf("Document() = %q, want %q", got, "stale")
	}

	if _, err := s.Document(context.Background(), true); !errors.Is(err, ErrRetrieval) {
		t.Errorf("forced Document() error = %v, want ErrRetrieval", err)
	}
}

func TestSource_CanceledContext(t *testing.T) {
	srv := newRegistryServer(t, "registry")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(WithURL(srv.URL)).Document(ctx, false)
	if !errors.Is(err, ErrRetrieval) || !errors.Is(err, context.Canceled) {
		t.Errorf("Document() error = %v, want canceled retrieval", err)
	}
}

func TestNew_DataURL(t *testing.T) {
	t.Setenv(EnvDataURL, "")
	if got := New().URL(); got != RemoteIeeeOUI {
		t.Errorf("URL() = %q, want %q", got, RemoteIeeeOUI)
	}
	t.Setenv(EnvDataURL, "http://mirror.example/oui.txt")
	if got := New().URL(); got != "http://mirror.example/oui.txt" {
		t.Errorf("URL() = %q, want env override", got)
	}
	if got := New(WithURL("http://flag.example")).URL(); got != "http://flag.example" {
		t.Errorf("URL() = %q, want option override", got)
	}
}

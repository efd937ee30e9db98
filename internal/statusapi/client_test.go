package statusapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const statusBody = `{
  "state": {"turn": "White", "board": []},
  "moves": [{"tag": "Move", "contents": {"Move": {"from": {"rank": 6, "file": 4}, "to": {"rank": 4, "file": 4}}}}],
  "depth": 3
}`

type recorder struct {
	mu    sync.Mutex
	paths []string
	ids   []string
}

func (r *recorder) add(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, req.URL.Path)
	r.ids = append(r.ids, req.Header.Get("X-Client-Id"))
}

func (r *recorder) last() (string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.paths) == 0 {
		return "", ""
	}
	return r.paths[len(r.paths)-1], r.ids[len(r.ids)-1]
}

func newServer(t *testing.T, rec *recorder) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/status.json", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(statusBody))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func withID(id string) Option {
	return WithHeaderProvider(func() map[string]string { return map[string]string{"X-Client-Id": id} })
}

func TestStatusDecodesBody(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	c := NewClient(srv.URL+"/", withID("abc"))

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.State == nil || st.State.Turn != "White" {
		t.Fatalf("state = %+v", st.State)
	}
	if len(st.Moves) != 1 || st.Moves[0].Contents.Move == nil {
		t.Fatalf("moves = %+v", st.Moves)
	}
	if string(st.Config["depth"]) != "3" {
		t.Fatalf("config = %v", st.Config)
	}
	if path, id := rec.last(); path != "/status.json" || id != "abc" {
		t.Fatalf("request = %s id=%q", path, id)
	}
}

func TestSubmitMovePath(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	c := NewClient(srv.URL)

	if err := c.SubmitMove(context.Background(), 3); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if path, _ := rec.last(); path != "/move/3" {
		t.Fatalf("path = %s", path)
	}
	if err := c.SubmitMove(context.Background(), -1); err == nil {
		t.Fatalf("expected error for negative index")
	}
}

func TestAdminPaths(t *testing.T) {
	rec := &recorder{}
	srv := newServer(t, rec)
	c := NewClient(srv.URL, WithRoutes(Routes{Reset: "/admin/reset"}))

	if err := c.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if path, _ := rec.last(); path != "/admin/reset" {
		t.Fatalf("reset path = %s", path)
	}
	if err := c.Config(context.Background(), "depth", "/5/"); err != nil {
		t.Fatalf("config: %v", err)
	}
	if path, _ := rec.last(); path != "/config/depth/5" {
		t.Fatalf("config path = %s", path)
	}
}

func TestNon2xxIsStatusError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(3))
	err := c.SubmitMove(context.Background(), 0)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("err = %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("move request retried: %d hits", hits.Load())
	}

	hits.Store(0)
	if err := c.Reset(context.Background()); err == nil {
		t.Fatalf("expected reset error")
	}
	if hits.Load() != 3 {
		t.Fatalf("reset attempts = %d, want 3", hits.Load())
	}
}

func TestMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state": [`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Status(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestContextDeadlineBoundsRequest(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := NewClient(srv.URL).Status(ctx); err == nil {
		t.Fatalf("expected timeout")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("request not bounded by context deadline")
	}
}

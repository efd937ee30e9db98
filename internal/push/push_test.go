package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func collect(n Notifier) <-chan string {
	ch := make(chan string, 16)
	n.OnEvent(func(p []byte) { ch <- string(p) })
	return ch
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) has(s State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, x := range l.states {
		if x == s {
			return true
		}
	}
	return false
}

func expectEvent(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("event = %q, want %q", got, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func closeNotifier(t *testing.T, n Notifier) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := n.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSSEDeliversEvents(t *testing.T) {
	ids := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get("X-Client-Id")
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		fmt.Fprint(w, ": hello\n\n")
		fmt.Fprint(w, "data: changed\n\n")
		fmt.Fprint(w, "data: line one\ndata: line two\n\n")
		fmt.Fprint(w, "event: ping\n\n")
		fl.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	n := NewSSE(srv.URL, WithHeaderProvider(func() map[string]string {
		return map[string]string{"X-Client-Id": "client-1"}
	}))
	events := collect(n)
	if err := n.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer closeNotifier(t, n)

	expectEvent(t, events, "changed")
	expectEvent(t, events, "line one\nline two")
	expectEvent(t, events, "")
	if id := <-ids; id != "client-1" {
		t.Fatalf("client id header = %q", id)
	}
	if n.State() != StateConnected {
		t.Fatalf("state = %s", n.State())
	}
}

func TestSSEReconnectsAfterStreamEnds(t *testing.T) {
	var (
		mu    sync.Mutex
		conns int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: conn-%d\n\n", n)
		w.(http.Flusher).Flush()
		if n > 1 {
			<-r.Context().Done()
		}
	}))
	defer srv.Close()

	states := &stateLog{}
	n := NewSSE(srv.URL, WithReconnect(-1, 10*time.Millisecond))
	n.OnStateChange(states.record)
	events := collect(n)
	if err := n.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer closeNotifier(t, n)

	expectEvent(t, events, "conn-1")
	expectEvent(t, events, "conn-2")
	if !states.has(StateReconnecting) {
		t.Fatalf("never reported reconnecting")
	}
}

func TestSSEHandshakeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	n := NewSSE(srv.URL, WithReconnect(0, 0))
	err := n.Connect(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status=404") {
		t.Fatalf("err = %v", err)
	}
	closeNotifier(t, n)
}

func TestCloseStopsRedialing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := NewSSE(srv.URL, WithReconnect(-1, 5*time.Millisecond))
	if err := n.Connect(context.Background()); err == nil {
		t.Fatalf("expected connect error")
	}
	time.Sleep(30 * time.Millisecond)
	closeNotifier(t, n)
	if n.State() != StateDisconnected {
		t.Fatalf("state after close = %s", n.State())
	}
}

func TestWebSocketDeliversFrames(t *testing.T) {
	subscribed := make(chan subscribeFrame, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		var hello subscribeFrame
		if err := wsjson.Read(r.Context(), conn, &hello); err != nil {
			return
		}
		subscribed <- hello
		if err := conn.Write(r.Context(), websocket.MessageText, []byte("changed")); err != nil {
			return
		}
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	n := NewWebSocket(url, "client-7")
	events := collect(n)
	if err := n.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer closeNotifier(t, n)

	select {
	case hello := <-subscribed:
		if hello.Type != "subscribe" || hello.ClientID != "client-7" {
			t.Fatalf("subscribe frame = %+v", hello)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no subscribe frame")
	}
	expectEvent(t, events, "changed")
}

func TestRedisDeliversPublishedMessages(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	n := NewRedis(rdb, "", WithReconnect(0, 0))
	events := collect(n)
	if err := n.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer closeNotifier(t, n)

	if n.Channel() != DefaultChannel {
		t.Fatalf("channel = %q", n.Channel())
	}
	if err := Announce(context.Background(), rdb, "", "moved"); err != nil {
		t.Fatalf("announce: %v", err)
	}
	expectEvent(t, events, "moved")
}

func TestFactoryModes(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
		check   func(Notifier) bool
	}{
		{"default is sse", Config{URL: "http://x/events"}, false, func(n Notifier) bool { _, ok := n.(*SSE); return ok }},
		{"ws", Config{Mode: "WS", URL: "ws://x/ws"}, false, func(n Notifier) bool { _, ok := n.(*WebSocket); return ok }},
		{"redis", Config{Mode: ModeRedis, RedisAddr: "127.0.0.1:1"}, false, func(n Notifier) bool { r, ok := n.(*Redis); return ok && r.ownClient }},
		{"off", Config{Mode: ModeOff}, false, func(n Notifier) bool { _, ok := n.(Nop); return ok }},
		{"sse without url", Config{Mode: ModeSSE}, true, nil},
		{"redis without addr", Config{Mode: ModeRedis}, true, nil},
		{"unknown", Config{Mode: "carrier-pigeon"}, true, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := New(tc.cfg, nil)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			if !tc.check(n) {
				t.Fatalf("unexpected notifier %T", n)
			}
			_ = n.Close(context.Background())
		})
	}
}

func TestConnectAfterCloseDoesNotDial(t *testing.T) {
	dialed := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dialed <- struct{}{}
	}))
	defer srv.Close()

	n := NewSSE(srv.URL)
	closeNotifier(t, n)
	if err := n.Connect(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("connect after close: %v", err)
	}
	select {
	case <-dialed:
		t.Fatalf("server was dialed after close")
	case <-time.After(50 * time.Millisecond):
	}
	if n.State() != StateDisconnected {
		t.Fatalf("state = %s", n.State())
	}
}

func TestCloseAbortsPendingHandshake(t *testing.T) {
	entered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-r.Context().Done()
	}))
	defer srv.Close()

	n := NewSSE(srv.URL, WithReconnect(-1, 5*time.Millisecond), WithDialTimeout(10*time.Second))
	connectErr := make(chan error, 1)
	go func() { connectErr <- n.Connect(context.Background()) }()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("handshake never reached the server")
	}
	closeNotifier(t, n)

	select {
	case err := <-connectErr:
		if err == nil {
			t.Fatalf("expected the aborted handshake to fail")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("connect still pending after close")
	}
	if n.State() != StateDisconnected {
		t.Fatalf("state after close = %s", n.State())
	}
}

// Package push listens on the server's change-notification channel. Payloads
// are opaque; a notification only means "fetch again".
package push

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned by Connect once Close has been called.
var ErrClosed = errors.New("push: notifier closed")

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

type EventCallback func(payload []byte)

type StateCallback func(state State)

// Notifier is a standing server-to-client notification stream.
type Notifier interface {
	Connect(ctx context.Context) error
	OnEvent(cb EventCallback) int
	OnStateChange(cb StateCallback) int
	Close(ctx context.Context) error
}

// HeaderProvider allows injecting headers into the handshake.
type HeaderProvider func() map[string]string

func buildHeaders(h HeaderProvider) http.Header {
	hdr := http.Header{}
	if h == nil {
		return hdr
	}
	for k, v := range h() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}

type options struct {
	headers              HeaderProvider
	maxReconnectAttempts int
	reconnectDelay       time.Duration
	dialTimeout          time.Duration
	pingInterval         time.Duration
	httpClient           *http.Client
	logger               *zap.Logger
}

func defaultOptions() options {
	return options{
		maxReconnectAttempts: -1,
		reconnectDelay:       500 * time.Millisecond,
		dialTimeout:          10 * time.Second,
		pingInterval:         30 * time.Second,
		logger:               zap.NewNop(),
	}
}

type Option func(*options)

func WithHeaderProvider(h HeaderProvider) Option {
	return func(o *options) { o.headers = h }
}

// WithReconnect sets the redial policy. max < 0 retries forever, 0 never
// redials.
func WithReconnect(max int, delay time.Duration) Option {
	return func(o *options) {
		o.maxReconnectAttempts = max
		if delay > 0 {
			o.reconnectDelay = delay
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}

// WithPingInterval applies to the websocket transport.
func WithPingInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pingInterval = d
		}
	}
}

// WithHTTPClient applies to the SSE transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// session is one established connection. run blocks until the connection
// ends or ctx is cancelled.
type session interface {
	run(ctx context.Context, emit func([]byte)) error
	close() error
}

type dialFunc func(ctx context.Context) (session, error)

type eventEntry struct {
	id       int
	callback EventCallback
}

type stateEntry struct {
	id       int
	callback StateCallback
}

// stream carries the connect, redial and callback plumbing shared by every
// transport.
type stream struct {
	kind string
	dial dialFunc
	opts options

	state  State
	stateM sync.RWMutex

	eventCbs []eventEntry
	stateCbs []stateEntry
	nextID   int
	cbM      sync.RWMutex

	startM  sync.Mutex
	started bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func newStream(kind string, dial dialFunc, opts options) *stream {
	return &stream{
		kind:   kind,
		dial:   dial,
		opts:   opts,
		state:  StateDisconnected,
		stopCh: make(chan struct{}),
	}
}

// Connect dials once. On failure the error is returned and redialing
// continues in the background per the reconnect policy.
func (s *stream) Connect(ctx context.Context) error {
	s.startM.Lock()
	if s.isStopping() {
		s.startM.Unlock()
		return ErrClosed
	}
	if s.started {
		s.startM.Unlock()
		return nil
	}
	s.started = true
	s.rootCtx, s.rootCancel = context.WithCancel(context.Background())
	// counted before Close can observe rootCancel; loop calls Done
	s.wg.Add(1)
	s.startM.Unlock()

	s.setState(StateConnecting)
	dialCtx, cancel := context.WithTimeout(ctx, s.opts.dialTimeout)
	stop := context.AfterFunc(s.rootCtx, cancel)
	sess, err := s.dial(dialCtx)
	stop()
	cancel()
	if err != nil {
		s.opts.logger.Warn("push_connect_failed", zap.String("transport", s.kind), zap.Error(err))
		s.setState(StateFailed)
		go s.loop(nil)
		return err
	}

	s.setState(StateConnected)
	go s.loop(sess)
	return nil
}

func (s *stream) loop(sess session) {
	defer s.wg.Done()
	for {
		if sess != nil {
			err := sess.run(s.rootCtx, s.emit)
			_ = sess.close()
			if s.isStopping() {
				return
			}
			s.opts.logger.Warn("push_stream_lost", zap.String("transport", s.kind), zap.Error(err))
			s.setState(StateDisconnected)
		}
		if sess = s.redial(); sess == nil {
			return
		}
	}
}

func (s *stream) redial() session {
	max := s.opts.maxReconnectAttempts
	if max == 0 {
		s.setState(StateFailed)
		return nil
	}
	s.setState(StateReconnecting)
	for attempt := 1; max < 0 || attempt <= max; attempt++ {
		select {
		case <-s.stopCh:
			return nil
		case <-time.After(backoffDuration(attempt, s.opts.reconnectDelay)):
		}

		dialCtx, cancel := context.WithTimeout(s.rootCtx, s.opts.dialTimeout)
		sess, err := s.dial(dialCtx)
		cancel()
		if err != nil {
			if s.isStopping() {
				return nil
			}
			s.opts.logger.Debug("push_redial_failed", zap.String("transport", s.kind), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		s.setState(StateConnected)
		return sess
	}
	s.setState(StateFailed)
	return nil
}

// backoffDuration doubles base per attempt, capped at 32x.
func backoffDuration(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * base
}

func (s *stream) OnEvent(cb EventCallback) int {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.nextID++
	s.eventCbs = append(s.eventCbs, eventEntry{id: s.nextID, callback: cb})
	return s.nextID
}

func (s *stream) OnStateChange(cb StateCallback) int {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.nextID++
	s.stateCbs = append(s.stateCbs, stateEntry{id: s.nextID, callback: cb})
	return s.nextID
}

func (s *stream) State() State {
	s.stateM.RLock()
	defer s.stateM.RUnlock()
	return s.state
}

func (s *stream) emit(payload []byte) {
	s.cbM.RLock()
	callbacks := make([]eventEntry, len(s.eventCbs))
	copy(callbacks, s.eventCbs)
	s.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(payload)
		}
	}
}

func (s *stream) setState(state State) {
	s.stateM.Lock()
	if s.state == state {
		s.stateM.Unlock()
		return
	}
	s.state = state
	s.stateM.Unlock()

	s.opts.logger.Debug("push_state", zap.String("transport", s.kind), zap.String("state", string(state)))

	s.cbM.RLock()
	callbacks := make([]stateEntry, len(s.stateCbs))
	copy(callbacks, s.stateCbs)
	s.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

// Close stops redialing, tears down the live connection and waits for the
// reader to exit or ctx to expire.
func (s *stream) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.startM.Lock()
	if s.rootCancel != nil {
		s.rootCancel()
	}
	s.startM.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		s.setState(StateDisconnected)
		return nil
	}
}

func (s *stream) isStopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// Nop never delivers events. It backs the "off" mode, where only manual
// refreshes update the board.
type Nop struct{}

func (Nop) Connect(context.Context) error   { return nil }
func (Nop) OnEvent(EventCallback) int       { return 0 }
func (Nop) OnStateChange(StateCallback) int { return 0 }
func (Nop) Close(context.Context) error     { return nil }

// Package statesync keeps the store fresh: push notifications and manual
// refreshes become status fetches, and only the newest fetch may replace
// the held state.
package statesync

import (
	"context"
	"time"

	"github.com/park285/cheese-board-client/internal/board"
	"github.com/park285/cheese-board-client/internal/store"
	"go.uber.org/zap"
)

const DefaultFetchTimeout = 3 * time.Second

// Fetcher reads one status snapshot.
type Fetcher interface {
	FetchStatus(ctx context.Context) (board.StatusSnapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (board.StatusSnapshot, error)

func (f FetcherFunc) FetchStatus(ctx context.Context) (board.StatusSnapshot, error) { return f(ctx) }

// Replacer receives fresh snapshots; *store.Store implements it.
type Replacer interface {
	Replace(board.StatusSnapshot) store.Snapshot
}

// Stats counts fetch outcomes.
type Stats struct {
	Issued    uint64
	Applied   uint64
	Discarded uint64
	Failed    uint64
	InFlight  int
	Pending   bool
}

type Option func(*Engine)

func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine is not safe for concurrent use. Trigger, Refresh and Stats must be
// called from the goroutine that runs the closures handed to post; fetch
// results come back through post as well.
type Engine struct {
	fetcher Fetcher
	store   Replacer
	post    func(func())
	timeout time.Duration
	logger  *zap.Logger
	ctx     context.Context

	issued    uint64
	applied   uint64
	discarded uint64
	failed    uint64
	inFlight  int
	pending   bool

	onError []func(error)
}

func New(ctx context.Context, fetcher Fetcher, st Replacer, post func(func()), opts ...Option) *Engine {
	if ctx == nil {
		ctx = context.Background()
	}
	e := &Engine{
		fetcher: fetcher,
		store:   st,
		post:    post,
		timeout: DefaultFetchTimeout,
		logger:  zap.NewNop(),
		ctx:     ctx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnError registers a callback for failed fetches.
func (e *Engine) OnError(cb func(error)) {
	if cb != nil {
		e.onError = append(e.onError, cb)
	}
}

// Trigger handles a push notification. While a fetch is in flight it only
// marks one follow-up fetch; any number of triggers collapse into it.
func (e *Engine) Trigger() {
	if e.inFlight > 0 {
		if !e.pending {
			e.logger.Debug("sync_trigger_coalesced", zap.Uint64("in_flight_seq", e.issued))
		}
		e.pending = true
		return
	}
	e.start("push")
}

// Refresh issues a fetch now, regardless of fetches already in flight.
func (e *Engine) Refresh() {
	e.start("refresh")
}

func (e *Engine) Stats() Stats {
	return Stats{
		Issued:    e.issued,
		Applied:   e.applied,
		Discarded: e.discarded,
		Failed:    e.failed,
		InFlight:  e.inFlight,
		Pending:   e.pending,
	}
}

func (e *Engine) start(reason string) {
	e.issued++
	seq := e.issued
	e.inFlight++
	e.logger.Debug("sync_fetch_start", zap.Uint64("seq", seq), zap.String("reason", reason))

	go func() {
		ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
		snap, err := e.fetcher.FetchStatus(ctx)
		cancel()
		e.post(func() { e.complete(seq, snap, err) })
	}()
}

func (e *Engine) complete(seq uint64, snap board.StatusSnapshot, err error) {
	e.inFlight--
	switch {
	case err != nil:
		e.failed++
		e.logger.Warn("sync_fetch_failed", zap.Uint64("seq", seq), zap.Error(err))
		for _, cb := range e.onError {
			cb(err)
		}
	case seq != e.issued:
		e.discarded++
		e.logger.Info("sync_fetch_stale", zap.Uint64("seq", seq), zap.Uint64("latest", e.issued))
	default:
		e.applied++
		st := e.store.Replace(snap)
		e.logger.Debug("sync_state_replaced",
			zap.Uint64("seq", seq),
			zap.Uint64("version", st.Version),
			zap.String("turn", string(snap.State.Turn)),
			zap.Int("moves", len(snap.Moves)),
		)
	}
	if e.inFlight == 0 && e.pending {
		e.pending = false
		e.start("coalesced")
	}
}

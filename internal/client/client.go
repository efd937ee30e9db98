// Package client binds the store, the sync engine, the selection machine
// and the push channel together on one event loop.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/park285/cheese-board-client/internal/adapter/snapshot"
	"github.com/park285/cheese-board-client/internal/board"
	"github.com/park285/cheese-board-client/internal/push"
	"github.com/park285/cheese-board-client/internal/render"
	"github.com/park285/cheese-board-client/internal/selection"
	"github.com/park285/cheese-board-client/internal/statesync"
	"github.com/park285/cheese-board-client/internal/store"
	"github.com/park285/cheese-board-client/pkg/boarddto"
	"go.uber.org/zap"
)

// API is the subset of the server routes the client drives.
type API interface {
	Status(ctx context.Context) (*boarddto.Status, error)
	SubmitMove(ctx context.Context, index int) error
	Reset(ctx context.Context) error
	Config(ctx context.Context, parts ...string) error
}

// Frame is everything a front end needs to draw one update.
type Frame struct {
	View      render.View
	Selection selection.Selection
	Push      push.State
	Sync      statesync.Stats
	Err       error
}

type Options struct {
	FetchTimeout   time.Duration
	RequestTimeout time.Duration
	InboxSize      int
	Logger         *zap.Logger
}

type Client struct {
	api      API
	notifier push.Notifier
	logger   *zap.Logger
	reqTO    time.Duration

	loop    *Loop
	store   *store.Store
	engine  *statesync.Engine
	machine *selection.Machine

	ctx    context.Context
	cancel context.CancelFunc

	// loop-owned
	pushState     push.State
	connectedOnce bool
	lastErr       error
	prompter      selection.Prompter
	frameCbs      []func(Frame)

	frameM sync.RWMutex
	frame  Frame
}

func New(api API, notifier push.Notifier, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = push.Nop{}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		api:       api,
		notifier:  notifier,
		logger:    logger,
		reqTO:     opts.RequestTimeout,
		loop:      NewLoop(opts.InboxSize, logger),
		store:     store.New(),
		ctx:       ctx,
		cancel:    cancel,
		pushState: push.StateDisconnected,
	}
	c.engine = statesync.New(ctx, snapshot.Fetcher{API: api}, c.store, c.post,
		statesync.WithFetchTimeout(opts.FetchTimeout),
		statesync.WithLogger(logger.Named("sync")),
	)
	c.machine = selection.NewMachine(c.store, selection.SubmitterFunc(c.submit), promptBridge{c}, logger.Named("selection"))

	c.store.Subscribe(func(store.Snapshot) {
		c.lastErr = nil
		c.machine.Invalidate()
		c.publish()
	})
	c.machine.OnChange(func(selection.Selection) { c.publish() })
	c.engine.OnError(func(err error) {
		c.lastErr = err
		c.publish()
	})

	notifier.OnEvent(func([]byte) { c.post(c.engine.Trigger) })
	notifier.OnStateChange(func(s push.State) { c.post(func() { c.pushChanged(s) }) })
	c.frame = c.buildFrame()
	return c
}

func (c *Client) post(f func()) { c.loop.Post(f) }

// SetPrompter installs the promotion prompt. Call before Run.
func (c *Client) SetPrompter(p selection.Prompter) { c.prompter = p }

// OnFrame registers a callback invoked on the loop goroutine after every
// change. Call before Run.
func (c *Client) OnFrame(cb func(Frame)) {
	if cb != nil {
		c.frameCbs = append(c.frameCbs, cb)
	}
}

// Frame returns the latest published frame; safe from any goroutine.
func (c *Client) Frame() Frame {
	c.frameM.RLock()
	defer c.frameM.RUnlock()
	return c.frame
}

// Run connects the push channel, issues the first fetch and serves the loop
// until ctx ends.
func (c *Client) Run(ctx context.Context) error {
	defer c.cancel()
	go func() {
		if err := c.notifier.Connect(ctx); err != nil {
			c.logger.Warn("push_connect_failed", zap.Error(err))
		}
	}()
	c.post(c.engine.Refresh)

	err := c.loop.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if cerr := c.notifier.Close(closeCtx); cerr != nil {
		c.logger.Warn("push_close_failed", zap.Error(cerr))
	}
	return err
}

func (c *Client) Click(sq board.Square) {
	c.post(func() { c.machine.Click(sq) })
}

func (c *Client) ResolvePromotion(token uint64, answer string, ok bool) {
	c.post(func() { c.machine.ResolvePromotion(token, answer, ok) })
}

func (c *Client) Refresh() {
	c.post(c.engine.Refresh)
}

// Reset asks the server to start a new game. The push channel brings the
// new state; a refresh follows in case it is off.
func (c *Client) Reset() {
	c.admin("reset", func(ctx context.Context) error { return c.api.Reset(ctx) })
}

func (c *Client) Configure(parts ...string) {
	c.admin("config", func(ctx context.Context) error { return c.api.Config(ctx, parts...) })
}

func (c *Client) admin(name string, call func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.reqTO)
		err := call(ctx)
		cancel()
		c.post(func() {
			if err != nil {
				c.logger.Warn("admin_request_failed", zap.String("action", name), zap.Error(err))
				c.lastErr = err
				c.publish()
			}
			c.engine.Trigger()
		})
	}()
}

func (c *Client) submit(index int) {
	go func() {
		ctx, cancel := context.WithTimeout(c.ctx, c.reqTO)
		err := c.api.SubmitMove(ctx, index)
		cancel()
		c.post(func() {
			if err != nil {
				c.logger.Warn("move_submit_failed", zap.Int("index", index), zap.Error(err))
				c.lastErr = err
				c.publish()
			} else {
				c.logger.Debug("move_submitted", zap.Int("index", index))
			}
			c.engine.Trigger()
		})
	}()
}

func (c *Client) pushChanged(s push.State) {
	prev := c.pushState
	c.pushState = s
	if s == push.StateConnected && prev != push.StateConnected {
		if c.connectedOnce {
			c.logger.Info("push_reconnected")
			c.engine.Refresh()
		}
		c.connectedOnce = true
	}
	c.publish()
}

func (c *Client) buildFrame() Frame {
	snap, ok := c.store.Snapshot()
	sel := c.machine.Selection()
	return Frame{
		View:      render.Project(snap, ok, sel),
		Selection: sel,
		Push:      c.pushState,
		Sync:      c.engine.Stats(),
		Err:       c.lastErr,
	}
}

func (c *Client) publish() {
	f := c.buildFrame()
	c.frameM.Lock()
	c.frame = f
	c.frameM.Unlock()
	for _, cb := range c.frameCbs {
		cb(f)
	}
}

// promptBridge forwards the machine's prompt calls to the installed
// prompter, if any. Without one a promotion can only be cancelled.
type promptBridge struct{ c *Client }

func (b promptBridge) Ask(token uint64) {
	if b.c.prompter == nil {
		b.c.logger.Warn("promotion_prompt_unavailable")
		b.c.post(func() { b.c.machine.ResolvePromotion(token, "", false) })
		return
	}
	b.c.prompter.Ask(token)
}

func (b promptBridge) Dismiss() {
	if b.c.prompter != nil {
		b.c.prompter.Dismiss()
	}
}

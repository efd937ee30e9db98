package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/park285/cheese-board-client/internal/adapter/snapshot"
	"github.com/park285/cheese-board-client/internal/board"
	"github.com/park285/cheese-board-client/internal/clientbuilder"
	"github.com/park285/cheese-board-client/internal/config"
	"github.com/park285/cheese-board-client/internal/msgcat"
	"github.com/park285/cheese-board-client/internal/obslog"
	"github.com/park285/cheese-board-client/internal/push"
	"github.com/park285/cheese-board-client/internal/render"
	"github.com/park285/cheese-board-client/internal/selection"
	"github.com/park285/cheese-board-client/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type options struct {
	png      string
	listen   time.Duration
	reset    bool
	config   string
	announce string
	timeout  time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.png, "png", "", "write the board as a PNG to this path")
	flag.DurationVar(&opts.listen, "listen", 0, "wait this long for push notifications")
	flag.BoolVar(&opts.reset, "reset", false, "reset the game before reading it")
	flag.StringVar(&opts.config, "config", "", "send a config change, e.g. a/b")
	flag.StringVar(&opts.announce, "announce", "", "publish this payload on the redis channel")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	if err := obslog.InitFromEnv(obslog.ForCLI); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	if err := run(opts, logger); err != nil {
		logger.Error("boardcheck_failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(opts options, logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}
	api := clientbuilder.NewAPI(cfg)

	if opts.reset {
		if err := withTimeout(opts.timeout, api.Reset); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		fmt.Println(cat.Text("check.admin_ok", map[string]any{"Action": "reset"}))
	}
	if opts.config != "" {
		parts := strings.Split(strings.Trim(opts.config, "/"), "/")
		err := withTimeout(opts.timeout, func(ctx context.Context) error { return api.Config(ctx, parts...) })
		if err != nil {
			return fmt.Errorf("config %s: %w", opts.config, err)
		}
		fmt.Println(cat.Text("check.admin_ok", map[string]any{"Action": "config " + opts.config}))
	}

	var st board.StatusSnapshot
	err = withTimeout(opts.timeout, func(ctx context.Context) error {
		var ferr error
		st, ferr = snapshot.Fetcher{API: api}.FetchStatus(ctx)
		return ferr
	})
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	s := store.New()
	snap := s.Replace(st)
	view := render.Project(snap, true, selection.Selection{})
	printStatus(cat, cfg.ServerURL, snap, view)

	if opts.png != "" {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		data, err := render.PNG(ctx, view)
		cancel()
		if err != nil {
			return fmt.Errorf("render png: %w", err)
		}
		if err := os.WriteFile(opts.png, data, 0o644); err != nil {
			return fmt.Errorf("write png: %w", err)
		}
		fmt.Println(cat.Text("check.png_written", map[string]any{"Path": opts.png, "Bytes": len(data)}))
	}

	if opts.announce != "" {
		if err := announce(cfg, opts); err != nil {
			return err
		}
		logger.Info("announced", zap.String("channel", cfg.PushChannel))
	}

	if opts.listen > 0 {
		return listen(cfg, cat, opts.listen, logger)
	}
	return nil
}

func printStatus(cat *msgcat.Catalog, server string, snap store.Snapshot, view render.View) {
	fmt.Println(cat.Text("check.header", map[string]any{"Server": server, "Version": snap.Version, "Moves": len(snap.Moves)}))
	fmt.Print(view.Text())
	fmt.Println(cat.Text("check.fen", map[string]any{"FEN": snap.State.FEN()}))
	if len(snap.Moves) == 0 {
		return
	}
	fmt.Println(cat.Text("check.moves_title", nil))
	for i, m := range snap.Moves {
		fmt.Println(cat.Text("check.move_line", map[string]any{"Index": i, "Move": board.Describe(m, snap.State.Turn)}))
	}
}

func announce(cfg *config.AppConfig, opts options) error {
	if cfg.RedisURL == "" {
		return fmt.Errorf("announce: REDIS_URL is required")
	}
	ropt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("announce: parse redis url: %w", err)
	}
	rdb := redis.NewClient(ropt)
	defer rdb.Close()
	return withTimeout(opts.timeout, func(ctx context.Context) error {
		return push.Announce(ctx, rdb, cfg.PushChannel, opts.announce)
	})
}

func listen(cfg *config.AppConfig, cat *msgcat.Catalog, wait time.Duration, logger *zap.Logger) error {
	pcfg, err := clientbuilder.PushConfig(cfg)
	if err != nil {
		return err
	}
	// one connection attempt is enough for a probe
	pcfg.MaxReconnectAttempts = 0
	n, err := push.New(pcfg, logger.Named("push"))
	if err != nil {
		return err
	}

	var count atomic.Int64
	n.OnEvent(func(payload []byte) {
		count.Add(1)
		fmt.Println(cat.Text("check.push_event", map[string]any{"Payload": string(payload)}))
	})
	n.OnStateChange(func(s push.State) {
		fmt.Println(cat.Text("check.push_state", map[string]any{"State": s}))
	})

	fmt.Println(cat.Text("check.push_waiting", map[string]any{"Wait": wait, "Mode": cfg.PushMode}))
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	if err := n.Connect(ctx); err != nil {
		return fmt.Errorf("push connect: %w", err)
	}
	<-ctx.Done()

	closeCtx, ccancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer ccancel()
	_ = n.Close(closeCtx)
	fmt.Println(cat.Text("check.push_done", map[string]any{"Count": count.Load()}))
	return nil
}

func withTimeout(d time.Duration, f func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return f(ctx)
}

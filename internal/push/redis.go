package push

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

var errSubscriptionClosed = errors.New("redis subscription closed")

// DefaultChannel is the pub/sub channel the server publishes changes on.
const DefaultChannel = "board:changed"

// Redis subscribes to a pub/sub channel; each published message is one
// notification.
type Redis struct {
	*stream
	rdb       *redis.Client
	channel   string
	ownClient bool
}

func NewRedis(rdb *redis.Client, channel string, opts ...Option) *Redis {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	r := &Redis{rdb: rdb, channel: channel}
	r.stream = newStream("redis", r.dial, o)
	return r
}

func (r *Redis) Channel() string { return r.channel }

func (r *Redis) dial(ctx context.Context) (session, error) {
	ps := r.rdb.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	return &redisSession{ps: ps}, nil
}

// Close also closes the client when the notifier created it.
func (r *Redis) Close(ctx context.Context) error {
	err := r.stream.Close(ctx)
	if r.ownClient {
		if cerr := r.rdb.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Announce publishes a change notification; used by tools that drive a
// server-less setup and by tests.
func Announce(ctx context.Context, rdb *redis.Client, channel, payload string) error {
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}
	return rdb.Publish(ctx, channel, payload).Err()
}

type redisSession struct {
	ps *redis.PubSub
}

func (s *redisSession) run(ctx context.Context, emit func([]byte)) error {
	ch := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errSubscriptionClosed
			}
			emit([]byte(msg.Payload))
		}
	}
}

func (s *redisSession) close() error {
	return s.ps.Close()
}

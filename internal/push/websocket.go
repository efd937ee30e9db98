package push

import (
	"context"
	"errors"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var errPingFailed = errors.New("websocket ping failed")

// subscribeFrame is sent once after the handshake.
type subscribeFrame struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId,omitempty"`
}

// WebSocket treats every inbound frame as a notification.
type WebSocket struct {
	*stream
	url      string
	clientID string
}

func NewWebSocket(url, clientID string, opts ...Option) *WebSocket {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	ws := &WebSocket{url: url, clientID: clientID}
	ws.stream = newStream("ws", ws.dial, o)
	return ws
}

func (ws *WebSocket) dial(ctx context.Context) (session, error) {
	conn, _, err := websocket.Dial(ctx, ws.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      buildHeaders(ws.opts.headers),
	})
	if err != nil {
		return nil, err
	}
	if err := wsjson.Write(ctx, conn, subscribeFrame{Type: "subscribe", ClientID: ws.clientID}); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return nil, err
	}
	return &wsSession{conn: conn, pingInterval: ws.opts.pingInterval}, nil
}

type wsSession struct {
	conn         *websocket.Conn
	pingInterval time.Duration
}

func (s *wsSession) run(ctx context.Context, emit func([]byte)) error {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go s.pingLoop(runCtx, cancel)

	for {
		_, data, err := s.conn.Read(runCtx)
		if err != nil {
			if cause := context.Cause(runCtx); cause != nil {
				return cause
			}
			return err
		}
		emit(data)
	}
}

// pingLoop gives up after two consecutive failures.
func (s *wsSession) pingLoop(ctx context.Context, cancel context.CancelCauseFunc) {
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, pcancel := context.WithTimeout(ctx, 3*time.Second)
			err := s.conn.Ping(pctx)
			pcancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				cancel(errPingFailed)
				return
			}
		}
	}
}

func (s *wsSession) close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "close")
}

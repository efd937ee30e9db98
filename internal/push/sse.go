package push

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var errStreamEnded = errors.New("event stream ended")

// SSE reads a text/event-stream endpoint. Every dispatched event, with or
// without data, is delivered as one notification.
type SSE struct {
	*stream
	url string
}

func NewSSE(url string, opts ...Option) *SSE {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		// no overall timeout: the response body stays open
		o.httpClient = &http.Client{}
	}
	s := &SSE{url: url}
	s.stream = newStream("sse", s.dial, o)
	return s
}

func (s *SSE) dial(ctx context.Context) (session, error) {
	// The body outlives ctx, so the request runs on its own context and ctx
	// only bounds the handshake.
	reqCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.url, nil)
	if err != nil {
		stop()
		cancel()
		return nil, err
	}
	req.Header = buildHeaders(s.opts.headers)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.opts.httpClient.Do(req)
	if !stop() {
		if err == nil {
			_ = resp.Body.Close()
		}
		cancel()
		return nil, fmt.Errorf("sse handshake: %w", ctx.Err())
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("sse handshake: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("sse handshake: status=%d", resp.StatusCode)
	}
	return &sseSession{body: resp.Body, cancel: cancel}, nil
}

type sseSession struct {
	body   io.ReadCloser
	cancel context.CancelFunc
}

func (s *sseSession) run(ctx context.Context, emit func([]byte)) error {
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	var (
		data    []string
		pending bool
	)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if pending {
				emit([]byte(strings.Join(data, "\n")))
			}
			data, pending = data[:0], false
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			data = append(data, value)
			pending = true
		case "event":
			pending = true
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errStreamEnded
}

func (s *sseSession) close() error {
	s.cancel()
	return s.body.Close()
}

package sse

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/google/uuid"
)

// connectTimeout bounds dialing, the TLS handshake, and waiting for response
// headers. An established stream has no read timeout; providers prove
// liveness with keep-alive records instead.
const connectTimeout = 10 * time.Second

// httpClient is shared across all streams so connections are reused.
// Compression is negotiated manually because some providers gzip or brotli
// event streams, which the framer must see decoded.
var httpClient = &http.Client{
	Transport: &http.Transport{
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: connectTimeout,
		IdleConnTimeout:       90 * time.Second,
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
	},
}

// Request is one outbound streaming exchange: a POST of Body to URL with the
// given headers.
type Request struct {
	URL    string
	Header http.Header
	Body   []byte
}

// ConnectionError reports a transport-level failure: DNS, TLS, timeout, or an
// HTTP error status. It is delivered at most once per stream, as the terminal
// item.
type ConnectionError struct {
	StatusCode int // non-zero when the server answered with an error status
	Err        error
}

func (e *ConnectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("connection failed: http status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Client owns one streaming exchange. A background goroutine performs the
// request, runs the body through a Framer, and forwards records to the
// consumer; Recv polls them in arrival order. Close tears the goroutine down
// and releases the connection.
type Client struct {
	id     string
	logger *slog.Logger
	cancel context.CancelFunc
	queue  *recordQueue
}

// Open submits the request and returns immediately; connection establishment
// happens in the background, so even a failure to reach the server arrives
// through Recv as the terminal error. A nil logger falls back to
// slog.Default(). Cancelling ctx has the same effect as Close.
func Open(ctx context.Context, req Request, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Client{
		id:     uuid.NewString(),
		logger: logger,
		cancel: cancel,
		queue:  newRecordQueue(),
	}

	go c.run(ctx, req)

	return c
}

// Recv returns the next record, the stream's single terminal error, or io.EOF
// once the stream has ended. It blocks while no record is queued.
func (c *Client) Recv() (Event, error) {
	return c.queue.pop()
}

// Close cancels the background task and discards any undelivered records.
func (c *Client) Close() error {
	c.cancel()
	c.queue.close()
	return nil
}

func (c *Client) run(ctx context.Context, req Request) {
	c.logger.Debug("opening sse stream", "stream", c.id, "url", req.URL)

	if err := c.receive(ctx, req); err != nil {
		if ctx.Err() != nil {
			// Shutdown was requested; the consumer is gone.
			c.queue.finish()
			return
		}
		c.logger.Debug("sse stream failed", "stream", c.id, "error", err)
		c.queue.fail(err)
		return
	}

	c.logger.Debug("sse stream ended", "stream", c.id)
	c.queue.finish()
}

func (c *Client) receive(ctx context.Context, req Request) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return &ConnectionError{Err: err}
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &ConnectionError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", bytes.TrimSpace(snippet)),
		}
	}

	body, err := decompressReader(resp)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	if closer, ok := body.(io.Closer); ok {
		defer closer.Close()
	}

	framer := &Framer{}
	buf := make([]byte, 32*1024)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			events, frameErr := framer.Feed(buf[:n])
			for _, ev := range events {
				c.queue.push(ev)
			}
			if frameErr != nil {
				return frameErr
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return &ConnectionError{Err: readErr}
		}
	}
}

func decompressReader(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

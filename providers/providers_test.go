package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Davincible/llmstream/sse"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource feeds decoders a scripted record sequence without a transport.
type fakeSource struct {
	events []sse.Event
	err    error
	closed bool
}

func (f *fakeSource) Recv() (sse.Event, error) {
	if len(f.events) == 0 {
		if f.err != nil {
			err := f.err
			f.err = nil
			return sse.Event{}, err
		}
		return sse.Event{}, io.EOF
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev, nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func event(typ, data string) sse.Event {
	return sse.Event{Type: typ, Data: json.RawMessage(data)}
}

// capturedRequest records what a provider put on the wire.
type capturedRequest struct {
	mu     sync.Mutex
	header http.Header
	body   []byte
}

func (c *capturedRequest) Header() http.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.header
}

func (c *capturedRequest) Body() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.body
}

// captureServer records the incoming request and answers with the given SSE
// blocks.
func captureServer(t *testing.T, blocks ...string) (*httptest.Server, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured.mu.Lock()
		captured.header = r.Header.Clone()
		captured.body = body
		captured.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		for _, block := range blocks {
			fmt.Fprint(w, block)
		}
	}))
	t.Cleanup(srv.Close)

	return srv, captured
}

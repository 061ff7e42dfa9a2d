package sse

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseHandler(t *testing.T, blocks ...string) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		for _, block := range blocks {
			fmt.Fprint(w, block)
			flusher.Flush()
		}
	}
}

func TestClient_DeliversRecordsInOrder(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t,
		"event: ping\ndata: {\"type\":\"ping\"}\n\n",
		"event: one\ndata: {\"n\":1}\n\n",
		// A block split across two writes must still frame correctly.
		"event: two\ndata: {\"n\"",
		":2}\n\n",
	))
	defer srv.Close()

	c := Open(context.Background(), Request{URL: srv.URL, Body: []byte(`{}`)}, nil)
	defer c.Close()

	ev, err := c.Recv()
	require.NoError(t, err)
	assert.Equal(t, "ping", ev.Type)

	ev, err = c.Recv()
	require.NoError(t, err)
	assert.Equal(t, "one", ev.Type)
	assert.JSONEq(t, `{"n":1}`, string(ev.Data))

	ev, err = c.Recv()
	require.NoError(t, err)
	assert.Equal(t, "two", ev.Type)
	assert.JSONEq(t, `{"n":2}`, string(ev.Data))

	_, err = c.Recv()
	assert.ErrorIs(t, err, io.EOF)

	// The stream stays ended.
	_, err = c.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestClient_SendsRequest(t *testing.T) {
	var (
		gotBody   []byte
		gotHeader string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Get("X-Api-Key")
		fmt.Fprint(w, "data: {\"ok\":true}\n\n")
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("x-api-key", "secret")

	c := Open(context.Background(), Request{URL: srv.URL, Header: header, Body: []byte(`{"model":"m"}`)}, nil)
	defer c.Close()

	_, err := c.Recv()
	require.NoError(t, err)
	assert.Equal(t, `{"model":"m"}`, string(gotBody))
	assert.Equal(t, "secret", gotHeader)
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such model"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := Open(context.Background(), Request{URL: srv.URL}, nil)
	defer c.Close()

	_, err := c.Recv()
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, http.StatusNotFound, connErr.StatusCode)
	assert.Contains(t, connErr.Error(), "no such model")

	_, err = c.Recv()
	assert.ErrorIs(t, err, io.EOF, "terminal error is delivered exactly once")
}

func TestClient_UnreachableServer(t *testing.T) {
	// Grab a port that is immediately closed again.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := Open(context.Background(), Request{URL: url}, nil)
	defer c.Close()

	_, err := c.Recv()
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Zero(t, connErr.StatusCode)
}

func TestClient_FramingErrorIsTerminal(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t,
		"data: {\"ok\":1}\n\n",
		"data: not json\n\n",
		"data: {\"never\":\"delivered\"}\n\n",
	))
	defer srv.Close()

	c := Open(context.Background(), Request{URL: srv.URL}, nil)
	defer c.Close()

	_, err := c.Recv()
	require.NoError(t, err)

	_, err = c.Recv()
	var framingErr *FramingError
	require.ErrorAs(t, err, &framingErr)

	_, err = c.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestClient_CloseStopsBackgroundTask(t *testing.T) {
	handlerDone := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(handlerDone)
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"n\":1}\n\n")
		flusher.Flush()
		// Stall until the client tears the connection down.
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := Open(context.Background(), Request{URL: srv.URL}, nil)

	_, err := c.Recv()
	require.NoError(t, err)

	require.NoError(t, c.Close())

	_, err = c.Recv()
	assert.ErrorIs(t, err, io.EOF, "Recv must not hang after Close")

	select {
	case <-handlerDone:
	case <-time.After(5 * time.Second):
		t.Fatal("background task did not release the connection")
	}
}

func TestClient_ContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"n\":1}\n\n")
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := Open(ctx, Request{URL: srv.URL}, nil)
	defer c.Close()

	_, err := c.Recv()
	require.NoError(t, err)

	cancel()

	_, err = c.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestClient_GzipBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		fmt.Fprint(gz, "event: ping\ndata: {}\n\n")
		require.NoError(t, gz.Close())
	}))
	defer srv.Close()

	c := Open(context.Background(), Request{URL: srv.URL}, nil)
	defer c.Close()

	ev, err := c.Recv()
	require.NoError(t, err)
	assert.Equal(t, "ping", ev.Type)
}

func TestClient_BrotliBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		fmt.Fprint(bw, "event: ping\ndata: {}\n\n")
		require.NoError(t, bw.Close())
	}))
	defer srv.Close()

	c := Open(context.Background(), Request{URL: srv.URL}, nil)
	defer c.Close()

	ev, err := c.Recv()
	require.NoError(t, err)
	assert.Equal(t, "ping", ev.Type)
}

// Package sse reassembles server-sent-event streams: a pure byte-level framer
// that turns arbitrarily split chunks into discrete records, and a client that
// owns one streaming HTTP exchange and delivers those records through an
// unbounded in-process queue.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TypeDone is the synthetic event type for the non-JSON "[DONE]" sentinel
// some OpenAI-compatible providers send before closing the connection.
const TypeDone = "done"

// Event is one fully reconstructed record from the wire framing, before any
// provider-specific interpretation. Type is empty for records whose block
// carried no "event:" field.
type Event struct {
	Type string
	Data json.RawMessage
}

// FramingError reports a structurally malformed SSE block.
type FramingError struct {
	Msg   string
	Block []byte
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("malformed sse block: %s", e.Msg)
}

// Framer accumulates raw bytes and splits out blank-line-terminated blocks,
// regardless of where reads happen to cut the stream. It holds no transport
// knowledge and is not safe for concurrent use.
type Framer struct {
	buf []byte
}

// Feed appends a chunk and returns every record it completed. Bytes after the
// last delimiter stay buffered for the next call. A malformed block stops
// parsing and is returned as a *FramingError together with the records that
// preceded it.
func (f *Framer) Feed(chunk []byte) ([]Event, error) {
	f.buf = append(f.buf, chunk...)

	var events []Event
	for {
		i, delim := nextDelimiter(f.buf)
		if i < 0 {
			return events, nil
		}
		block := f.buf[:i]
		f.buf = f.buf[i+delim:]

		ev, err := parseBlock(block)
		if err != nil {
			return events, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
}

// nextDelimiter finds the earliest blank line, LF or CRLF flavored, and
// returns its offset and byte length.
func nextDelimiter(buf []byte) (int, int) {
	i := bytes.Index(buf, []byte("\n\n"))
	j := bytes.Index(buf, []byte("\r\n\r\n"))
	switch {
	case j >= 0 && (i < 0 || j < i):
		return j, 4
	case i >= 0:
		return i, 2
	default:
		return -1, 0
	}
}

// parseBlock interprets one blank-line-delimited block. It returns nil for
// blocks holding only comments or blank lines (keep-alive noise some
// providers emit between records).
func parseBlock(block []byte) (*Event, error) {
	var (
		eventType string
		dataLines [][]byte
		sawData   bool
	)

	for _, line := range bytes.Split(block, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		switch {
		case len(line) == 0:
		case line[0] == ':':
			// Comment line, e.g. ": OPENROUTER PROCESSING".
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(trimFieldValue(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			sawData = true
			dataLines = append(dataLines, trimFieldValue(line[len("data:"):]))
		default:
			// Unrecognized fields (id:, retry:, ...) are skipped.
		}
	}

	if !sawData {
		if eventType == "" {
			return nil, nil
		}
		return nil, &FramingError{
			Msg:   fmt.Sprintf("event %q has no data field", eventType),
			Block: append([]byte(nil), block...),
		}
	}

	payload := bytes.Join(dataLines, []byte("\n"))
	if bytes.Equal(payload, []byte("[DONE]")) {
		return &Event{Type: TypeDone}, nil
	}
	if !json.Valid(payload) {
		return nil, &FramingError{
			Msg:   "data is not valid JSON",
			Block: append([]byte(nil), block...),
		}
	}

	return &Event{
		Type: eventType,
		Data: json.RawMessage(append([]byte(nil), payload...)),
	}, nil
}

func trimFieldValue(v []byte) []byte {
	if len(v) > 0 && v[0] == ' ' {
		v = v[1:]
	}
	return v
}

package llmstream

import (
	"errors"
	"io"
)

// Stream is a lazily-polled sequence of canonical chunks. Recv returns the
// next chunk, io.EOF once the stream has ended cleanly, or exactly one
// terminal error after which the stream is over. Close releases the
// underlying connection; it is safe to call more than once.
type Stream interface {
	Recv() (Chunk, error)
	Close() error
}

// Collect drains a stream and folds it with the chunk merge law, so a run of
// text deltas comes back as one Token and a piecewise tool call as one
// ToolCall. On a stream error the chunks received so far are returned
// alongside it.
func Collect(s Stream) ([]Chunk, error) {
	defer s.Close()

	var chunks []Chunk
	for {
		c, err := s.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Merge(chunks), nil
			}
			return Merge(chunks), err
		}
		chunks = append(chunks, c)
	}
}

// Text drains a stream and returns its plain response text, discarding
// thinking and tool-call chunks.
func Text(s Stream) (string, error) {
	chunks, err := Collect(s)
	if err != nil {
		return "", err
	}
	var out string
	for _, c := range chunks {
		if t, ok := c.(Token); ok {
			out += string(t)
		}
	}
	return out, nil
}

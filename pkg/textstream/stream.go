// Package textstream provides a pull-based stream of text chunks.
//
// The relay service hands a Stream to the transport layer, which writes each
// chunk as it arrives. A non-streaming upstream produces a Stream of exactly one
// chunk; a streaming upstream can produce any number without the transport
// changing.
package textstream

import (
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrClosed indicates Next was called after Close.
var ErrClosed = errors.New("textstream: stream closed")

// Stream uses a pull-based iterator pattern. Next returns io.EOF after the
// final chunk. Close releases resources and may be called at any time.
type Stream interface {
	Next() (string, error)
	Close() error
}

// Once returns a Stream that yields text as a single chunk and then io.EOF.
func Once(text string) Stream {
	return FromChunks(text)
}

// FromChunks returns a Stream that yields each chunk in order.
func FromChunks(chunks ...string) Stream {
	return &sliceStream{chunks: chunks}
}

type sliceStream struct {
	mu     sync.Mutex
	chunks []string
	pos    int
	closed bool
}

func (s *sliceStream) Next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *sliceStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Tee returns a Stream that forwards src and, once src reaches io.EOF,
// calls onComplete with the concatenated text. onComplete is not called
// when src fails or is closed early.
func Tee(src Stream, onComplete func(full string)) Stream {
	return &teeStream{src: src, onComplete: onComplete}
}

type teeStream struct {
	src        Stream
	onComplete func(string)
	buf        strings.Builder
	done       bool
}

func (t *teeStream) Next() (string, error) {
	chunk, err := t.src.Next()
	if err == io.EOF {
		if !t.done && t.onComplete != nil {
			t.done = true
			t.onComplete(t.buf.String())
		}
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	t.buf.WriteString(chunk)
	return chunk, nil
}

func (t *teeStream) Close() error {
	return t.src.Close()
}

// ReadAll drains s and returns the concatenated chunks.
func ReadAll(s Stream) (string, error) {
	var b strings.Builder
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), err
		}
		b.WriteString(chunk)
	}
}

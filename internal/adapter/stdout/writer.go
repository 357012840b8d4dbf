// Package stdout writes CoT events to a stream, one XML document per line.
package stdout

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/couchcryptid/sfpd-cad-cot/internal/domain"
)

// Writer implements pipeline.Sink over an io.Writer.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (s *Writer) Submit(ctx context.Context, event domain.OutputEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "%s\n", event.Payload); err != nil {
		return fmt.Errorf("write %s: %w", event.UID, err)
	}
	return nil
}

func (s *Writer) Close() error { return nil }

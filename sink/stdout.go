package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/inqwatch/inquiry"
)

// Stdout writes JSON-lines envelopes to an io.Writer (default os.Stdout).
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) SendInquiry(_ context.Context, d *inquiry.Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(newEnvelope(TypeInquiry, d))
}

func (s *Stdout) SendPageChange(_ context.Context, pc PageChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(newEnvelope(TypePageChange, pc))
}

func (s *Stdout) Close() error { return nil }

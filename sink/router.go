package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/inqwatch/inquiry"
)

// Router fans out events to all configured sinks. One sink error does
// not block the others; errors are logged and the first encountered is
// returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) SendInquiry(ctx context.Context, d *inquiry.Data) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.SendInquiry(ctx, d); err != nil {
			r.logger.Warn("sink: send inquiry failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) SendPageChange(ctx context.Context, pc PageChange) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.SendPageChange(ctx, pc); err != nil {
			r.logger.Warn("sink: send page change failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

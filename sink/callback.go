package sink

import (
	"context"

	"github.com/hazyhaar/inqwatch/inquiry"
)

// InquiryFunc is called for each extracted inquiry (in-process, zero
// serialisation).
type InquiryFunc func(ctx context.Context, d *inquiry.Data) error

// PageChangeFunc is called for each page change.
type PageChangeFunc func(ctx context.Context, pc PageChange) error

// Callback delivers events via Go function calls. When the consumer
// lives in the same binary as the driver, events arrive as in-memory
// function calls with no serialisation overhead.
type Callback struct {
	onInquiry    InquiryFunc
	onPageChange PageChangeFunc
}

// NewCallback creates a Callback sink. Either handler may be nil.
func NewCallback(onInquiry InquiryFunc, onPageChange PageChangeFunc) *Callback {
	return &Callback{onInquiry: onInquiry, onPageChange: onPageChange}
}

func (c *Callback) SendInquiry(ctx context.Context, d *inquiry.Data) error {
	if c.onInquiry != nil {
		return c.onInquiry(ctx, d)
	}
	return nil
}

func (c *Callback) SendPageChange(ctx context.Context, pc PageChange) error {
	if c.onPageChange != nil {
		return c.onPageChange(ctx, pc)
	}
	return nil
}

func (c *Callback) Close() error { return nil }

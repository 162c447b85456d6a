// Package sink defines output backends for extracted inquiries and page
// change notifications. Implementations deliver envelopes to different
// backends (stdout, webhook, SQLite history, in-process callback).
package sink

import (
	"context"
	"time"

	"github.com/hazyhaar/inqwatch/idgen"
	"github.com/hazyhaar/inqwatch/inquiry"
)

// Envelope types on the wire.
const (
	TypeInquiry    = "INQUIRY_DATA"
	TypePageChange = "PAGE_CHANGED"
)

// PageChange notifies consumers that the observed tab moved to a new URL.
// Consumers treat it as a reset signal: any pending draft or context tied
// to the previous inquiry is stale.
type PageChange struct {
	URL      string    `json:"url"`
	Previous string    `json:"previous,omitempty"`
	At       time.Time `json:"at"`
}

// Sink is the output interface.
type Sink interface {
	SendInquiry(ctx context.Context, d *inquiry.Data) error
	SendPageChange(ctx context.Context, pc PageChange) error
	Close() error
}

// Envelope is the wire format shared by all serialising sinks. ID is a
// UUIDv7, so envelope IDs sort in emission order.
type Envelope struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Data any    `json:"data"`
}

func newEnvelope(typ string, data any) Envelope {
	return Envelope{Type: typ, ID: idgen.New(), Data: data}
}

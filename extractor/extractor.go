// Package extractor defines the per-platform scraping contract and the
// registry that selects an implementation for a URL. Adding a platform means
// registering another implementation; nothing else changes.
package extractor

import (
	"context"

	"github.com/hazyhaar/inqwatch/inquiry"
	"github.com/hazyhaar/inqwatch/textsource"
)

// Filler writes text into a page input. The implementation must use the
// prototype-level native value setter before dispatching synthetic input and
// change events, then focus the element and move the caret to the end.
// Framework-controlled inputs silently ignore plain value assignment.
// The live implementation is internal/browser.Session.
type Filler interface {
	Fill(ctx context.Context, selectors []string, content string) (bool, error)
}

// Extractor is the per-platform scraping contract.
//
// Extract swallows all internal failures: it returns nil rather than a
// partial record or an error. FillReply returns false when no reply input
// could be located. InquiryID is a pure URL computation with no DOM access,
// cheap to call on every navigation check.
type Extractor interface {
	Platform() inquiry.Platform
	Match(pageURL string) bool
	InquiryID(pageURL string) (string, bool)
	Extract(ctx context.Context, doc *textsource.Document, pageURL string) *inquiry.Data
	FillReply(ctx context.Context, f Filler, content string) bool

	// ShadowMarker is the presence substring that qualifies shadow-root
	// text for collection on this platform.
	ShadowMarker() string
}

// Registry selects the extractor owning a URL by linear scan, first match
// wins. A nil result means no platform owns the page.
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a Registry over the given extractors, in match order.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// ForURL returns the first extractor matching the URL, or nil.
func (r *Registry) ForURL(pageURL string) Extractor {
	for _, e := range r.extractors {
		if e.Match(pageURL) {
			return e
		}
	}
	return nil
}

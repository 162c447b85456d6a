// Package textsource gathers the readable text regions of a captured page
// into an ordered list of candidate blobs: the main document first, then
// same-origin frame documents above a minimum length, then shadow-root text
// carrying a platform presence marker. The conversation may render inside any
// of these nested contexts; a naive single-document read would miss it.
package textsource

import (
	"strings"

	"golang.org/x/net/html"
)

// Kind identifies where a text blob came from.
type Kind string

const (
	KindDocument Kind = "document"
	KindFrame    Kind = "frame"
	KindShadow   Kind = "shadow"
)

// Source is one candidate text blob.
type Source struct {
	Kind Kind
	Text string
}

// Document is a captured rendering snapshot: the main document plus the
// nested contexts the capture layer could reach. Cross-origin frames are
// absent by construction; access failures are swallowed at capture time.
type Document struct {
	Root        *html.Node
	Frames      []*html.Node
	ShadowTexts []string
}

// Options tunes collection.
type Options struct {
	// MinFrameTextLen drops frame documents whose visible text is shorter,
	// in bytes. Default: 50.
	MinFrameTextLen int
	// ShadowMarker keeps only shadow-root text containing this substring
	// (typically the customer honorific). Empty keeps nothing.
	ShadowMarker string
}

func (o *Options) defaults() {
	if o.MinFrameTextLen <= 0 {
		o.MinFrameTextLen = 50
	}
}

// New parses the main document and any same-origin frame documents.
// Frame HTML that fails to parse is skipped, not an error.
func New(mainHTML string, frameHTML []string, shadowTexts []string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(mainHTML))
	if err != nil {
		return nil, err
	}
	d := &Document{Root: root, ShadowTexts: shadowTexts}
	for _, fh := range frameHTML {
		fr, err := html.Parse(strings.NewReader(fh))
		if err != nil {
			continue
		}
		d.Frames = append(d.Frames, fr)
	}
	return d, nil
}

// Collect returns the ordered candidate blobs. The only ordering guarantee
// beyond "document first" is the capture order of frames and shadow roots.
func (d *Document) Collect(opts Options) []Source {
	opts.defaults()

	var out []Source
	if d.Root != nil {
		if text := Text(d.Root); text != "" {
			out = append(out, Source{Kind: KindDocument, Text: text})
		}
	}
	for _, fr := range d.Frames {
		text := Text(fr)
		if len(text) >= opts.MinFrameTextLen {
			out = append(out, Source{Kind: KindFrame, Text: text})
		}
	}
	if opts.ShadowMarker != "" {
		for _, st := range d.ShadowTexts {
			if strings.Contains(st, opts.ShadowMarker) {
				out = append(out, Source{Kind: KindShadow, Text: st})
			}
		}
	}
	return out
}

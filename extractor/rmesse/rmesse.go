// Package rmesse extracts customer inquiries from the Rakuten R-Messe
// seller console. R-Messe is a React SPA with no stable element ids; every
// heuristic here keys off the literal landmarks in markers.go.
package rmesse

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hazyhaar/inqwatch/chatlog"
	"github.com/hazyhaar/inqwatch/extractor"
	"github.com/hazyhaar/inqwatch/htmlmd"
	"github.com/hazyhaar/inqwatch/inquiry"
	"github.com/hazyhaar/inqwatch/textsource"
	"golang.org/x/net/html"
)

// maxMarkdownLen caps the chat-region markdown carried on a record.
const maxMarkdownLen = 4000

// Extractor implements the R-Messe platform contract.
type Extractor struct {
	logger *slog.Logger
	md     *htmlmd.Converter
}

// Option configures the Extractor.
type Option func(*Extractor)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New creates the R-Messe extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		logger: slog.Default(),
		md:     htmlmd.New(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Platform implements extractor.Extractor.
func (e *Extractor) Platform() inquiry.Platform { return inquiry.PlatformRakuten }

// Match reports whether the URL belongs to the R-Messe console.
func (e *Extractor) Match(pageURL string) bool {
	return strings.Contains(pageURL, markers.host)
}

// InquiryID derives the stable conversation id from the URL path. Pure, no
// DOM access.
func (e *Extractor) InquiryID(pageURL string) (string, bool) {
	m := markers.inquiryPath.FindStringSubmatch(pageURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ShadowMarker implements extractor.Extractor.
func (e *Extractor) ShadowMarker() string { return markers.honorific }

// Extract recovers an inquiry snapshot from a captured document. It returns
// nil when the URL carries no inquiry id or when anything unexpected breaks
// mid-pass, never a partial record and never a panic across the boundary.
func (e *Extractor) Extract(ctx context.Context, doc *textsource.Document, pageURL string) (data *inquiry.Data) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("rmesse: extraction panic", "url", pageURL, "panic", r)
			data = nil
		}
	}()

	id, ok := e.InquiryID(pageURL)
	if !ok || doc == nil {
		return nil
	}

	sources := doc.Collect(textsource.Options{ShadowMarker: markers.honorific})
	if len(sources) == 0 {
		return nil
	}
	pageText := sources[0].Text

	// Thread: first source whose chat section parses into messages wins.
	var thread []inquiry.ThreadMessage
	var section string
	for _, src := range sources {
		s, ok := chatlog.Locate(src.Text, markers.chat)
		if !ok {
			continue
		}
		if msgs := chatlog.ParseThread(s, markers.threadRules); len(msgs) > 0 {
			thread, section = msgs, s
			break
		}
		if section == "" {
			section = s
		}
	}

	content := inquiry.ContentFromThread(thread)
	if content == "" {
		// Legacy single-block path: fixed content containers, then the
		// located section text itself.
		if legacy, ok := legacyContent(doc.Root); ok {
			content = legacy
		} else {
			content = section
		}
	}

	data = &inquiry.Data{
		Platform:     e.Platform(),
		InquiryID:    id,
		CustomerName: e.customerName(doc, pageText),
		Content:      content,
		Thread:       thread,
		Fulfillment:  fulfillmentStatus(pageText),
	}

	if v, ok := categoryFromCard(e.cardText(doc, pageText)); ok {
		data.Category = v
	}
	if v, ok := receivedTimeFromCard(e.cardText(doc, pageText)); ok {
		data.ReceivedTime = v
	}
	if v, ok := orderNumber(doc.Root, pageText); ok {
		data.OrderNumber = v
	}
	if node := textsource.FindMarkerNode(doc.Root, markers.chat.Start); node != nil {
		// The marker node is usually the heading itself; its parent is the
		// chat region.
		if node.Parent != nil && node.Parent.Type == html.ElementNode {
			node = node.Parent
		}
		data.ContentMarkdown = htmlmd.Truncate(e.md.Convert(textsource.Render(node)), maxMarkdownLen)
	}

	return data
}

// FillReply delegates to the page filler with this platform's selector
// priority list.
func (e *Extractor) FillReply(ctx context.Context, f extractor.Filler, content string) bool {
	ok, err := f.Fill(ctx, markers.replySelectors, content)
	if err != nil {
		e.logger.Warn("rmesse: fill reply failed", "error", err)
		return false
	}
	return ok
}

func (e *Extractor) customerName(doc *textsource.Document, pageText string) string {
	if name, ok := customerNameFromPanel(doc.Root); ok {
		return name
	}
	if name, ok := customerNameFromCard(e.cardText(doc, pageText)); ok {
		return name
	}
	return inquiry.CustomerNameUnknown
}

// cardText is the customer side-panel subtree text when the panel heading
// exists, else the whole page text.
func (e *Extractor) cardText(doc *textsource.Document, pageText string) string {
	heading := findExactText(doc.Root, markers.panelTitle)
	if heading == nil || heading.Parent == nil {
		return pageText
	}
	panel := heading.Parent
	for depth := 0; panel.Parent != nil && depth < panelWalkDepth; depth++ {
		text := textsource.Text(panel)
		if containsAny(text, markers.panelContext) {
			return text
		}
		panel = panel.Parent
	}
	return textsource.Text(panel)
}

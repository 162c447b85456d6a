// Package htmlmd converts captured page-region HTML into markdown suitable
// for LLM context blocks and history rows. Input is sanitised first: the
// captured HTML comes from an uncontrolled page and may carry scripts,
// event handlers, or tracking markup.
package htmlmd

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// Converter sanitises and converts HTML fragments to markdown.
// Safe for concurrent use.
type Converter struct {
	policy *bluemonday.Policy
	conv   *converter.Converter
}

// New creates a Converter with the UGC sanitisation policy and the
// commonmark + table plugin set.
func New() *Converter {
	return &Converter{
		policy: bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Convert sanitises fragment and renders it as markdown. Returns "" for
// empty input or on conversion failure; callers treat markdown as a
// best-effort enrichment, never a mandatory field.
func (c *Converter) Convert(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	clean := c.policy.Sanitize(fragment)
	md, err := c.conv.ConvertString(clean)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(md)
}

// Truncate shortens md to at most max runes, appending an ellipsis when cut.
func Truncate(md string, max int) string {
	if max <= 0 {
		return md
	}
	runes := []rune(md)
	if len(runes) <= max {
		return md
	}
	return string(runes[:max]) + "…"
}

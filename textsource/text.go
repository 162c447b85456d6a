package textsource

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
	regexp.MustCompile(`(?i)font-size\s*:\s*0[^1-9]`),
	regexp.MustCompile(`(?i)opacity\s*:\s*0[^.]`),
}

func hasHiddenStyle(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "style" {
			for _, pat := range hiddenStylePatterns {
				if pat.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

// blockTags are elements that terminate a visual line. The thread parser is
// line-oriented, so the walker must reproduce the browser's innerText line
// structure, not a space-joined token soup.
var blockTags = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true,
	atom.Blockquote: true, atom.Div: true, atom.Dl: true, atom.Dd: true,
	atom.Dt: true, atom.Fieldset: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Header: true, atom.Hr: true,
	atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true,
	atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
}

// Text extracts the visible text of a subtree, one line per rendered block.
// Script, style, noscript, template and inline-hidden subtrees are skipped.
func Text(root *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	pendingSpace := false

	newline := func() {
		pendingSpace = false
		s := b.String()
		if len(s) > 0 && !strings.HasSuffix(s, "\n") {
			b.WriteByte('\n')
		}
	}

	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			t := strings.Join(strings.Fields(n.Data), " ")
			if t == "" {
				return
			}
			atLineStart := b.Len() == 0 || strings.HasSuffix(b.String(), "\n")
			hadLeading := len(n.Data) > 0 && isSpace(n.Data[0])
			if !atLineStart && (pendingSpace || hadLeading) {
				b.WriteByte(' ')
			}
			b.WriteString(t)
			pendingSpace = isSpace(n.Data[len(n.Data)-1])
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			case atom.Br:
				newline()
				return
			}
			if hasHiddenStyle(n) {
				return
			}
		}

		block := n.Type == html.ElementNode && blockTags[n.DataAtom]
		if block {
			newline()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			newline()
		}
	}
	walk(root)

	return strings.TrimSpace(b.String())
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// FindMarkerNode returns the smallest element whose visible text contains
// marker, or nil. Used to recover the DOM subtree behind a located text
// region (e.g. for markdown rendering of the chat area).
func FindMarkerNode(root *html.Node, marker string) *html.Node {
	if root == nil || marker == "" {
		return nil
	}
	var best *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		if n.Type == html.ElementNode && strings.Contains(Text(n), marker) {
			best = n // children may shrink it further
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return best
}

// Render serialises a subtree back to HTML. Returns "" on failure.
func Render(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

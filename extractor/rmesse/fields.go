package rmesse

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/inqwatch/inquiry"
	"github.com/hazyhaar/inqwatch/textsource"
)

// Field heuristics. Each is independent and degrades to ("", false); the
// composing extractor decides which fields are mandatory.

// panelWalkDepth bounds the upward walk from the panel heading.
const panelWalkDepth = 6

// customerNameFromPanel finds the heading whose exact text is the panel
// title, walks up to the ancestor panel containing a postal-code or
// order-detail marker, and returns the line preceding the account-type
// label inside that panel's text.
func customerNameFromPanel(root *html.Node) (string, bool) {
	heading := findExactText(root, markers.panelTitle)
	if heading == nil {
		return "", false
	}

	panel := heading.Parent
	for depth := 0; panel != nil && depth < panelWalkDepth; depth++ {
		text := textsource.Text(panel)
		if containsAny(text, markers.panelContext) {
			if name, ok := nameBeforeAccountLabel(text); ok {
				return name, true
			}
		}
		panel = panel.Parent
	}
	return "", false
}

func nameBeforeAccountLabel(panelText string) (string, bool) {
	lines := strings.Split(panelText, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if !isAccountLabel(line) || i == 0 {
			continue
		}
		prev := strings.TrimSpace(lines[i-1])
		if prev == "" || prev == markers.panelTitle {
			continue
		}
		return strings.TrimSpace(strings.TrimSuffix(prev, markers.honorific)), true
	}
	return "", false
}

func isAccountLabel(line string) bool {
	for _, l := range markers.accountLabels {
		if line == l {
			return true
		}
	}
	return false
}

// customerNameFromCard regex-matches "name + honorific" against the sidebar
// card text (the panel subtree when present, else the full page text).
func customerNameFromCard(cardText string) (string, bool) {
	m := markers.cardName.FindStringSubmatch(cardText)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if name == "" || name == markers.panelTitle {
		return "", false
	}
	return name, true
}

func categoryFromCard(cardText string) (string, bool) {
	return firstGroup(markers.category, cardText)
}

func receivedTimeFromCard(cardText string) (string, bool) {
	return firstGroup(markers.received, cardText)
}

// orderNumber tries anchor elements whose visible text matches the strict
// order-number shape, then the labeled form anywhere in the page text.
func orderNumber(root *html.Node, pageText string) (string, bool) {
	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if t := strings.TrimSpace(textsource.Text(n)); markers.orderAnchor.MatchString(t) {
				found = t
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	if found != "" {
		return found, true
	}
	return firstGroup(markers.orderLabeled, pageText)
}

// fulfillmentStatus matches the page text against the phrase groups, most
// specific first. Absence of every phrase is unknown, never a guess.
func fulfillmentStatus(pageText string) inquiry.FulfillmentStatus {
	for _, g := range markers.statusGroups {
		for _, p := range g.phrases {
			if strings.Contains(pageText, p) {
				return g.status
			}
		}
	}
	return inquiry.FulfillmentUnknown
}

// legacyContent reads the old fixed content containers, the fallback when
// no chat section can be located.
func legacyContent(root *html.Node) (string, bool) {
	for _, class := range markers.contentClasses {
		if n := findByClass(root, class); n != nil {
			if t := textsource.Text(n); t != "" {
				return t, true
			}
		}
	}
	return "", false
}

// ---------- DOM helpers ----------

func findExactText(root *html.Node, want string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && textsource.Text(n) == want {
			switch n.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
				atom.Div, atom.Span, atom.Legend, atom.Dt:
				found = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return found
}

func findByClass(root *html.Node, class string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "class" {
					for _, c := range strings.Fields(a.Val) {
						if c == class {
							found = n
							return
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return found
}

func firstGroup(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func containsAny(text string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// Package chatlog recovers ordered conversation threads from the raw page
// text of a seller console. The conversation render region has no stable
// container, but is reliably delimited by recurring literal phrases, so the
// locator and parser operate on landmark tables supplied per platform;
// platform drift is a data edit, not a logic change.
package chatlog

import (
	"regexp"
	"strings"

	"github.com/hazyhaar/inqwatch/inquiry"
)

// Markers delimit the chat section inside one text blob.
type Markers struct {
	// Start is the start-of-chat landmark phrase.
	Start string
	// End is the end-of-chat (compose box) landmark phrase.
	End string
	// EndAlt is tried when End is missing. Empty means no secondary marker.
	EndAlt string
	// FallbackStart locates the section head when Start is absent,
	// typically a timestamp-plus-honorific pattern. May be nil.
	FallbackStart *regexp.Regexp
}

// Locate returns the substring strictly between the start and end landmarks.
// The start is found by the literal marker first, then by FallbackStart.
// A missing end marker falls back to EndAlt, then to end-of-string.
// Returns ("", false) when no start can be found.
func Locate(text string, m Markers) (string, bool) {
	begin := -1
	if m.Start != "" {
		if idx := strings.Index(text, m.Start); idx >= 0 {
			begin = idx + len(m.Start)
		}
	}
	if begin < 0 && m.FallbackStart != nil {
		if loc := m.FallbackStart.FindStringIndex(text); loc != nil {
			begin = loc[0]
		}
	}
	if begin < 0 {
		return "", false
	}

	end := len(text)
	if m.End != "" {
		if idx := strings.Index(text[begin:], m.End); idx >= 0 {
			end = begin + idx
		} else if m.EndAlt != "" {
			if idx := strings.Index(text[begin:], m.EndAlt); idx >= 0 {
				end = begin + idx
			}
		}
	}

	return strings.TrimSpace(text[begin:end]), true
}

// ParseRules drive the thread parser. All heuristics are table data.
type ParseRules struct {
	// Timestamp matches a line that starts a new message. The first capture
	// group (or the whole match) becomes the message time label.
	Timestamp *regexp.Regexp
	// CustomerSuffix is the honorific that marks a sender-name line as the
	// customer (e.g. "様"). Compared against the trimmed name line.
	CustomerSuffix string
	// MaxMessages caps the output to the most recent N messages.
	// Zero means inquiry.MaxThreadMessages.
	MaxMessages int
}

// ParseThread scans a chat-section string into role-tagged messages.
//
// A timestamp line opens a new message, provisionally tagged staff. The line
// immediately following it is the sender name: ending with CustomerSuffix
// reclassifies the message as customer. Every other line appends to the
// current body. A message is flushed only when its body is non-empty.
func ParseThread(section string, rules ParseRules) []inquiry.ThreadMessage {
	maxN := rules.MaxMessages
	if maxN <= 0 {
		maxN = inquiry.MaxThreadMessages
	}

	var out []inquiry.ThreadMessage
	var cur *inquiry.ThreadMessage
	var body []string
	expectName := false

	flush := func() {
		if cur == nil {
			return
		}
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text != "" {
			cur.Text = text
			out = append(out, *cur)
		}
		cur = nil
		body = body[:0]
	}

	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)

		if rules.Timestamp != nil {
			if match := rules.Timestamp.FindStringSubmatch(line); match != nil {
				flush()
				ts := match[0]
				if len(match) > 1 && match[1] != "" {
					ts = match[1]
				}
				cur = &inquiry.ThreadMessage{Role: inquiry.RoleStaff, Time: ts}
				expectName = true
				continue
			}
		}

		if expectName {
			// The sender name is the next non-empty line; rendered chat
			// regions often carry blank lines after the timestamp.
			if line == "" {
				continue
			}
			expectName = false
			if cur != nil && rules.CustomerSuffix != "" &&
				strings.HasSuffix(line, rules.CustomerSuffix) {
				cur.Role = inquiry.RoleCustomer
			}
			continue
		}

		if cur == nil {
			// Text before the first timestamp belongs to no message.
			continue
		}
		if line != "" {
			body = append(body, line)
		}
	}
	flush()

	if len(out) > maxN {
		out = out[len(out)-maxN:]
	}
	return out
}

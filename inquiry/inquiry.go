// Package inquiry defines the structured types emitted by inqwatch.
// These are the public API contract: any consumer (sinks, the control API,
// MCP clients) imports this package to receive and process inquiry records.
package inquiry

import "strings"

// Platform identifies a supported seller console.
type Platform string

const (
	PlatformRakuten Platform = "rakuten"
	PlatformMercari Platform = "mercari"
	PlatformAmazon  Platform = "amazon"
)

// Role classifies the sender of one thread message. Assignment is a parse-time
// decision and is never revised within a single extraction pass.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleSystem   Role = "system"
)

// FulfillmentStatus is the coarse shipping state of the order referenced by
// an inquiry. Never inferred from absence of information.
type FulfillmentStatus string

const (
	FulfillmentNotShipped FulfillmentStatus = "not_shipped"
	FulfillmentShipping   FulfillmentStatus = "shipping"
	FulfillmentDelivered  FulfillmentStatus = "delivered"
	FulfillmentUnknown    FulfillmentStatus = "unknown"
)

// CustomerNameUnknown is the sentinel used when no name heuristic succeeds.
const CustomerNameUnknown = "不明"

// MaxThreadMessages caps the thread at the most recent N turns.
const MaxThreadMessages = 20

// ThreadMessage is one turn in the conversation, chronological as discovered
// in the DOM.
type ThreadMessage struct {
	Role Role   `json:"role"`
	Time string `json:"time,omitempty"`
	Text string `json:"text"`
}

// Data is one snapshot of a customer inquiry as currently visible on the
// page. A nil *Data signals "no extractable inquiry", never a partial record:
// InquiryID is non-empty whenever a value exists.
type Data struct {
	Platform     Platform `json:"platform"`
	InquiryID    string   `json:"inquiry_id"`
	CustomerName string   `json:"customer_name"`

	// Optional fields are empty strings when the heuristic found nothing;
	// omitted from JSON rather than published as "".
	Category     string `json:"category,omitempty"`
	OrderNumber  string `json:"order_number,omitempty"`
	ReceivedTime string `json:"received_time,omitempty"`

	// Content is the legacy single-block representation of the customer's
	// message(s). Derived from Thread when the thread parse succeeds.
	Content string `json:"inquiry_content"`

	// ContentMarkdown is a sanitized markdown rendition of the chat region,
	// when the region's DOM subtree could be located. Used for LLM context.
	ContentMarkdown string `json:"content_markdown,omitempty"`

	Thread []ThreadMessage `json:"thread,omitempty"`

	Fulfillment FulfillmentStatus `json:"fulfillment_status"`
}

// ContentFromThread joins the customer turns of a thread into the legacy
// single-block content representation. Returns "" for an empty thread.
func ContentFromThread(thread []ThreadMessage) string {
	var parts []string
	for _, m := range thread {
		if m.Role == RoleCustomer && m.Text != "" {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

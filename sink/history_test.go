package sink

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/inqwatch/dbopen"
)

func historyForTest(t *testing.T) *History {
	t.Helper()
	h, err := NewHistory(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestHistory_AppendAndRecent(t *testing.T) {
	h := historyForTest(t)
	ctx := context.Background()

	if err := h.SendInquiry(ctx, sampleInquiry()); err != nil {
		t.Fatal(err)
	}
	if err := h.SendPageChange(ctx, PageChange{URL: "https://example.com/next", At: time.Now()}); err != nil {
		t.Fatal(err)
	}

	events, err := h.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("events: %d", len(events))
	}
	// UUIDv7 IDs sort in emission order, newest first here.
	if events[0].Type != TypePageChange || events[1].Type != TypeInquiry {
		t.Errorf("order: %s, %s", events[0].Type, events[1].Type)
	}
	if events[1].InquiryID != "100234" {
		t.Errorf("inquiry_id column: %q", events[1].InquiryID)
	}
	if events[0].URL != "https://example.com/next" {
		t.Errorf("url column: %q", events[0].URL)
	}
}

func TestHistory_RecentFiltersByInquiry(t *testing.T) {
	h := historyForTest(t)
	ctx := context.Background()

	a := sampleInquiry()
	b := sampleInquiry()
	b.InquiryID = "999888"
	if err := h.SendInquiry(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := h.SendInquiry(ctx, b); err != nil {
		t.Fatal(err)
	}

	events, err := h.Recent(ctx, "999888", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].InquiryID != "999888" {
		t.Fatalf("filter: %+v", events)
	}
}

func TestHistory_Prune(t *testing.T) {
	h := historyForTest(t)
	ctx := context.Background()

	if err := h.SendInquiry(ctx, sampleInquiry()); err != nil {
		t.Fatal(err)
	}

	// Negative retention places the cutoff in the future, so everything
	// is older than it.
	n, err := h.Prune(ctx, -time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}

	events, err := h.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("events remain: %d", len(events))
	}
}

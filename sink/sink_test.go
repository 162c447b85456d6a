package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/inqwatch/inquiry"
)

func sampleInquiry() *inquiry.Data {
	return &inquiry.Data{
		Platform:     inquiry.PlatformRakuten,
		InquiryID:    "100234",
		CustomerName: "田中太郎",
		Content:      "こんにちは",
	}
}

func TestStdout_EnvelopePerLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	ctx := context.Background()

	if err := s.SendInquiry(ctx, sampleInquiry()); err != nil {
		t.Fatal(err)
	}
	if err := s.SendPageChange(ctx, PageChange{URL: "https://example.com/2", Previous: "https://example.com/1", At: time.Now()}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", len(lines))
	}

	var env struct {
		Type string          `json:"type"`
		ID   string          `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != TypeInquiry || env.ID == "" {
		t.Errorf("first envelope: type=%q id=%q", env.Type, env.ID)
	}
	var d inquiry.Data
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatal(err)
	}
	if d.InquiryID != "100234" {
		t.Errorf("payload inquiry id: %q", d.InquiryID)
	}

	if err := json.Unmarshal([]byte(lines[1]), &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != TypePageChange {
		t.Errorf("second envelope type: %q", env.Type)
	}
}

type failSink struct {
	inquiries int
	err       error
}

func (f *failSink) SendInquiry(context.Context, *inquiry.Data) error {
	f.inquiries++
	return f.err
}
func (f *failSink) SendPageChange(context.Context, PageChange) error { return f.err }
func (f *failSink) Close() error                                     { return f.err }

func TestRouter_FanOutContinuesOnError(t *testing.T) {
	boom := errors.New("boom")
	bad := &failSink{err: boom}
	good := &failSink{}
	r := NewRouter(nil, bad, good)

	err := r.SendInquiry(context.Background(), sampleInquiry())
	if !errors.Is(err, boom) {
		t.Fatalf("first error must surface, got %v", err)
	}
	if good.inquiries != 1 {
		t.Error("later sinks must still receive the event")
	}
}

func TestRouter_Empty(t *testing.T) {
	r := NewRouter(nil)
	if err := r.SendInquiry(context.Background(), sampleInquiry()); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCallback(t *testing.T) {
	var got *inquiry.Data
	c := NewCallback(func(_ context.Context, d *inquiry.Data) error {
		got = d
		return nil
	}, nil)

	if err := c.SendInquiry(context.Background(), sampleInquiry()); err != nil {
		t.Fatal(err)
	}
	if got == nil || got.InquiryID != "100234" {
		t.Errorf("callback payload: %+v", got)
	}
	// nil page-change handler is a no-op, not a panic
	if err := c.SendPageChange(context.Background(), PageChange{}); err != nil {
		t.Fatal(err)
	}
}

func TestWebhook_Delivers(t *testing.T) {
	var body atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Errorf("decode: %v", err)
		}
		body.Store(env.Type)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := w.SendInquiry(context.Background(), sampleInquiry()); err != nil {
		t.Fatal(err)
	}
	if body.Load() != TypeInquiry {
		t.Errorf("delivered type: %v", body.Load())
	}
}

func TestWebhook_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := w.SendInquiry(context.Background(), sampleInquiry()); err != nil {
		t.Fatalf("should succeed on third attempt: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestWebhook_ExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookRetries(1), WithWebhookBackoff(time.Millisecond))
	err := w.SendInquiry(context.Background(), sampleInquiry())
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Errorf("error should carry last status: %v", err)
	}
}

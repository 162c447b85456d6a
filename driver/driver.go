// Package driver orchestrates the observation loop: it watches a live
// browser session for navigation, binds the platform extractor owning the
// current URL, schedules extraction bursts, and publishes deduplicated
// inquiry records and page changes to sinks. It also carries the draft
// fill gate for reply automation.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/inqwatch/draft"
	"github.com/hazyhaar/inqwatch/extractor"
	"github.com/hazyhaar/inqwatch/inquiry"
	"github.com/hazyhaar/inqwatch/sink"
	"github.com/hazyhaar/inqwatch/textsource"
)

// ErrNoPlatform is returned when no extractor owns the current page.
var ErrNoPlatform = errors.New("driver: no extractor bound for current page")

// Session abstracts the live browser tab. The production implementation
// is internal/browser.Session; tests substitute a fake.
//
// NavigationEvents carries URLs signalled by the injected history patch.
// MutationEvents fires once per debounced DOM mutation batch. Both
// channels close when the session ends. Fill satisfies extractor.Filler.
type Session interface {
	URL(ctx context.Context) (string, error)
	Snapshot(ctx context.Context) (*textsource.Document, error)
	Fill(ctx context.Context, selectors []string, content string) (bool, error)
	NavigationEvents() <-chan string
	MutationEvents() <-chan struct{}
}

// Config tunes the observation loop.
type Config struct {
	// PollInterval is the URL poll cadence. The poll is the safety net
	// behind the two event-driven detectors. Default: 1s.
	PollInterval time.Duration
	// BurstDelays schedules extraction attempts after a page change,
	// relative to the change. Default: immediate, +500ms, +2s.
	BurstDelays []time.Duration
	// Gate holds the draft fill thresholds.
	Gate draft.GateConfig
}

func (c *Config) defaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if len(c.BurstDelays) == 0 {
		c.BurstDelays = []time.Duration{0, 500 * time.Millisecond, 2 * time.Second}
	}
}

// Driver is the top-level orchestrator. Create one per observed tab.
type Driver struct {
	cfg      Config
	session  Session
	registry *extractor.Registry
	sinks    sink.Sink
	logger   *slog.Logger

	mu      sync.Mutex
	url     string
	ext     extractor.Extractor
	last    string // fingerprint of the last published inquiry
	current *inquiry.Data
	epoch   uint64 // bumped on every URL change; stale bursts check it
	wg      sync.WaitGroup
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// New creates a Driver observing session and publishing to snk.
func New(cfg Config, session Session, registry *extractor.Registry, snk sink.Sink, opts ...Option) *Driver {
	cfg.defaults()
	d := &Driver{
		cfg:      cfg,
		session:  session,
		registry: registry,
		sinks:    snk,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run drives the observation loop until ctx is cancelled. Three detectors
// feed the same URL-change handler: the injected history patch, a URL
// check on every mutation batch, and a periodic poll. The handler
// coalesces them, so redundant signals for the same URL are free.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	navCh := d.session.NavigationEvents()
	mutCh := d.session.MutationEvents()

	if u, err := d.session.URL(ctx); err == nil {
		d.handleURL(ctx, u)
	} else {
		d.logger.Warn("driver: initial url read failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			return ctx.Err()
		case u, ok := <-navCh:
			if !ok {
				navCh = nil
				continue
			}
			d.handleURL(ctx, u)
		case _, ok := <-mutCh:
			if !ok {
				mutCh = nil
				continue
			}
			d.onMutation(ctx)
		case <-ticker.C:
			u, err := d.session.URL(ctx)
			if err != nil {
				d.logger.Warn("driver: url poll failed", "error", err)
				continue
			}
			d.handleURL(ctx, u)
		}
	}
}

// handleURL processes one detector signal. A URL equal to the current one
// is a no-op; a new URL publishes a page change, rebinds the extractor,
// forgets the previous page's fingerprint, and starts an extraction burst.
// The fingerprint reset happens before any new publication can race with
// an in-flight attempt from the previous page.
func (d *Driver) handleURL(ctx context.Context, newURL string) {
	d.mu.Lock()
	if newURL == "" || newURL == d.url {
		d.mu.Unlock()
		return
	}
	prev := d.url
	d.url = newURL
	d.ext = d.registry.ForURL(newURL)
	d.last = ""
	d.current = nil
	d.epoch++
	epoch := d.epoch
	bound := d.ext != nil
	d.mu.Unlock()

	d.logger.Info("driver: page changed", "url", newURL, "bound", bound)

	if prev != "" {
		pc := sink.PageChange{URL: newURL, Previous: prev, At: time.Now()}
		if err := d.sinks.SendPageChange(ctx, pc); err != nil {
			d.logger.Warn("driver: publish page change failed", "error", err)
		}
	}
	if bound {
		d.startBurst(ctx, epoch)
	}
}

// onMutation re-checks the URL first: a mutation batch is often the first
// observable sign of an SPA route change the history patch missed.
func (d *Driver) onMutation(ctx context.Context) {
	if u, err := d.session.URL(ctx); err == nil {
		d.handleURL(ctx, u)
	}

	d.mu.Lock()
	epoch := d.epoch
	bound := d.ext != nil
	d.mu.Unlock()
	if bound {
		d.attempt(ctx, epoch)
	}
}

// startBurst runs the scheduled extraction attempts for one page epoch.
// Publication dedup makes extra attempts free; the burst exists because a
// console SPA keeps rendering well after the route settles.
func (d *Driver) startBurst(ctx context.Context, epoch uint64) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, delay := range d.cfg.BurstDelays {
			if delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}
			}
			if !d.epochCurrent(epoch) {
				return
			}
			d.attempt(ctx, epoch)
		}
	}()
}

func (d *Driver) epochCurrent(epoch uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.epoch == epoch
}

// attempt snapshots the page, extracts, and publishes if the record
// differs from the last published one. Attempts started before a URL
// change are discarded by the epoch check, even when their snapshot
// completed after the change.
func (d *Driver) attempt(ctx context.Context, epoch uint64) {
	d.mu.Lock()
	ext, url := d.ext, d.url
	d.mu.Unlock()
	if ext == nil {
		return
	}

	doc, err := d.session.Snapshot(ctx)
	if err != nil {
		d.logger.Warn("driver: snapshot failed", "error", err)
		return
	}
	data := ext.Extract(ctx, doc, url)
	if data == nil {
		return
	}
	d.publish(ctx, epoch, data)
}

func (d *Driver) publish(ctx context.Context, epoch uint64, data *inquiry.Data) {
	fp := inquiry.Fingerprint(data)

	d.mu.Lock()
	if d.epoch != epoch || fp == d.last {
		d.mu.Unlock()
		return
	}
	d.last = fp
	d.current = data
	d.mu.Unlock()

	d.logger.Info("driver: inquiry extracted",
		"inquiry_id", data.InquiryID, "platform", data.Platform)
	if err := d.sinks.SendInquiry(ctx, data); err != nil {
		d.logger.Warn("driver: publish inquiry failed", "error", err)
	}
}

// ExtractOnce performs an immediate extraction on demand and schedules
// the same retry burst a page change would. It publishes through the
// same dedup path as the loop and returns the extracted record, which
// is nil when the page carries no inquiry.
func (d *Driver) ExtractOnce(ctx context.Context) (*inquiry.Data, error) {
	if u, err := d.session.URL(ctx); err == nil {
		d.handleURL(ctx, u)
	}

	d.mu.Lock()
	ext, url, epoch := d.ext, d.url, d.epoch
	d.mu.Unlock()
	if ext == nil {
		return nil, ErrNoPlatform
	}

	doc, err := d.session.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("driver: snapshot: %w", err)
	}
	data := ext.Extract(ctx, doc, url)
	if data != nil {
		d.publish(ctx, epoch, data)
	}
	// A request can land mid-render. Schedule the delayed attempts too;
	// dedup makes the extras free.
	d.startBurst(ctx, epoch)
	return data, nil
}

// Current returns the last published inquiry, or nil.
func (d *Driver) Current() *inquiry.Data {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Status describes the driver's binding state.
type Status struct {
	URL      string           `json:"url"`
	Bound    bool             `json:"bound"`
	Platform inquiry.Platform `json:"platform,omitempty"`
}

// CurrentStatus reports the observed URL and extractor binding.
func (d *Driver) CurrentStatus() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Status{URL: d.url, Bound: d.ext != nil}
	if d.ext != nil {
		s.Platform = d.ext.Platform()
	}
	return s
}

// FillResult reports a fill request's outcome.
type FillResult struct {
	Filled bool              `json:"filled"`
	Gated  bool              `json:"gated"`
	Reason draft.BlockReason `json:"reason,omitempty"`
}

// FillDraft writes reply content into the page. Copilot-formatted content
// goes through the fill gate: a blocked draft is never written. Plain
// content fills unconditionally.
func (d *Driver) FillDraft(ctx context.Context, content string) (FillResult, error) {
	d.mu.Lock()
	ext := d.ext
	d.mu.Unlock()
	if ext == nil {
		return FillResult{}, ErrNoPlatform
	}

	fill := content
	gated := draft.IsCopilotFormat(content)
	if gated {
		res := draft.CheckFillGate(content, d.cfg.Gate)
		if !res.CanFill {
			d.logger.Info("driver: fill blocked", "reason", res.BlockReason)
			return FillResult{Gated: true, Reason: res.BlockReason}, nil
		}
		fill = res.FillContent
	}

	ok := ext.FillReply(ctx, d.session, fill)
	if !ok {
		d.logger.Warn("driver: fill failed, no reply input found")
	}
	return FillResult{Filled: ok, Gated: gated}, nil
}

package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/inqwatch/textsource"
)

//go:embed session.js
var sessionJS string

const bindingName = "__inqwatch_binding"

// SessionConfig tunes a page session.
type SessionConfig struct {
	// MutationDebounce is the quiet window the injected observer waits
	// before signalling a mutation burst. Default: 250ms.
	MutationDebounce time.Duration

	Logger *slog.Logger
}

func (c *SessionConfig) defaults() {
	if c.MutationDebounce <= 0 {
		c.MutationDebounce = 250 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session is the live page behind driver.Session: one stealth tab on the
// seller console, with the navigation patch and mutation observer
// injected. The injected script re-arms itself on every full navigation
// via Page.addScriptToEvaluateOnNewDocument.
type Session struct {
	page   *rod.Page
	logger *slog.Logger
	cancel context.CancelFunc

	navCh chan string
	mutCh chan struct{}
}

// NewSession opens a stealth tab on mgr, navigates to startURL, and
// installs the observation hooks.
func NewSession(ctx context.Context, mgr *Manager, startURL string, cfg SessionConfig) (*Session, error) {
	cfg.defaults()

	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.BlockResources) > 0 {
		blockResources(page, mgr.cfg.BlockResources)
	}

	navCtx, cancelNav := context.WithTimeout(ctx, 30*time.Second)
	defer cancelNav()
	if err := page.Context(navCtx).Navigate(startURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", startURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		cfg.Logger.Warn("browser: wait load timeout", "url", startURL, "error", err)
	}

	sessCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		page:   page,
		logger: cfg.Logger,
		cancel: cancel,
		navCh:  make(chan string, 16),
		mutCh:  make(chan struct{}, 4),
	}

	if err := s.install(sessCtx, cfg.MutationDebounce); err != nil {
		cancel()
		page.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) install(ctx context.Context, debounce time.Duration) error {
	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(s.page); err != nil {
		return fmt.Errorf("browser: add binding: %w", err)
	}
	go s.listenBinding(ctx)

	setup := fmt.Sprintf("window.__inqwatch_debounce = %d;", debounce.Milliseconds())

	// Persist across full navigations, then arm the current document.
	if _, err := s.page.EvalOnNewDocument(setup + sessionJS); err != nil {
		return fmt.Errorf("browser: install on new document: %w", err)
	}
	if _, err := s.page.Eval(setup); err != nil {
		return fmt.Errorf("browser: set debounce: %w", err)
	}
	if _, err := s.page.Eval(sessionJS); err != nil {
		return fmt.Errorf("browser: inject session script: %w", err)
	}
	return nil
}

// listenBinding receives signals from the injected script.
func (s *Session) listenBinding(ctx context.Context) {
	s.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		var sig struct {
			Kind  string `json:"kind"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal([]byte(e.Payload), &sig); err != nil {
			s.logger.Warn("browser: parse binding payload", "error", err)
			return
		}
		switch sig.Kind {
		case "navigate":
			select {
			case s.navCh <- sig.Value:
			default:
				// Channel full: the poll detector will catch up.
			}
		case "mutation":
			select {
			case s.mutCh <- struct{}{}:
			default:
			}
		}
	})()
}

// URL returns the page's current location.
func (s *Session) URL(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => location.href`)
	if err != nil {
		return "", fmt.Errorf("browser: read url: %w", err)
	}
	return res.Value.Str(), nil
}

// Snapshot serialises the page into a textsource Document: the main
// document, every same-origin iframe, and the text of every shadow root.
// Cross-origin frames throw on access and are skipped.
func (s *Session) Snapshot(ctx context.Context) (*textsource.Document, error) {
	res, err := s.page.Context(ctx).Eval(`() => {
		const frames = [];
		for (const f of document.querySelectorAll('iframe')) {
			try {
				const d = f.contentDocument;
				if (d && d.documentElement) frames.push(d.documentElement.outerHTML);
			} catch (e) {}
		}
		const shadows = [];
		const walk = (root) => {
			for (const el of root.querySelectorAll('*')) {
				if (el.shadowRoot) {
					shadows.push(el.shadowRoot.textContent || '');
					walk(el.shadowRoot);
				}
			}
		};
		walk(document);
		return JSON.stringify({
			main: document.documentElement.outerHTML,
			frames: frames,
			shadows: shadows,
		});
	}`)
	if err != nil {
		return nil, fmt.Errorf("browser: snapshot: %w", err)
	}

	var snap struct {
		Main    string   `json:"main"`
		Frames  []string `json:"frames"`
		Shadows []string `json:"shadows"`
	}
	if err := json.Unmarshal([]byte(res.Value.Str()), &snap); err != nil {
		return nil, fmt.Errorf("browser: decode snapshot: %w", err)
	}
	return textsource.New(snap.Main, snap.Frames, snap.Shadows)
}

// Fill writes content into the first matching input using the prototype
// value setter, then dispatches input/change events, focuses the element
// and moves the caret to the end. Framework-controlled inputs ignore a
// plain value assignment.
func (s *Session) Fill(ctx context.Context, selectors []string, content string) (bool, error) {
	res, err := s.page.Context(ctx).Eval(`(selectors, content) => {
		for (const sel of selectors) {
			const el = document.querySelector(sel);
			if (!el) continue;
			const proto = el instanceof HTMLTextAreaElement
				? HTMLTextAreaElement.prototype
				: HTMLInputElement.prototype;
			const desc = Object.getOwnPropertyDescriptor(proto, 'value');
			if (desc && desc.set) {
				desc.set.call(el, content);
			} else {
				el.value = content;
			}
			el.dispatchEvent(new Event('input', { bubbles: true }));
			el.dispatchEvent(new Event('change', { bubbles: true }));
			el.focus();
			if (typeof el.setSelectionRange === 'function') {
				el.setSelectionRange(el.value.length, el.value.length);
			}
			return true;
		}
		return false;
	}`, selectors, content)
	if err != nil {
		return false, fmt.Errorf("browser: fill: %w", err)
	}
	return res.Value.Bool(), nil
}

// NavigationEvents carries URLs from the injected history patch.
func (s *Session) NavigationEvents() <-chan string { return s.navCh }

// MutationEvents fires once per debounced mutation burst.
func (s *Session) MutationEvents() <-chan struct{} { return s.mutCh }

// Close tears down the tab.
func (s *Session) Close() error {
	s.cancel()
	if s.page != nil {
		return s.page.Close()
	}
	return nil
}

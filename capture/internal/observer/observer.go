// Package observer implements per-tab DOM observation: an injected
// MutationObserver pre-filters added nodes against the platform's
// response marker and reports qualifying subtrees to Go over a CDP
// binding.
package observer

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod/lib/proto"

	"github.com/dimcortex/capture/capture/internal/browser"
)

//go:embed capture.js
var captureJS []byte

const bindingName = "__capture_binding"

// FragmentFunc receives the outer HTML of one qualifying added node.
type FragmentFunc func(fragment string)

// Observer manages the injected observer for a single tab.
type Observer struct {
	tab        *browser.Tab
	marker     string
	onFragment FragmentFunc
	logger     *slog.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

// Config for creating an Observer.
type Config struct {
	Tab *browser.Tab
	// Marker is the platform's response marker selector, evaluated
	// in-page to pre-filter mutations.
	Marker     string
	OnFragment FragmentFunc
	Logger     *slog.Logger
}

// New creates an Observer for the given tab.
func New(ctx context.Context, cfg Config) *Observer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	obsCtx, cancel := context.WithCancel(ctx)
	return &Observer{
		tab:        cfg.Tab,
		marker:     cfg.Marker,
		onFragment: cfg.OnFragment,
		logger:     cfg.Logger,
		ctx:        obsCtx,
		cancel:     cancel,
	}
}

// Start registers the binding and injects the observer script. The
// subscription lives until Stop; nothing the fragment handler does can
// tear it down.
func (o *Observer) Start() error {
	page := o.tab.Page

	err := proto.RuntimeAddBinding{Name: bindingName}.Call(page)
	if err != nil {
		o.logger.Warn("observer: addBinding failed (may already exist)", "error", err)
	}

	go o.listenBinding()

	markerJSON, _ := json.Marshal(o.marker)
	setup := fmt.Sprintf("window.__capture_marker = %s;", markerJSON)
	if _, err := page.Eval(setup); err != nil {
		o.logger.Warn("observer: set marker failed", "error", err)
	}

	if _, err := page.Eval(string(captureJS)); err != nil {
		return fmt.Errorf("observer: inject capture.js: %w", err)
	}

	o.logger.Debug("observer: injected", "url", o.tab.PageURL, "marker", o.marker)
	return nil
}

// Stop ends the binding listener. The in-page observer dies with the tab.
func (o *Observer) Stop() {
	o.cancel()
}

// listenBinding receives batches from the in-page MutationObserver.
func (o *Observer) listenBinding() {
	page := o.tab.Page
	page.Context(o.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}

		var frags []string
		if err := json.Unmarshal([]byte(e.Payload), &frags); err != nil {
			o.logger.Warn("observer: parse binding payload", "error", err)
			return
		}
		for _, frag := range frags {
			o.onFragment(frag)
		}
	})()
}

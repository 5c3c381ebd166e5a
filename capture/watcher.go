// Package capture watches live assistant pages for newly appended
// conversation content and hands extracted snapshots to the relay
// client.
//
// The watcher observes, extracts and forwards; it never interprets relay
// outcomes beyond logging them. Repeated captures of a growing response
// are expected: the mutation filter is deliberately redundant with
// already-captured content, trading bandwidth for tolerance of platforms
// that stream tokens incrementally.
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dimcortex/capture/capture/internal/browser"
	"github.com/dimcortex/capture/capture/internal/observer"
	"github.com/dimcortex/capture/control"
	"github.com/dimcortex/capture/extract"
	"github.com/dimcortex/capture/obslog"
	"github.com/dimcortex/capture/platform"
	"github.com/dimcortex/capture/relay"
	"github.com/dimcortex/capture/snapshot"
)

// Relayer forwards requests to the background context. Implemented by
// *relay.Client; faked in tests.
type Relayer interface {
	Relay(ctx context.Context, req relay.Request) <-chan relay.Result
}

// pageWatch is the page-context half for one watched tab: the mutation
// signal channel and the means to re-read the page.
type pageWatch struct {
	id      string
	tag     platform.Tag
	markers platform.Markers
	signals chan string
	// source returns the page's current address and serialised DOM.
	source func(ctx context.Context) (string, []byte, error)
	obs    *observer.Observer
	tab    *browser.Tab
}

// Watcher is the top-level page-context orchestrator. Create one per
// daemon instance.
type Watcher struct {
	cfg       *Config
	mgr       *browser.Manager
	extractor *extract.Extractor
	relayer   Relayer
	state     *State
	events    *obslog.Logger
	pages     map[string]*pageWatch
	mu        sync.Mutex
	logger    *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithEvents attaches an observability event logger.
func WithEvents(l *obslog.Logger) WatcherOption {
	return func(w *Watcher) { w.events = l }
}

// New creates a Watcher. The state object is injected so the control
// surface and the watcher share exactly one flag per instance.
func New(cfg *Config, state *State, relayer Relayer, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		cfg: cfg,
		mgr: browser.NewManager(browser.Config{
			RemoteURL: cfg.Browser.Remote,
			Stealth:   browser.ParseStealthLevel(cfg.Browser.Stealth),
			Logger:    logger,
		}),
		extractor: extract.New(),
		relayer:   relayer,
		state:     state,
		pages:     make(map[string]*pageWatch),
		logger:    logger,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Start launches the browser and begins watching all configured pages.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := w.mgr.Start(ctx); err != nil {
		return fmt.Errorf("capture: start browser: %w", err)
	}

	for _, page := range w.cfg.Pages {
		if err := w.WatchPage(ctx, page); err != nil {
			w.logger.Error("capture: failed to watch page",
				"url", page.URL, "error", err)
		}
	}
	return nil
}

// WatchPage opens a tab for one page and starts its observation loop.
// Pages on unknown platforms are rejected: there is no marker to filter
// mutations against.
func (w *Watcher) WatchPage(ctx context.Context, pageCfg PageConfig) error {
	tag := platform.Identify(pageCfg.URL)
	markers, ok := platform.MarkersFor(tag)
	if !ok {
		return fmt.Errorf("capture: unknown platform for %s", pageCfg.URL)
	}

	tab, err := browser.OpenTab(ctx, w.mgr, pageCfg.URL, pageCfg.ID)
	if err != nil {
		return fmt.Errorf("capture: open tab: %w", err)
	}

	pw := &pageWatch{
		id:      pageCfg.ID,
		tag:     tag,
		markers: markers,
		signals: make(chan string, 256),
		tab:     tab,
		source: func(ctx context.Context) (string, []byte, error) {
			url, err := tab.CurrentURL(ctx)
			if err != nil {
				url = tab.PageURL
			}
			html, err := tab.HTML(ctx)
			return url, html, err
		},
	}

	pw.obs = observer.New(ctx, observer.Config{
		Tab:        tab,
		Marker:     markers.Response,
		OnFragment: func(frag string) { pw.enqueue(frag, w.logger) },
		Logger:     w.logger,
	})
	if err := pw.obs.Start(); err != nil {
		tab.Close()
		return fmt.Errorf("capture: start observer: %w", err)
	}

	w.mu.Lock()
	w.pages[pageCfg.ID] = pw
	w.mu.Unlock()

	go w.pageLoop(ctx, pw)

	w.logger.Info("capture: watching page",
		"url", pageCfg.URL, "id", pageCfg.ID, "platform", tag)
	return nil
}

// Stop closes all observers and the browser.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, pw := range w.pages {
		if pw.obs != nil {
			pw.obs.Stop()
		}
		if pw.tab != nil {
			pw.tab.Close()
		}
		w.logger.Info("capture: stopped watching", "id", id)
	}
	w.pages = make(map[string]*pageWatch)
	w.mgr.Close()
}

// enqueue hands a mutation signal to the page loop. Signals queue while
// a batch is processed; a saturated queue drops the signal rather than
// blocking the binding listener — the next mutation re-triggers anyway.
func (pw *pageWatch) enqueue(frag string, logger *slog.Logger) {
	select {
	case pw.signals <- frag:
	default:
		logger.Warn("capture: signal queue full, dropping", "page", pw.id)
	}
}

// pageLoop is the page context's event loop: one batch runs to
// completion before the next is read.
func (w *Watcher) pageLoop(ctx context.Context, pw *pageWatch) {
	for {
		select {
		case <-ctx.Done():
			return
		case frag := <-pw.signals:
			w.processBatch(ctx, pw, frag)
		}
	}
}

// processBatch handles one mutation signal: gate on the enable flag,
// re-check the response marker, extract, relay. Any fault — including a
// panic out of extraction — is confined to this batch; the subscription
// and the loop survive it.
func (w *Watcher) processBatch(ctx context.Context, pw *pageWatch, frag string) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("capture: batch fault recovered",
				"page", pw.id, "panic", r)
		}
	}()

	if !w.state.Enabled() {
		return
	}

	if !extract.ContainsResponseMarker(pw.markers, frag) {
		return
	}

	sourceURL, raw, err := pw.source(ctx)
	if err != nil {
		w.logger.Warn("capture: read page failed", "page", pw.id, "error", err)
		return
	}

	snap, err := w.extractor.Conversation(pw.tag, sourceURL, raw, time.Now())
	if err != nil {
		w.logger.Warn("capture: extraction failed", "page", pw.id, "error", err)
		return
	}
	if snap == nil {
		w.logger.Debug("capture: no messages extracted", "page", pw.id)
		return
	}

	w.logEvent(ctx, obslog.Event{
		Kind:           obslog.KindCapture,
		Platform:       string(snap.Platform),
		ConversationID: snap.ConversationID,
		Success:        true,
	})

	reply := w.relayer.Relay(ctx, relay.Request{Kind: relay.KindCapture, Snapshot: snap})
	go w.awaitRelay(ctx, snap, reply)
}

// awaitRelay logs the relay outcome once it settles. Both outcomes are
// terminal: an error means that snapshot is lost, nothing more.
func (w *Watcher) awaitRelay(ctx context.Context, snap *snapshot.Snapshot, reply <-chan relay.Result) {
	select {
	case <-ctx.Done():
	case res := <-reply:
		if res.Status == relay.StatusOK {
			w.logger.Info("capture: snapshot relayed",
				"platform", snap.Platform, "conversation", snap.ConversationID,
				"messages", len(snap.Messages))
			w.logEvent(ctx, obslog.Event{
				Kind:           obslog.KindRelayOK,
				Platform:       string(snap.Platform),
				ConversationID: snap.ConversationID,
				Success:        true,
			})
		} else {
			w.logger.Warn("capture: relay failed, snapshot lost",
				"platform", snap.Platform, "conversation", snap.ConversationID)
			w.logEvent(ctx, obslog.Event{
				Kind:           obslog.KindRelayError,
				Platform:       string(snap.Platform),
				ConversationID: snap.ConversationID,
				Success:        false,
			})
		}
	}
}

func (w *Watcher) logEvent(ctx context.Context, e obslog.Event) {
	if w.events != nil {
		w.events.Log(ctx, e)
	}
}

// RegisterControl registers the watcher's control services on the bus.
func (w *Watcher) RegisterControl(bus *control.Bus) {
	bus.RegisterLocal(control.ServiceToggle, w.handleToggle)
	bus.RegisterLocal(control.ServiceStatus, w.handleStatus)
}

// handleToggle is the control handler for enable/disable.
// Payload: {"action":"toggle","enabled":bool} → {"status":"ok"}.
func (w *Watcher) handleToggle(ctx context.Context, payload []byte) ([]byte, error) {
	var msg struct {
		Action  string `json:"action"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("capture_toggle: unmarshal: %w", err)
	}
	if msg.Action != "toggle" {
		return nil, fmt.Errorf("capture_toggle: unknown action %q", msg.Action)
	}

	w.state.SetEnabled(msg.Enabled)
	w.logger.Info("capture: toggled", "enabled", msg.Enabled)
	w.logEvent(ctx, obslog.Event{
		Kind:    obslog.KindToggle,
		Detail:  fmt.Sprintf(`{"enabled":%t}`, msg.Enabled),
		Success: true,
	})

	return []byte(`{"status":"ok"}`), nil
}

// handleStatus reports the enable flag and the watched pages.
func (w *Watcher) handleStatus(ctx context.Context, _ []byte) ([]byte, error) {
	type pageStatus struct {
		ID       string `json:"id"`
		URL      string `json:"url"`
		Platform string `json:"platform"`
	}

	w.mu.Lock()
	pages := make([]pageStatus, 0, len(w.pages))
	for _, pw := range w.pages {
		url := ""
		if pw.tab != nil {
			url = pw.tab.PageURL
		}
		pages = append(pages, pageStatus{ID: pw.id, URL: url, Platform: string(pw.tag)})
	}
	w.mu.Unlock()

	return json.Marshal(struct {
		Enabled bool         `json:"enabled"`
		Pages   []pageStatus `json:"pages"`
	}{Enabled: w.state.Enabled(), Pages: pages})
}

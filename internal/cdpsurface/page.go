// Package cdpsurface renders panes in a browser tab driven over the Chrome
// DevTools Protocol. The tab loads the deck page, which hosts one chart per
// pane; Go pushes mutations as scripts and the page reports user interaction
// back through a runtime binding.
package cdpsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/dgnsrekt/chartdeck/internal/chart"
	"github.com/dgnsrekt/chartdeck/internal/frame"
)

const bindingName = "chartdeckEvent"

type Options struct {
	// CDPURL is the DevTools websocket or http endpoint of the browser.
	CDPURL string
	// PageURL is where the deck page is served.
	PageURL     string
	EvalTimeout time.Duration
	ReadyWait   time.Duration
}

type Stats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Events int `json:"events"`
}

type command struct {
	paneID string
	script string
}

// Page owns one tab. Scripts run in submission order on a single goroutine.
type Page struct {
	sched frame.Scheduler
	opts  Options

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	mu       sync.Mutex
	queue    []command
	surfaces map[string]*Surface
	stats    Stats
	closed   bool
	wake     chan struct{}
	done     chan struct{}
}

// Connect attaches to a tab already showing the deck page, or opens one, and
// waits for the page to report ready.
func Connect(ctx context.Context, sched frame.Scheduler, opts Options) (*Page, error) {
	if opts.CDPURL == "" {
		return nil, newError(CodeCDP, "missing CDP URL", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.EvalTimeout <= 0 {
		opts.EvalTimeout = 5 * time.Second
	}
	if opts.ReadyWait <= 0 {
		opts.ReadyWait = 20 * time.Second
	}
	slog.Info("connecting deck page", "cdp_url", opts.CDPURL, "page_url", opts.PageURL)

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), opts.CDPURL)

	probeCtx, probeCancel := chromedp.NewContext(allocCtx)
	defer probeCancel()
	if err := chromedp.Run(probeCtx); err != nil {
		allocCancel()
		return nil, newError(CodeCDP, "connect to browser", err)
	}
	targets, err := chromedp.Targets(probeCtx)
	if err != nil {
		allocCancel()
		return nil, newError(CodeCDP, "enumerate targets", err)
	}

	var tabCtx context.Context
	var tabCancel context.CancelFunc
	attached := false
	for _, t := range targets {
		if t.Type == "page" && opts.PageURL != "" && strings.HasPrefix(t.URL, opts.PageURL) {
			tabCtx, tabCancel = chromedp.NewContext(allocCtx, chromedp.WithTargetID(t.TargetID))
			attached = true
			slog.Info("attached to existing deck tab", "target_id", t.TargetID)
			break
		}
	}
	if !attached {
		tabCtx, tabCancel = chromedp.NewContext(allocCtx)
	}

	p := &Page{
		sched:       sched,
		opts:        opts,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		surfaces:    make(map[string]*Surface),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	chromedp.ListenTarget(tabCtx, p.onEvent)

	load := chromedp.Navigate(opts.PageURL)
	if attached {
		// Bindings are installed on new documents.
		load = chromedp.Reload()
	}
	readyCtx, cancel := context.WithTimeout(tabCtx, opts.ReadyWait)
	defer cancel()
	err = chromedp.Run(readyCtx,
		runtime.Enable(),
		page.Enable(),
		runtime.AddBinding(bindingName),
		load,
		chromedp.Poll(`!!(window.chartdeck && window.chartdeck.ready)`, nil,
			chromedp.WithPollingTimeout(opts.ReadyWait)),
	)
	if err != nil {
		p.shutdown()
		return nil, newError(CodePageNotReady, "deck page did not load", err)
	}

	go p.run()
	slog.Info("deck page ready", "page_url", opts.PageURL, "attached", attached)
	return p, nil
}

// NewSurface implements the pane surface factory.
func (p *Page) NewSurface(paneID string) (chart.Surface, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, newError(CodeCDP, "deck page closed", nil)
	}
	if _, exists := p.surfaces[paneID]; exists {
		return nil, fmt.Errorf("cdpsurface: pane %s already has a surface", paneID)
	}
	s := &Surface{paneID: paneID, exec: lockedExec{p}, onRelease: func() { p.Forget(paneID) }}
	p.surfaces[paneID] = s
	p.enqueueLocked(paneID, paneCall("create", paneID))
	return s, nil
}

func (p *Page) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// lockedExec enqueues from the frame loop, outside p.mu.
type lockedExec struct{ p *Page }

func (e lockedExec) exec(paneID, script string) {
	e.p.mu.Lock()
	e.p.enqueueLocked(paneID, script)
	e.p.mu.Unlock()
}

func (p *Page) enqueueLocked(paneID, script string) {
	if p.closed {
		return
	}
	p.queue = append(p.queue, command{paneID: paneID, script: script})
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Page) run() {
	for {
		select {
		case <-p.done:
			return
		case <-p.wake:
		}
		for {
			p.mu.Lock()
			if len(p.queue) == 0 || p.closed {
				p.mu.Unlock()
				break
			}
			cmd := p.queue[0]
			p.queue = p.queue[1:]
			p.mu.Unlock()

			err := p.eval(cmd.script)
			p.mu.Lock()
			p.stats.Sent++
			if err != nil {
				p.stats.Failed++
			}
			p.mu.Unlock()
			if err != nil {
				slog.Warn("deck script failed", "pane_id", cmd.paneID, "error", err)
			}
		}
	}
}

func (p *Page) eval(script string) error {
	ctx, cancel := context.WithTimeout(p.tabCtx, p.opts.EvalTimeout)
	defer cancel()
	var raw string
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &raw)); err != nil {
		return newError(CodeCDP, "evaluate", err)
	}
	return decodeEnvelope(raw)
}

func (p *Page) onEvent(ev any) {
	switch e := ev.(type) {
	case *runtime.EventBindingCalled:
		if e.Name != bindingName {
			return
		}
		p.dispatch(e.Payload)
	case *page.EventFrameNavigated:
		if e.Frame.ParentID == "" {
			slog.Info("deck tab navigated", "url", e.Frame.URL)
		}
	}
}

// dispatch routes one binding payload to its surface on the frame loop.
func (p *Page) dispatch(payload string) {
	ev, err := parseEvent(payload)
	if err != nil {
		slog.Warn("deck event rejected", "error", err)
		return
	}
	p.mu.Lock()
	s, ok := p.surfaces[ev.Pane]
	p.stats.Events++
	p.mu.Unlock()
	if !ok {
		slog.Debug("deck event for unknown pane", "pane_id", ev.Pane)
		return
	}
	p.sched.Post(func() {
		switch ev.Kind {
		case eventRange:
			s.deliverRange(ev.rangeValue())
		case eventCrosshair:
			s.deliverCrosshair(ev.timeValue())
		}
	})
}

// Forget drops the routing entry for a released pane.
func (p *Page) Forget(paneID string) {
	p.mu.Lock()
	delete(p.surfaces, paneID)
	p.mu.Unlock()
}

func (p *Page) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.queue = nil
	p.mu.Unlock()
	close(p.done)
	p.shutdown()
	slog.Info("deck page closed")
	return nil
}

func (p *Page) shutdown() {
	if p.tabCancel != nil {
		p.tabCancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
}

const (
	eventRange     = "range"
	eventCrosshair = "crosshair"
)

// event is the JSON payload the deck page passes to the binding. Times are
// numbers in epoch seconds; the chart library may report fractional values.
type event struct {
	Pane  string `json:"pane"`
	Kind  string `json:"kind"`
	Range *struct {
		From float64 `json:"from"`
		To   float64 `json:"to"`
	} `json:"range"`
	Time *float64 `json:"time"`
}

func parseEvent(payload string) (event, error) {
	var ev event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("decode deck event: %w", err)
	}
	if ev.Pane == "" {
		return ev, fmt.Errorf("deck event without pane")
	}
	if ev.Kind != eventRange && ev.Kind != eventCrosshair {
		return ev, fmt.Errorf("unknown deck event kind %q", ev.Kind)
	}
	return ev, nil
}

func (ev event) rangeValue() *chart.Range {
	if ev.Range == nil {
		return nil
	}
	return &chart.Range{From: chart.Time(ev.Range.From), To: chart.Time(ev.Range.To)}
}

func (ev event) timeValue() *chart.Time {
	if ev.Time == nil {
		return nil
	}
	t := chart.Time(*ev.Time)
	return &t
}

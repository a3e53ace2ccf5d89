// Package analyzer drives the end-to-end analysis pipeline: acquire a page,
// wire up capture, navigate, settle, classify, snapshot, assemble.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/webscope/internal/browser"
	"github.com/dgnsrekt/webscope/internal/capture"
	"github.com/dgnsrekt/webscope/internal/classify"
	"github.com/dgnsrekt/webscope/internal/pagestore"
	"github.com/dgnsrekt/webscope/internal/report"
	"github.com/dgnsrekt/webscope/internal/security"
	"github.com/dgnsrekt/webscope/internal/store"
)

// Pipeline timing bounds.
const (
	defaultNavTimeout  = 30 * time.Second
	defaultIdleTimeout = 10 * time.Second
	idleSettle         = 500 * time.Millisecond
	maxWaitMS          = 10000
	quickModeWait      = 1000 * time.Millisecond
	bodyDrainGrace     = 5 * time.Second
)

// Limits bounds one analysis run. Zero values take the defaults.
type Limits struct {
	NavTimeout   time.Duration
	IdleTimeout  time.Duration
	MaxBodyChars int
}

// DefaultLimits returns the standard pipeline bounds.
func DefaultLimits() Limits {
	return Limits{
		NavTimeout:   defaultNavTimeout,
		IdleTimeout:  defaultIdleTimeout,
		MaxBodyChars: capture.MaxBodyChars,
	}
}

func (l Limits) normalized() Limits {
	d := DefaultLimits()
	if l.NavTimeout <= 0 {
		l.NavTimeout = d.NavTimeout
	}
	if l.IdleTimeout <= 0 {
		l.IdleTimeout = d.IdleTimeout
	}
	if l.MaxBodyChars <= 0 {
		l.MaxBodyChars = d.MaxBodyChars
	}
	return l
}

// AnalyzeParams are the caller-facing knobs of one analysis run.
type AnalyzeParams struct {
	URL           string
	WaitTime      int
	IncludeImages bool
	QuickMode     bool
}

// Service owns the shared browser, the report cache, and the detector. Safe
// for concurrent use; each analysis gets its own page.
type Service struct {
	browser  *browser.Manager
	store    store.Store
	detector *security.Detector
	sink     capture.EventSink
	limits   Limits
}

// NewService wires the orchestrator. sink may be nil when no live feed is
// attached.
func NewService(b *browser.Manager, s store.Store, d *security.Detector, sink capture.EventSink, limits Limits) *Service {
	return &Service{browser: b, store: s, detector: d, sink: sink, limits: limits.normalized()}
}

// Analyze runs the full pipeline for one URL and stores the report keyed by
// that URL, replacing any previous run.
func (s *Service) Analyze(ctx context.Context, params AnalyzeParams) (*report.Report, error) {
	if err := validateURL(params.URL); err != nil {
		return nil, err
	}
	if err := s.browser.Ensure(ctx); err != nil {
		return nil, newError(CodeBrowserUnavailable, "browser initialization failed", err)
	}

	pageCtx, closePage, err := s.browser.NewPage()
	if err != nil {
		return nil, newError(CodeBrowserUnavailable, "page open failed", err)
	}
	defer closePage()

	monitor := capture.NewMonitor(params.IncludeImages, s.limits.MaxBodyChars, s.sink)
	if err := monitor.Attach(pageCtx); err != nil {
		return nil, classifyRunError(params.URL, err)
	}

	slog.Info("analysis started", "url", params.URL, "quick_mode", params.QuickMode, "include_images", params.IncludeImages)

	if err := navigateDOMContentLoaded(pageCtx, params.URL, s.limits.NavTimeout); err != nil {
		return nil, classifyRunError(params.URL, err)
	}

	waitForQuiescence(pageCtx, monitor, s.limits.IdleTimeout)

	if wait := resolveWait(params.WaitTime, params.QuickMode); wait > 0 {
		select {
		case <-time.After(wait):
		case <-pageCtx.Done():
			return nil, classifyRunError(params.URL, pageCtx.Err())
		}
	}

	var title string
	if err := chromedp.Run(pageCtx, chromedp.Title(&title)); err != nil {
		slog.Warn("page title read failed", "url", params.URL, "error", err)
	}

	renderMethod := classify.DetectRenderingMethod(pageCtx)

	storageSnap, err := pagestore.Capture(pageCtx)
	if err != nil {
		// All-or-nothing: partial storage is worse than none.
		slog.Warn("storage capture failed, dropping snapshot", "url", params.URL, "error", err)
		storageSnap = nil
	}

	drainCtx, drainCancel := context.WithTimeout(pageCtx, bodyDrainGrace)
	exchanges := monitor.Exchanges(drainCtx)
	drainCancel()

	r := report.Assemble(params.URL, title, exchanges, renderMethod, storageSnap, s.detector)
	s.store.Set(r)

	slog.Info("analysis finished", "url", params.URL, "requests", r.TotalRequests, "render_method", r.RenderingMethod, "anti_bot", r.AntiBot.Detected)
	return r, nil
}

// ExtractElements is a standalone capability: navigate and extract, no
// stabilization, storage, or classification.
func (s *Service) ExtractElements(ctx context.Context, rawURL, filterType string) ([]classify.Element, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	if !classify.ValidFilter(filterType) {
		return nil, newError(CodeValidation, fmt.Sprintf("invalid filter type: %q", filterType), nil)
	}
	if err := s.browser.Ensure(ctx); err != nil {
		return nil, newError(CodeBrowserUnavailable, "browser initialization failed", err)
	}

	pageCtx, closePage, err := s.browser.NewPage()
	if err != nil {
		return nil, newError(CodeBrowserUnavailable, "page open failed", err)
	}
	defer closePage()

	if err := navigateDOMContentLoaded(pageCtx, rawURL, s.limits.NavTimeout); err != nil {
		return nil, classifyRunError(rawURL, err)
	}

	elements, err := classify.ExtractElements(pageCtx, filterType)
	if err != nil {
		return nil, classifyRunError(rawURL, err)
	}
	return elements, nil
}

// GetSummary re-derives the summary of a stored report.
func (s *Service) GetSummary(url string) (report.Summary, error) {
	r, err := s.lookup(url)
	if err != nil {
		return report.Summary{}, err
	}
	return r.Summarize(), nil
}

// GetByDomain filters a stored report's exchanges by exact hostname.
func (s *Service) GetByDomain(url, domain string) ([]capture.ExchangeSummary, error) {
	if domain == "" {
		return nil, newError(CodeValidation, "domain is required", nil)
	}
	r, err := s.lookup(url)
	if err != nil {
		return nil, err
	}
	return r.RequestsForDomain(domain), nil
}

// GetDetails returns the full exchange record for a request id within a
// stored report.
func (s *Service) GetDetails(url, requestID string) (*capture.Exchange, error) {
	r, err := s.lookup(url)
	if err != nil {
		return nil, err
	}
	ex, ok := r.FindRequest(requestID)
	if !ok {
		return nil, newError(CodeNotFound, fmt.Sprintf("no request %q in analysis of %s", requestID, url), nil)
	}
	return ex, nil
}

// ReportURLs lists all analyzed URLs.
func (s *Service) ReportURLs() []string {
	return s.store.URLs()
}

// ClearReports drops every stored report and returns how many were removed.
func (s *Service) ClearReports() int {
	n := s.store.Count()
	s.store.Clear()
	return n
}

func (s *Service) lookup(url string) (*report.Report, error) {
	r, ok := s.store.Get(url)
	if !ok {
		return nil, newError(CodeNotFound, fmt.Sprintf("no analysis found for %s, run analyze first", url), nil)
	}
	return r, nil
}

// Shutdown releases the shared browser.
func (s *Service) Shutdown() {
	s.browser.Shutdown()
}

// validateURL fails fast on anything that does not parse as an absolute
// http(s) URL, before any browser work happens.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return newError(CodeValidation, fmt.Sprintf("invalid URL: %q", rawURL), err)
	}
	if !u.IsAbs() || u.Host == "" {
		return newError(CodeValidation, fmt.Sprintf("URL must be absolute: %q", rawURL), nil)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return newError(CodeValidation, fmt.Sprintf("unsupported URL scheme: %q", u.Scheme), nil)
	}
	return nil
}

// resolveWait clamps the dynamic-content delay to [0, maxWaitMS]; quick mode
// overrides the caller's request with a fixed short settle.
func resolveWait(waitTimeMS int, quickMode bool) time.Duration {
	if quickMode {
		return quickModeWait
	}
	if waitTimeMS < 0 {
		waitTimeMS = 0
	}
	if waitTimeMS > maxWaitMS {
		waitTimeMS = maxWaitMS
	}
	return time.Duration(waitTimeMS) * time.Millisecond
}

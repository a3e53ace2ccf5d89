package capture

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
)

// skippedBodyTypes never have their response bodies captured.
var skippedBodyTypes = map[string]bool{
	"image": true,
	"media": true,
	"font":  true,
}

// skippedContentTypes are content-type fragments that disable body capture
// regardless of resource type.
var skippedContentTypes = []string{"image/", "video/", "audio/", "application/octet-stream"}

// EventSink receives lightweight notifications as exchanges are observed.
// Implementations must not block.
type EventSink interface {
	ExchangeObserved(kind string, summary ExchangeSummary)
}

// Monitor attaches to a page's network event stream and accumulates one
// Exchange per observed request. Responses correlate back to the first
// still-unresolved exchange with the same URL; if none matches the response
// is dropped. Handlers fire from chromedp's event dispatch and interleave
// arbitrarily, so all state is mutex-guarded.
type Monitor struct {
	includeImages bool
	maxBodyChars  int
	sink          EventSink

	mu        sync.Mutex
	exchanges []*Exchange
	// bodyTargets maps the browser request id of a correlated response to
	// its exchange so the body fetched at loading-finished lands on the
	// right record. Correlation itself is by URL, never by this id.
	bodyTargets map[network.RequestID]*Exchange
	inflight    map[network.RequestID]struct{}
	// pendingBodies tracks exchanges whose body fetch is in flight. closed
	// flips at handoff; after that no handler or fetch may touch an exchange.
	pendingBodies map[*Exchange]struct{}
	closed        bool

	tabCtx context.Context
	bodies sync.WaitGroup
}

// NewMonitor creates a monitor for one analysis run. maxBodyChars <= 0 takes
// the standard truncation limit.
func NewMonitor(includeImages bool, maxBodyChars int, sink EventSink) *Monitor {
	if maxBodyChars <= 0 {
		maxBodyChars = MaxBodyChars
	}
	return &Monitor{
		includeImages: includeImages,
		maxBodyChars:  maxBodyChars,
		sink:          sink,
		bodyTargets:   make(map[network.RequestID]*Exchange),
		inflight:      make(map[network.RequestID]struct{}),
		pendingBodies: make(map[*Exchange]struct{}),
	}
}

// Attach wires the monitor onto a page context and enables the Network
// domain. Must be called before navigation so early requests are not missed.
func (m *Monitor) Attach(tabCtx context.Context) error {
	m.tabCtx = tabCtx
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			m.onRequest(e)
		case *network.EventResponseReceived:
			m.onResponse(e)
		case *network.EventLoadingFinished:
			m.onLoadingFinished(e)
		case *network.EventLoadingFailed:
			m.onLoadingFailed(e)
		}
	})
	return chromedp.Run(tabCtx, network.Enable(), network.SetCacheDisabled(true))
}

func (m *Monitor) onRequest(ev *network.EventRequestWillBeSent) {
	resourceType := mapResourceType(ev.Type)
	if !m.includeImages && (resourceType == "image" || resourceType == "media") {
		return
	}

	ex := &Exchange{
		ID:           uuid.NewString(),
		URL:          ev.Request.URL,
		Method:       ev.Request.Method,
		Headers:      headerMapToStringMap(ev.Request.Headers),
		PostData:     decodePostData(ev.Request),
		Timestamp:    time.Now().UTC(),
		ResourceType: resourceType,
	}

	m.mu.Lock()
	m.exchanges = append(m.exchanges, ex)
	m.inflight[ev.RequestID] = struct{}{}
	m.mu.Unlock()

	if m.sink != nil {
		m.sink.ExchangeObserved("request", ex.Summarize())
	}
}

func (m *Monitor) onResponse(ev *network.EventResponseReceived) {
	resourceType := mapResourceType(ev.Type)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	ex := m.firstUnresolvedLocked(ev.Response.URL)
	if ex != nil {
		ex.Status = int(ev.Response.Status)
		ex.ResponseHeaders = headerMapToStringMap(ev.Response.Headers)
		if shouldCaptureBody(resourceType, contentTypeOf(ex.ResponseHeaders)) {
			m.bodyTargets[ev.RequestID] = ex
		}
	}
	m.mu.Unlock()

	if ex != nil && m.sink != nil {
		m.sink.ExchangeObserved("response", ex.Summarize())
	}
}

func (m *Monitor) onLoadingFinished(ev *network.EventLoadingFinished) {
	m.mu.Lock()
	delete(m.inflight, ev.RequestID)
	ex, wantBody := m.bodyTargets[ev.RequestID]
	delete(m.bodyTargets, ev.RequestID)
	if m.closed || !wantBody || m.tabCtx == nil {
		m.mu.Unlock()
		return
	}
	m.pendingBodies[ex] = struct{}{}
	m.bodies.Add(1)
	m.mu.Unlock()

	// Body retrieval needs a CDP round trip; never block the event handler.
	go func() {
		defer m.bodies.Done()
		m.fetchBody(ev.RequestID, ex)
	}()
}

func (m *Monitor) onLoadingFailed(ev *network.EventLoadingFailed) {
	m.mu.Lock()
	delete(m.inflight, ev.RequestID)
	delete(m.bodyTargets, ev.RequestID)
	m.mu.Unlock()
}

func (m *Monitor) fetchBody(id network.RequestID, ex *Exchange) {
	bodyCtx, cancel := context.WithTimeout(m.tabCtx, 10*time.Second)
	defer cancel()

	var body []byte
	err := chromedp.Run(bodyCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		// The exchanges were handed off while this fetch was in flight; the
		// record already carries the failure sentinel and must not change.
		return
	}
	delete(m.pendingBodies, ex)
	if err != nil {
		slog.Debug("response body read failed", "request_id", id, "url", ex.URL, "error", err)
		ex.ResponseBody = BodyReadFailure
		return
	}
	stored, truncated := truncateBody(string(body), m.maxBodyChars)
	ex.ResponseBody = stored
	if truncated {
		slog.Debug("response body truncated", "request_id", id, "url", ex.URL, "original_size", len(body))
	}
}

// firstUnresolvedLocked finds the first exchange with a matching URL and no
// status yet. Two near-simultaneous identical-URL requests can misattribute;
// first-match-wins is intentional since the response payload carries no
// other correlation token worth trusting.
func (m *Monitor) firstUnresolvedLocked(url string) *Exchange {
	for _, ex := range m.exchanges {
		if ex.URL == url && ex.Status == 0 {
			return ex
		}
	}
	return nil
}

// InFlight reports requests observed but not yet finished or failed. Used by
// the orchestrator as its network-quiescence signal.
func (m *Monitor) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inflight)
}

// Exchanges hands over the accumulated records in observation order and
// closes the monitor. Pending body fetches are drained first, bounded by the
// given context; any body still missing at that point is sealed with the
// failure sentinel, so the returned records never change afterwards.
func (m *Monitor) Exchanges(ctx context.Context) []*Exchange {
	done := make(chan struct{})
	go func() {
		m.bodies.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("body fetches still pending at handoff", "error", ctx.Err())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for ex := range m.pendingBodies {
		if ex.ResponseBody == "" {
			ex.ResponseBody = BodyReadFailure
		}
	}
	m.pendingBodies = make(map[*Exchange]struct{})
	for _, ex := range m.bodyTargets {
		if ex.ResponseBody == "" {
			ex.ResponseBody = BodyReadFailure
		}
	}
	m.bodyTargets = make(map[network.RequestID]*Exchange)

	out := make([]*Exchange, len(m.exchanges))
	copy(out, m.exchanges)
	return out
}

func shouldCaptureBody(resourceType, contentType string) bool {
	if skippedBodyTypes[resourceType] {
		return false
	}
	ct := strings.ToLower(contentType)
	for _, fragment := range skippedContentTypes {
		if strings.Contains(ct, fragment) {
			return false
		}
	}
	return true
}

func contentTypeOf(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "content-type") {
			return v
		}
	}
	return ""
}

func decodePostData(req *network.Request) string {
	if !req.HasPostData || len(req.PostDataEntries) == 0 {
		return ""
	}
	var decoded []byte
	for _, entry := range req.PostDataEntries {
		if entry.Bytes == "" {
			continue
		}
		part, err := base64.StdEncoding.DecodeString(entry.Bytes)
		if err != nil {
			decoded = append(decoded, []byte(entry.Bytes)...)
			continue
		}
		decoded = append(decoded, part...)
	}
	return string(decoded)
}

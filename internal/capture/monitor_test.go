package capture

import (
	"context"
	"strings"
	"testing"

	"github.com/chromedp/cdproto/network"
)

func requestEvent(id, url string, rt network.ResourceType) *network.EventRequestWillBeSent {
	return &network.EventRequestWillBeSent{
		RequestID: network.RequestID(id),
		Type:      rt,
		Request: &network.Request{
			URL:     url,
			Method:  "GET",
			Headers: network.Headers{"User-Agent": "test"},
		},
	}
}

func responseEvent(id, url string, status int64, rt network.ResourceType, headers network.Headers) *network.EventResponseReceived {
	return &network.EventResponseReceived{
		RequestID: network.RequestID(id),
		Type:      rt,
		Response: &network.Response{
			URL:     url,
			Status:  status,
			Headers: headers,
		},
	}
}

func TestMonitorCorrelation(t *testing.T) {
	t.Run("response_updates_first_unresolved_match", func(t *testing.T) {
		m := NewMonitor(false, 0, nil)
		m.onRequest(requestEvent("1", "https://example.com/poll", network.ResourceTypeXHR))
		m.onRequest(requestEvent("2", "https://example.com/poll", network.ResourceTypeXHR))

		m.onResponse(responseEvent("2", "https://example.com/poll", 200, network.ResourceTypeXHR, nil))

		if m.exchanges[0].Status != 200 {
			t.Fatalf("first exchange status = %d; want 200", m.exchanges[0].Status)
		}
		if m.exchanges[1].Status != 0 {
			t.Fatalf("second exchange status = %d; want unresolved", m.exchanges[1].Status)
		}
	})

	t.Run("second_response_resolves_second_exchange", func(t *testing.T) {
		m := NewMonitor(false, 0, nil)
		m.onRequest(requestEvent("1", "https://example.com/poll", network.ResourceTypeXHR))
		m.onRequest(requestEvent("2", "https://example.com/poll", network.ResourceTypeXHR))

		m.onResponse(responseEvent("1", "https://example.com/poll", 200, network.ResourceTypeXHR, nil))
		m.onResponse(responseEvent("2", "https://example.com/poll", 404, network.ResourceTypeXHR, nil))

		if m.exchanges[1].Status != 404 {
			t.Fatalf("second exchange status = %d; want 404", m.exchanges[1].Status)
		}
	})

	t.Run("unmatched_response_is_dropped", func(t *testing.T) {
		m := NewMonitor(false, 0, nil)
		m.onRequest(requestEvent("1", "https://example.com/a", network.ResourceTypeXHR))
		m.onResponse(responseEvent("9", "https://example.com/other", 200, network.ResourceTypeXHR, nil))

		if m.exchanges[0].Status != 0 {
			t.Fatalf("exchange status = %d; want unresolved", m.exchanges[0].Status)
		}
	})

	t.Run("cross_url_pairing_is_not_fifo", func(t *testing.T) {
		m := NewMonitor(false, 0, nil)
		m.onRequest(requestEvent("1", "https://example.com/a", network.ResourceTypeFetch))
		m.onRequest(requestEvent("2", "https://example.com/b", network.ResourceTypeFetch))

		// Responses arrive in reverse order of their requests.
		m.onResponse(responseEvent("2", "https://example.com/b", 201, network.ResourceTypeFetch, nil))
		m.onResponse(responseEvent("1", "https://example.com/a", 200, network.ResourceTypeFetch, nil))

		if m.exchanges[0].Status != 200 || m.exchanges[1].Status != 201 {
			t.Fatalf("statuses = %d, %d; want 200, 201", m.exchanges[0].Status, m.exchanges[1].Status)
		}
	})
}

func TestMonitorImageFilter(t *testing.T) {
	t.Run("images_skipped_by_default", func(t *testing.T) {
		m := NewMonitor(false, 0, nil)
		m.onRequest(requestEvent("1", "https://example.com/logo.png", network.ResourceTypeImage))
		m.onRequest(requestEvent("2", "https://example.com/clip.mp4", network.ResourceTypeMedia))
		m.onRequest(requestEvent("3", "https://example.com/", network.ResourceTypeDocument))

		if len(m.exchanges) != 1 {
			t.Fatalf("captured %d exchanges; want 1", len(m.exchanges))
		}
		if m.exchanges[0].ResourceType != "document" {
			t.Fatalf("resource type = %q; want document", m.exchanges[0].ResourceType)
		}
	})

	t.Run("images_kept_when_requested", func(t *testing.T) {
		m := NewMonitor(true, 0, nil)
		m.onRequest(requestEvent("1", "https://example.com/logo.png", network.ResourceTypeImage))

		if len(m.exchanges) != 1 {
			t.Fatalf("captured %d exchanges; want 1", len(m.exchanges))
		}
	})
}

func TestMonitorInFlight(t *testing.T) {
	m := NewMonitor(false, 0, nil)
	m.onRequest(requestEvent("1", "https://example.com/a", network.ResourceTypeXHR))
	m.onRequest(requestEvent("2", "https://example.com/b", network.ResourceTypeXHR))

	if got := m.InFlight(); got != 2 {
		t.Fatalf("InFlight() = %d; want 2", got)
	}

	m.onLoadingFinished(&network.EventLoadingFinished{RequestID: "1"})
	m.onLoadingFailed(&network.EventLoadingFailed{RequestID: "2"})

	if got := m.InFlight(); got != 0 {
		t.Fatalf("InFlight() = %d; want 0", got)
	}
}

func TestShouldCaptureBody(t *testing.T) {
	cases := []struct {
		name         string
		resourceType string
		contentType  string
		want         bool
	}{
		{"document_html", "document", "text/html; charset=utf-8", true},
		{"xhr_json", "xhr", "application/json", true},
		{"image_resource_type", "image", "text/plain", false},
		{"media_resource_type", "media", "", false},
		{"font_resource_type", "font", "", false},
		{"image_content_type", "other", "image/png", false},
		{"video_content_type", "xhr", "video/mp4", false},
		{"audio_content_type", "xhr", "audio/mpeg", false},
		{"octet_stream", "fetch", "application/octet-stream", false},
		{"case_insensitive_content_type", "xhr", "IMAGE/PNG", false},
		{"empty_content_type", "script", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldCaptureBody(tc.resourceType, tc.contentType); got != tc.want {
				t.Fatalf("shouldCaptureBody(%q, %q) = %v; want %v", tc.resourceType, tc.contentType, got, tc.want)
			}
		})
	}
}

func TestResponseBodyTargeting(t *testing.T) {
	t.Run("body_capture_skipped_for_image_content_type", func(t *testing.T) {
		m := NewMonitor(true, 0, nil)
		m.onRequest(requestEvent("1", "https://example.com/pic", network.ResourceTypeOther))
		m.onResponse(responseEvent("1", "https://example.com/pic", 200, network.ResourceTypeOther,
			network.Headers{"Content-Type": "image/jpeg"}))

		if len(m.bodyTargets) != 0 {
			t.Fatalf("bodyTargets has %d entries; want 0", len(m.bodyTargets))
		}
	})

	t.Run("body_capture_scheduled_for_text_response", func(t *testing.T) {
		m := NewMonitor(false, 0, nil)
		m.onRequest(requestEvent("1", "https://example.com/api", network.ResourceTypeXHR))
		m.onResponse(responseEvent("1", "https://example.com/api", 200, network.ResourceTypeXHR,
			network.Headers{"content-type": "application/json"}))

		if len(m.bodyTargets) != 1 {
			t.Fatalf("bodyTargets has %d entries; want 1", len(m.bodyTargets))
		}
	})
}

func TestMapResourceType(t *testing.T) {
	if got := mapResourceType(network.ResourceTypeWebSocket); got != "other" {
		t.Fatalf("websocket mapped to %q; want other", got)
	}
	if got := mapResourceType(network.ResourceTypeXHR); got != "xhr" {
		t.Fatalf("xhr mapped to %q; want xhr", got)
	}
}

func TestResourceTypeMapping(t *testing.T) {
	m := NewMonitor(false, 0, nil)
	m.onRequest(requestEvent("1", "https://example.com/style.css", network.ResourceTypeStylesheet))
	if m.exchanges[0].ResourceType != "stylesheet" {
		t.Fatalf("resource type = %q; want stylesheet", m.exchanges[0].ResourceType)
	}
}

func TestExchangesHandoffIsFinal(t *testing.T) {
	expiredCtx := func() context.Context {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	t.Run("unfetched_body_sealed_with_sentinel", func(t *testing.T) {
		m := NewMonitor(false, 0, nil)
		m.tabCtx = context.Background()
		m.onRequest(requestEvent("1", "https://example.com/api", network.ResourceTypeXHR))
		m.onResponse(responseEvent("1", "https://example.com/api", 200, network.ResourceTypeXHR,
			network.Headers{"Content-Type": "application/json"}))

		got := m.Exchanges(expiredCtx())
		if len(got) != 1 {
			t.Fatalf("handed off %d exchanges; want 1", len(got))
		}
		if got[0].ResponseBody != BodyReadFailure {
			t.Fatalf("body = %q; want failure sentinel at handoff", got[0].ResponseBody)
		}
	})

	t.Run("late_loading_finished_spawns_no_fetch", func(t *testing.T) {
		m := NewMonitor(false, 0, nil)
		m.tabCtx = context.Background()
		m.onRequest(requestEvent("1", "https://example.com/api", network.ResourceTypeXHR))
		m.onResponse(responseEvent("1", "https://example.com/api", 200, network.ResourceTypeXHR,
			network.Headers{"Content-Type": "application/json"}))
		_ = m.Exchanges(expiredCtx())

		m.onLoadingFinished(&network.EventLoadingFinished{RequestID: "1"})

		m.mu.Lock()
		pending := len(m.pendingBodies)
		m.mu.Unlock()
		if pending != 0 {
			t.Fatalf("%d body fetches pending after handoff; want 0", pending)
		}
	})

	t.Run("in_flight_fetch_drops_result_after_handoff", func(t *testing.T) {
		m := NewMonitor(false, 0, nil)
		m.tabCtx = context.Background()
		ex := &Exchange{ID: "r1", URL: "https://example.com/api", ResponseBody: BodyReadFailure}
		_ = m.Exchanges(expiredCtx())

		// Simulates a fetch that was already running at handoff; with a
		// plain context the CDP call fails immediately, and the failure
		// write must be suppressed.
		m.fetchBody("1", ex)
		if ex.ResponseBody != BodyReadFailure {
			t.Fatalf("body rewritten after handoff: %q", ex.ResponseBody)
		}
		ex.ResponseBody = ""
		m.fetchBody("1", ex)
		if ex.ResponseBody != "" {
			t.Fatalf("exchange mutated after handoff: %q", ex.ResponseBody)
		}
	})

	t.Run("late_response_does_not_touch_handed_off_exchange", func(t *testing.T) {
		m := NewMonitor(false, 0, nil)
		m.onRequest(requestEvent("1", "https://example.com/a", network.ResourceTypeXHR))
		got := m.Exchanges(expiredCtx())

		m.onResponse(responseEvent("1", "https://example.com/a", 200, network.ResourceTypeXHR, nil))
		if got[0].Status != 0 {
			t.Fatalf("status = %d; want unresolved after handoff", got[0].Status)
		}
	})
}

type sinkRecorder struct {
	kinds []string
}

func (s *sinkRecorder) ExchangeObserved(kind string, _ ExchangeSummary) {
	s.kinds = append(s.kinds, kind)
}

func TestMonitorSink(t *testing.T) {
	sink := &sinkRecorder{}
	m := NewMonitor(false, 0, sink)
	m.onRequest(requestEvent("1", "https://example.com/", network.ResourceTypeDocument))
	m.onResponse(responseEvent("1", "https://example.com/", 200, network.ResourceTypeDocument, nil))

	if strings.Join(sink.kinds, ",") != "request,response" {
		t.Fatalf("sink saw %v; want [request response]", sink.kinds)
	}
}

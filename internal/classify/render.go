package classify

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/chromedp/chromedp"
)

// Render-method classifications.
const (
	RenderServer  = "server"
	RenderClient  = "client"
	RenderUnknown = "unknown"
)

// serverMarkers are fingerprints of server-rendered output: embedded SSR
// payloads and explicit SSR attributes.
var serverMarkers = []string{
	"__NEXT_DATA__",
	"window.__NUXT__",
	"data-ssr",
	"data-server-rendered",
}

// hydrationMarkers indicate a client-side framework taking over the DOM.
var hydrationMarkers = []string{
	"data-reactroot",
	"v-bind",
	"ng-version",
}

var bodyRe = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)

// shellBodyThreshold is the body length below which a markup without
// content sections is treated as a client-rendered shell.
const shellBodyThreshold = 500

// DetectRenderingMethod reads the page's serialized markup once and returns
// a best-effort render-strategy classification. Never returns an error; a
// failed markup read logs and yields RenderUnknown.
func DetectRenderingMethod(ctx context.Context) string {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		slog.Warn("markup read failed for render classification", "error", err)
		return RenderUnknown
	}
	return ClassifyMarkup(html)
}

// ClassifyMarkup applies the ordered render-method heuristics to raw markup.
// These are pattern-matching signals with known false positives, not
// guarantees.
func ClassifyMarkup(html string) string {
	for _, marker := range serverMarkers {
		if strings.Contains(html, marker) {
			return RenderServer
		}
	}

	for _, marker := range hydrationMarkers {
		if strings.Contains(html, marker) {
			return RenderClient
		}
	}

	if isShellBody(html) {
		return RenderClient
	}

	return RenderUnknown
}

// isShellBody detects an almost-empty <body> without content sections,
// typical of pages that inject content after load.
func isShellBody(html string) bool {
	m := bodyRe.FindStringSubmatch(html)
	if m == nil {
		return false
	}
	body := strings.TrimSpace(m[1])
	lower := strings.ToLower(body)
	if strings.Contains(lower, "<article") || strings.Contains(lower, "<section") {
		return false
	}
	return len(body) < shellBodyThreshold
}

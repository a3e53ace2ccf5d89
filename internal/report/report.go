// Package report folds the outputs of one analysis run into the immutable
// record served by the read-only tools.
package report

import (
	"net/url"
	"time"

	"github.com/dgnsrekt/webscope/internal/capture"
	"github.com/dgnsrekt/webscope/internal/pagestore"
	"github.com/dgnsrekt/webscope/internal/security"
)

// Report is the finished result of one analysis run. Never mutated after
// Assemble returns.
type Report struct {
	URL             string              `json:"url"`
	Title           string              `json:"title"`
	Requests        []*capture.Exchange `json:"requests"`
	TotalRequests   int                 `json:"totalRequests"`
	UniqueDomains   []string            `json:"uniqueDomains"`
	RequestsByType  map[string]int      `json:"requestsByType"`
	RenderingMethod string              `json:"renderingMethod"`
	AntiBot         security.Verdict    `json:"antiBotDetection"`
	Storage         *pagestore.Snapshot `json:"storage,omitempty"`
	Timestamp       time.Time           `json:"timestamp"`
}

// WebsiteInfo is the page-level slice of a summary.
type WebsiteInfo struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	RenderingMethod string    `json:"renderingMethod"`
	AnalyzedAt      time.Time `json:"analyzedAt"`
}

// RequestSummary is the traffic-level slice of a summary.
type RequestSummary struct {
	TotalRequests  int            `json:"totalRequests"`
	RequestsByType map[string]int `json:"requestsByType"`
}

// Summary is the condensed projection returned by analyze and getSummary.
type Summary struct {
	WebsiteInfo    WebsiteInfo         `json:"websiteInfo"`
	RequestSummary RequestSummary      `json:"requestSummary"`
	Domains        []string            `json:"domains"`
	AntiBot        security.Verdict    `json:"antiBotDetection"`
	Storage        *pagestore.Snapshot `json:"storage,omitempty"`
}

// Assemble builds the report from already-computed inputs. Pure: no I/O, no
// failure modes; malformed exchange URLs fold into the "invalid-url" domain
// rather than being dropped.
func Assemble(sourceURL, title string, exchanges []*capture.Exchange, renderMethod string, storage *pagestore.Snapshot, detector *security.Detector) *Report {
	return &Report{
		URL:             sourceURL,
		Title:           title,
		Requests:        exchanges,
		TotalRequests:   len(exchanges),
		UniqueDomains:   uniqueDomains(exchanges),
		RequestsByType:  typeHistogram(exchanges),
		RenderingMethod: renderMethod,
		AntiBot:         detector.Detect(exchanges, title),
		Storage:         storage,
		Timestamp:       time.Now().UTC(),
	}
}

// Summarize projects a report down to its summary shape. Re-derivable at any
// time; getSummary reproduces the original analyze response from it.
func (r *Report) Summarize() Summary {
	return Summary{
		WebsiteInfo: WebsiteInfo{
			URL:             r.URL,
			Title:           r.Title,
			RenderingMethod: r.RenderingMethod,
			AnalyzedAt:      r.Timestamp,
		},
		RequestSummary: RequestSummary{
			TotalRequests:  r.TotalRequests,
			RequestsByType: r.RequestsByType,
		},
		Domains: r.UniqueDomains,
		AntiBot: r.AntiBot,
		Storage: r.Storage,
	}
}

// FindRequest looks up an exchange by its capture id.
func (r *Report) FindRequest(id string) (*capture.Exchange, bool) {
	for _, ex := range r.Requests {
		if ex.ID == id {
			return ex, true
		}
	}
	return nil, false
}

// RequestsForDomain filters exchanges whose hostname matches exactly.
func (r *Report) RequestsForDomain(domain string) []capture.ExchangeSummary {
	out := []capture.ExchangeSummary{}
	for _, ex := range r.Requests {
		if Hostname(ex.URL) == domain {
			out = append(out, ex.Summarize())
		}
	}
	return out
}

// uniqueDomains extracts hostnames in first-seen order.
func uniqueDomains(exchanges []*capture.Exchange) []string {
	seen := make(map[string]bool)
	domains := []string{}
	for _, ex := range exchanges {
		d := Hostname(ex.URL)
		if !seen[d] {
			seen[d] = true
			domains = append(domains, d)
		}
	}
	return domains
}

func typeHistogram(exchanges []*capture.Exchange) map[string]int {
	hist := make(map[string]int)
	for _, ex := range exchanges {
		hist[ex.ResourceType]++
	}
	return hist
}

// Hostname extracts the host of a URL, mapping anything unparsable to the
// literal "invalid-url".
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "invalid-url"
	}
	return u.Hostname()
}

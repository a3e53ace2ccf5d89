// Package security scans captured traffic for bot-mitigation fingerprints.
// Every check here is a best-effort signal with known false positives; a
// verdict documents what matched, it does not guarantee the site's posture.
package security

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dgnsrekt/webscope/internal/capture"
)

// Detection types.
const (
	TypeCaptcha      = "captcha"
	TypeRateLimiting = "rate-limiting"
	TypeBehavioral   = "behavioral-analysis"
)

// Verdict is the anti-bot classification for one analysis run.
type Verdict struct {
	Detected bool   `json:"detected"`
	Type     string `json:"type,omitempty"`
	Details  string `json:"details,omitempty"`
}

// Detector evaluates signature lists against captured traffic.
type Detector struct {
	sigs Signatures
}

// NewDetector builds a detector around the given signature lists.
func NewDetector(sigs Signatures) *Detector {
	return &Detector{sigs: sigs}
}

// Detect applies the checks in strict priority order, first match wins:
// captcha domains, rate limiting, anti-bot service domains, page title.
func (d *Detector) Detect(exchanges []*capture.Exchange, pageTitle string) Verdict {
	for _, ex := range exchanges {
		if fragment := matchFragment(ex.URL, d.sigs.CaptchaDomains); fragment != "" {
			return Verdict{
				Detected: true,
				Type:     TypeCaptcha,
				Details:  fmt.Sprintf("Captcha detected from domain: %s", hostnameOf(ex.URL)),
			}
		}
	}

	for _, ex := range exchanges {
		if ex.Status == 429 || d.hasRateLimitHeader(ex.ResponseHeaders) {
			return Verdict{
				Detected: true,
				Type:     TypeRateLimiting,
				Details:  fmt.Sprintf("Rate limiting detected with status code: %d", ex.Status),
			}
		}
	}

	for _, ex := range exchanges {
		if fragment := matchFragment(ex.URL, d.sigs.AntiBotDomains); fragment != "" {
			return Verdict{
				Detected: true,
				Type:     TypeBehavioral,
				Details:  fmt.Sprintf("Anti-bot service detected from domain: %s", hostnameOf(ex.URL)),
			}
		}
	}

	title := strings.ToLower(pageTitle)
	for _, phrase := range d.sigs.TitlePhrases {
		if strings.Contains(title, strings.ToLower(phrase)) {
			return Verdict{
				Detected: true,
				Type:     TypeCaptcha,
				Details:  "Captcha indicated in page title",
			}
		}
	}

	return Verdict{Detected: false}
}

func (d *Detector) hasRateLimitHeader(headers map[string]string) bool {
	for name := range headers {
		lower := strings.ToLower(name)
		for _, fragment := range d.sigs.RateLimitHeaders {
			if strings.Contains(lower, fragment) {
				return true
			}
		}
	}
	return false
}

func matchFragment(rawURL string, fragments []string) string {
	lower := strings.ToLower(rawURL)
	for _, fragment := range fragments {
		if strings.Contains(lower, strings.ToLower(fragment)) {
			return fragment
		}
	}
	return ""
}

func hostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}

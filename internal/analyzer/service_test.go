package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dgnsrekt/webscope/internal/browser"
	"github.com/dgnsrekt/webscope/internal/capture"
	"github.com/dgnsrekt/webscope/internal/report"
	"github.com/dgnsrekt/webscope/internal/security"
	"github.com/dgnsrekt/webscope/internal/store"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := store.NewMemory()
	svc := NewService(
		browser.NewManager(browser.Config{Headless: true}),
		st,
		security.NewDetector(security.DefaultSignatures()),
		nil,
		DefaultLimits(),
	)
	return svc, st
}

func storedReport(url string, exchanges ...*capture.Exchange) *report.Report {
	return report.Assemble(url, "Test", exchanges, "unknown", nil, security.NewDetector(security.DefaultSignatures()))
}

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://example.com",
		"http://example.com/path?q=1",
		"https://sub.example.com:8443/",
	}
	for _, u := range valid {
		if err := validateURL(u); err != nil {
			t.Fatalf("validateURL(%q) = %v; want nil", u, err)
		}
	}

	invalid := []string{
		"",
		"example.com",
		"/relative/path",
		"ftp://example.com/file",
		"not a url at all",
	}
	for _, u := range invalid {
		err := validateURL(u)
		if err == nil {
			t.Fatalf("validateURL(%q) = nil; want validation error", u)
		}
		var coded *CodedError
		if !errors.As(err, &coded) || coded.Code != CodeValidation {
			t.Fatalf("validateURL(%q) error = %v; want %s", u, err, CodeValidation)
		}
	}
}

func TestLimitsNormalized(t *testing.T) {
	t.Run("zero_values_take_defaults", func(t *testing.T) {
		got := Limits{}.normalized()
		if got != DefaultLimits() {
			t.Fatalf("normalized zero limits = %+v; want defaults", got)
		}
	})

	t.Run("explicit_values_kept", func(t *testing.T) {
		in := Limits{NavTimeout: 5 * time.Second, IdleTimeout: 2 * time.Second, MaxBodyChars: 100}
		if got := in.normalized(); got != in {
			t.Fatalf("normalized = %+v; want %+v", got, in)
		}
	})
}

func TestResolveWait(t *testing.T) {
	cases := []struct {
		name      string
		waitMS    int
		quickMode bool
		want      time.Duration
	}{
		{"default_passthrough", 3000, false, 3 * time.Second},
		{"clamped_to_ceiling", 15000, false, 10 * time.Second},
		{"negative_becomes_zero", -50, false, 0},
		{"zero_skips_wait", 0, false, 0},
		{"quick_mode_overrides_request", 15000, true, time.Second},
		{"quick_mode_overrides_zero", 0, true, time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveWait(tc.waitMS, tc.quickMode); got != tc.want {
				t.Fatalf("resolveWait(%d, %v) = %v; want %v", tc.waitMS, tc.quickMode, got, tc.want)
			}
		})
	}
}

func TestClassifyRunError(t *testing.T) {
	t.Run("deadline_exceeded_is_timeout", func(t *testing.T) {
		err := classifyRunError("https://example.com", context.DeadlineExceeded)
		var coded *CodedError
		if !errors.As(err, &coded) || coded.Code != CodeNavTimeout {
			t.Fatalf("error = %v; want %s", err, CodeNavTimeout)
		}
	})

	t.Run("timeout_message_is_timeout", func(t *testing.T) {
		err := classifyRunError("https://example.com", fmt.Errorf("page load timeout after 30s"))
		var coded *CodedError
		if !errors.As(err, &coded) || coded.Code != CodeNavTimeout {
			t.Fatalf("error = %v; want %s", err, CodeNavTimeout)
		}
	})

	t.Run("other_errors_become_analysis_failure", func(t *testing.T) {
		cause := fmt.Errorf("net::ERR_NAME_NOT_RESOLVED")
		err := classifyRunError("https://example.com", cause)
		var coded *CodedError
		if !errors.As(err, &coded) || coded.Code != CodeAnalysisFailure {
			t.Fatalf("error = %v; want %s", err, CodeAnalysisFailure)
		}
		if !errors.Is(err, cause) {
			t.Fatalf("original cause lost from %v", err)
		}
	})

	t.Run("coded_errors_pass_through", func(t *testing.T) {
		orig := newError(CodeValidation, "bad input", nil)
		if got := classifyRunError("https://example.com", orig); got != orig {
			t.Fatalf("coded error was rewrapped: %v", got)
		}
	})
}

func TestAnalyzeRejectsInvalidURLBeforeBrowserWork(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Analyze(context.Background(), AnalyzeParams{URL: "not-absolute"})

	var coded *CodedError
	if !errors.As(err, &coded) || coded.Code != CodeValidation {
		t.Fatalf("Analyze() error = %v; want %s", err, CodeValidation)
	}
}

func TestExtractElementsRejectsBadFilter(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ExtractElements(context.Background(), "https://example.com", "video")

	var coded *CodedError
	if !errors.As(err, &coded) || coded.Code != CodeValidation {
		t.Fatalf("ExtractElements() error = %v; want %s", err, CodeValidation)
	}
}

func TestReadToolsRequirePriorAnalysis(t *testing.T) {
	svc, _ := newTestService(t)

	t.Run("summary", func(t *testing.T) {
		_, err := svc.GetSummary("https://never-analyzed.example")
		var coded *CodedError
		if !errors.As(err, &coded) || coded.Code != CodeNotFound {
			t.Fatalf("GetSummary() error = %v; want %s", err, CodeNotFound)
		}
	})

	t.Run("by_domain", func(t *testing.T) {
		_, err := svc.GetByDomain("https://never-analyzed.example", "example.com")
		var coded *CodedError
		if !errors.As(err, &coded) || coded.Code != CodeNotFound {
			t.Fatalf("GetByDomain() error = %v; want %s", err, CodeNotFound)
		}
	})

	t.Run("details", func(t *testing.T) {
		_, err := svc.GetDetails("https://never-analyzed.example", "some-id")
		var coded *CodedError
		if !errors.As(err, &coded) || coded.Code != CodeNotFound {
			t.Fatalf("GetDetails() error = %v; want %s", err, CodeNotFound)
		}
	})
}

func TestReadToolsOverStoredReport(t *testing.T) {
	svc, st := newTestService(t)
	st.Set(storedReport("https://example.com",
		&capture.Exchange{ID: "r1", URL: "https://example.com/", Method: "GET", ResourceType: "document"},
		&capture.Exchange{ID: "r2", URL: "https://api.example.com/data", Method: "GET", ResourceType: "xhr"},
	))

	t.Run("by_domain_exact_match", func(t *testing.T) {
		got, err := svc.GetByDomain("https://example.com", "api.example.com")
		if err != nil {
			t.Fatalf("GetByDomain() = %v; want nil", err)
		}
		if len(got) != 1 || got[0].ID != "r2" {
			t.Fatalf("GetByDomain() = %+v; want only r2", got)
		}
	})

	t.Run("by_domain_requires_domain", func(t *testing.T) {
		_, err := svc.GetByDomain("https://example.com", "")
		var coded *CodedError
		if !errors.As(err, &coded) || coded.Code != CodeValidation {
			t.Fatalf("GetByDomain() error = %v; want %s", err, CodeValidation)
		}
	})

	t.Run("details_by_id", func(t *testing.T) {
		ex, err := svc.GetDetails("https://example.com", "r1")
		if err != nil || ex.URL != "https://example.com/" {
			t.Fatalf("GetDetails() = %v, %v", ex, err)
		}
	})

	t.Run("details_unknown_id", func(t *testing.T) {
		_, err := svc.GetDetails("https://example.com", "nope")
		var coded *CodedError
		if !errors.As(err, &coded) || coded.Code != CodeNotFound {
			t.Fatalf("GetDetails() error = %v; want %s", err, CodeNotFound)
		}
	})

	t.Run("summary_round_trip", func(t *testing.T) {
		sum, err := svc.GetSummary("https://example.com")
		if err != nil {
			t.Fatalf("GetSummary() = %v; want nil", err)
		}
		if sum.RequestSummary.TotalRequests != 2 {
			t.Fatalf("summary totalRequests = %d; want 2", sum.RequestSummary.TotalRequests)
		}
	})

	t.Run("clear_reports", func(t *testing.T) {
		if n := svc.ClearReports(); n != 1 {
			t.Fatalf("ClearReports() = %d; want 1", n)
		}
		if len(svc.ReportURLs()) != 0 {
			t.Fatalf("reports remain after clear")
		}
	})
}

func TestFetchRejectsInvalidURL(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Fetch(context.Background(), FetchParams{URL: "nope"})

	var coded *CodedError
	if !errors.As(err, &coded) || coded.Code != CodeValidation {
		t.Fatalf("Fetch() error = %v; want %s", err, CodeValidation)
	}
}

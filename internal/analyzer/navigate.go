package analyzer

import (
	"context"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/dgnsrekt/webscope/internal/capture"
)

// navigateDOMContentLoaded starts navigation and returns once the DOM
// content event fires, rather than waiting for the full load event. Bounded
// by timeout.
func navigateDOMContentLoaded(pageCtx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(pageCtx, timeout)
	defer cancel()

	domReady := make(chan struct{}, 1)
	chromedp.ListenTarget(navCtx, func(ev interface{}) {
		if _, ok := ev.(*page.EventDomContentEventFired); ok {
			select {
			case domReady <- struct{}{}:
			default:
			}
		}
	})

	err := chromedp.Run(navCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return &navigationError{url: url, reason: errText}
		}
		return nil
	}))
	if err != nil {
		return err
	}

	select {
	case <-domReady:
		return nil
	case <-navCtx.Done():
		return navCtx.Err()
	}
}

type navigationError struct {
	url    string
	reason string
}

func (e *navigationError) Error() string {
	return "navigation to " + e.url + " failed: " + e.reason
}

// waitForQuiescence blocks until the monitor reports no in-flight requests
// for a settle window, or the timeout lapses. Timing out is not an error;
// stabilization is best-effort.
func waitForQuiescence(ctx context.Context, monitor *capture.Monitor, timeout time.Duration) {
	deadline := time.After(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var quietSince time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			slog.Debug("network idle wait timed out, continuing", "in_flight", monitor.InFlight())
			return
		case now := <-ticker.C:
			if monitor.InFlight() > 0 {
				quietSince = time.Time{}
				continue
			}
			if quietSince.IsZero() {
				quietSince = now
				continue
			}
			if now.Sub(quietSince) >= idleSettle {
				return
			}
		}
	}
}

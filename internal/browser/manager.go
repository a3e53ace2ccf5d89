// Package browser owns the shared Chromium instance every analysis runs
// against.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"
)

// Config holds browser connection settings.
type Config struct {
	// CDPURL attaches to an already-running browser when set; otherwise a
	// headless instance is launched locally.
	CDPURL    string
	Headless  bool
	UserAgent string
}

// Manager lazily starts (or attaches to) one browser and hands out fresh
// page contexts. Initialization is idempotent; pages are opened against the
// shared allocator, whose own concurrency guarantees make concurrent opens
// safe.
type Manager struct {
	cfg Config

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
	started     bool
}

// NewManager creates a manager; nothing is launched until Ensure.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// Ensure initializes the shared browser, reusing it if already initialized.
func (m *Manager) Ensure(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	if m.cfg.CDPURL != "" {
		slog.Info("attaching to remote browser", "cdp_url", m.cfg.CDPURL)
		m.allocCtx, m.allocCancel = chromedp.NewRemoteAllocator(context.Background(), m.cfg.CDPURL)
	} else {
		opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		opts = append(opts,
			chromedp.Flag("headless", m.cfg.Headless),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.NoFirstRun,
		)
		if m.cfg.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(m.cfg.UserAgent))
		}
		slog.Info("launching browser", "headless", m.cfg.Headless)
		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	m.browserCtx, m.browserStop = chromedp.NewContext(m.allocCtx)
	if err := chromedp.Run(m.browserCtx); err != nil {
		m.teardownLocked()
		return fmt.Errorf("start browser: %w", err)
	}

	m.started = true
	slog.Info("browser ready")
	return nil
}

// NewPage returns a fresh page context sharing the browser. The cancel func
// closes the page; callers must invoke it on every exit path. The target is
// created lazily by the first action run against the context, so listeners
// registered beforehand observe the earliest requests.
func (m *Manager) NewPage() (context.Context, context.CancelFunc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil, nil, fmt.Errorf("browser not initialized")
	}
	pageCtx, cancel := chromedp.NewContext(m.browserCtx)
	return pageCtx, cancel, nil
}

// Shutdown releases the browser. Launched instances terminate; remote
// instances are only detached from.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	m.teardownLocked()
	m.started = false
	slog.Info("browser released")
}

func (m *Manager) teardownLocked() {
	if m.browserStop != nil {
		m.browserStop()
		m.browserStop = nil
	}
	if m.allocCancel != nil {
		m.allocCancel()
		m.allocCancel = nil
	}
}

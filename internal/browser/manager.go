package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/playpi/playpi/internal/config"
)

const shutdownGracePeriod = 15 * time.Second

// Manager owns the browser process and hands out tabs. It is the only
// component allowed to tear the shared browser down, and only after all
// outstanding tabs have been released.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu    sync.RWMutex
	pages map[string]*chromePage
	wg    sync.WaitGroup

	initOnce sync.Once
	initErr  error
}

// NewManager creates a browser manager. Launching the browser is deferred
// until the first page is requested.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
		pages:  make(map[string]*chromePage),
	}
}

// initialize launches Chrome through the exec allocator with the configured
// profile so cookies and login state persist across runs.
func (m *Manager) initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		profileDir, err := m.cfg.ProfileDir(m.cfg.Browser.Profile)
		if err != nil {
			m.initErr = fmt.Errorf("failed to resolve profile directory: %w", err)
			return
		}
		if err := os.MkdirAll(profileDir, 0o755); err != nil {
			m.initErr = fmt.Errorf("failed to create profile directory: %w", err)
			return
		}

		opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		opts = append(opts, chromedp.UserDataDir(profileDir))
		if !m.cfg.Browser.Headless {
			// The default allocator options force headless; login flows need a
			// visible window.
			opts = append(opts,
				chromedp.Flag("headless", false),
				chromedp.Flag("hide-scrollbars", false),
				chromedp.Flag("mute-audio", false),
			)
		}
		for _, arg := range m.cfg.Browser.Args {
			if key, value, ok := splitFlag(arg); ok {
				opts = append(opts, chromedp.Flag(key, value))
			}
		}

		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		m.allocCancel = allocCancel

		browserCtx, browserCancel := chromedp.NewContext(allocCtx,
			chromedp.WithLogf(func(format string, args ...interface{}) {
				m.logger.Debug(fmt.Sprintf(format, args...))
			}),
		)
		m.browserCtx = browserCtx
		m.browserCancel = browserCancel

		// Start the browser process eagerly so a broken install fails fast.
		// The first Run must see the plain browser context: chromedp ties the
		// browser lifetime to the context of the allocating Run call.
		if err := chromedp.Run(browserCtx); err != nil {
			m.initErr = fmt.Errorf("failed to launch browser: %w", err)
			browserCancel()
			allocCancel()
			return
		}

		m.logger.Info("Browser manager initialized.",
			zap.String("profile_dir", profileDir),
			zap.Bool("headless", m.cfg.Browser.Headless))
	})
	return m.initErr
}

// NewPage opens a fresh tab and returns it. The caller owns the tab for the
// duration of one request and must Close it.
func (m *Manager) NewPage(ctx context.Context) (Page, error) {
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)
	// Allocate the target on the plain tab context so later deadline-derived
	// contexts cannot take the tab down with them.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open new tab: %w", err)
	}
	// Headless Chrome refuses downloads unless DevTools hands the tab a
	// destination directory.
	if home, err := homedir.Dir(); err == nil {
		behavior := cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(filepath.Join(home, "Downloads"))
		if err := chromedp.Run(tabCtx, behavior); err != nil {
			m.logger.Debug("Failed to set download behavior.", zap.Error(err))
		}
	}

	pageID := uuid.New().String()
	page := &chromePage{
		ctx:    tabCtx,
		cancel: tabCancel,
		logger: m.logger.Named("page").With(zap.String("page_id", pageID)),
	}

	m.wg.Add(1)
	page.onClose = func() {
		m.mu.Lock()
		delete(m.pages, pageID)
		m.mu.Unlock()
		m.wg.Done()
	}

	m.mu.Lock()
	m.pages[pageID] = page
	m.mu.Unlock()

	m.logger.Debug("Opened new tab.", zap.String("page_id", pageID))
	return page, nil
}

// Shutdown closes all tabs and then the browser process. Graceful up to the
// provided context; forceful afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.browserCtx == nil {
		m.logger.Debug("Manager never initialized; nothing to shut down.")
		return nil
	}
	m.logger.Info("Shutting down browser manager.")

	m.mu.RLock()
	open := make([]*chromePage, 0, len(m.pages))
	for _, p := range m.pages {
		open = append(open, p)
	}
	m.mu.RUnlock()

	for _, p := range open {
		p.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Timeout waiting for tabs to close; forcing shutdown.", zap.Error(ctx.Err()))
	case <-time.After(shutdownGracePeriod):
		m.logger.Warn("Grace period elapsed waiting for tabs to close; forcing shutdown.")
	}

	m.browserCancel()
	m.allocCancel()
	m.logger.Info("Browser manager shutdown complete.")
	return nil
}

// splitFlag parses a --key=value or --key command line flag.
func splitFlag(arg string) (string, interface{}, bool) {
	if len(arg) < 3 || arg[:2] != "--" {
		return "", nil, false
	}
	body := arg[2:]
	for i := 0; i < len(body); i++ {
		if body[i] == '=' {
			return body[:i], body[i+1:], true
		}
	}
	return body, true, true
}

// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/mockpage/internal/browser/dom"
	"github.com/xkilldash9x/mockpage/internal/config"
)

// Manager creates pages and tracks them until they close.
type Manager struct {
	logger   *zap.Logger
	cfg      config.Interface
	registry *dom.Registry

	pages map[string]*Page
	mu    sync.RWMutex
}

// NewManager creates a page manager. Pages it creates can reference any
// behavior in registry.
func NewManager(logger *zap.Logger, cfg config.Interface, registry *dom.Registry) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if registry == nil {
		registry = dom.NewRegistry()
	}
	m := &Manager{
		logger:   logger.Named("browser_manager"),
		cfg:      cfg,
		registry: registry,
		pages:    make(map[string]*Page),
	}
	m.logger.Debug("Browser manager created.")
	return m
}

// Registry returns the behavior registry shared by the manager's pages.
func (m *Manager) Registry() *dom.Registry {
	return m.registry
}

// NewPage creates and tracks a fresh page. Closing the page removes it.
func (m *Manager) NewPage() *Page {
	opts := PageOptionsFromConfig(m.cfg, m.registry)
	page := NewPage(uuid.NewString(), m.logger, opts)

	page.onClose = func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.pages, page.ID())
		m.logger.Debug("Page removed from manager.", zap.String("page_id", page.ID()))
	}

	m.mu.Lock()
	m.pages[page.ID()] = page
	m.mu.Unlock()

	m.logger.Debug("New page created.", zap.String("page_id", page.ID()))
	return page
}

// Page returns a tracked page by ID.
func (m *Manager) Page(id string) (*Page, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[id]
	return p, ok
}

// Len returns the number of open pages.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages)
}

// Shutdown closes every open page concurrently.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	toClose := make([]*Page, 0, len(m.pages))
	for _, p := range m.pages {
		toClose = append(toClose, p)
	}
	m.mu.RUnlock()

	m.logger.Info("Shutting down browser manager.", zap.Int("open_pages", len(toClose)))

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range toClose {
		p := p
		g.Go(func() error {
			if err := p.Close(gctx); err != nil {
				m.logger.Warn("Error during page close in shutdown.", zap.String("page_id", p.ID()), zap.Error(err))
				return fmt.Errorf("failed to close page %s: %w", p.ID(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.logger.Info("Browser manager shutdown complete.")
	return nil
}

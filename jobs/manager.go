package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"catalog/models"
	"catalog/repository"

	"github.com/sourcegraph/conc/pool"
)

// ManagerConfig controls background work
type ManagerConfig struct {
	// WarmOnStart runs one warm-up pass when the manager starts
	WarmOnStart bool
	// WarmConcurrency bounds the warm-up operations running at once
	WarmConcurrency int
	// RunRetention prunes sync runs older than this on start. Zero keeps everything.
	RunRetention time.Duration
}

// Manager handles background job execution
type Manager struct {
	catalogSync *CatalogSync
	runRepo     *repository.SyncRunRepository
	config      ManagerConfig
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	mu          sync.RWMutex
}

// NewManager creates a new job manager. runRepo may be nil.
func NewManager(catalogSync *CatalogSync, runRepo *repository.SyncRunRepository, config ManagerConfig) *Manager {
	if config.WarmConcurrency < 1 {
		config.WarmConcurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		catalogSync: catalogSync,
		runRepo:     runRepo,
		config:      config,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins background processing
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		log.Println("Job manager is already running")
		return
	}

	if m.ctx.Err() != nil {
		m.ctx, m.cancel = context.WithCancel(context.Background())
	}

	m.running = true
	log.Println("Starting job manager...")

	m.pruneRuns()

	if m.config.WarmOnStart && m.catalogSync != nil {
		ctx := m.ctx
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.Warm(ctx); err != nil {
				log.Printf("Warm-up finished with errors: %v", err)
			}
		}()
	}
}

// Stop cancels in-flight work and waits for it to finish
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Println("Stopping job manager...")
	m.cancel()
	m.running = false

	m.wg.Wait()
	log.Println("Job manager stopped")
}

// IsRunning returns whether the job manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Warm ingests the first page of popular movies, popular shows and weekly
// trending as independent operations. It only adds missing records.
func (m *Manager) Warm(ctx context.Context) error {
	if m.catalogSync == nil {
		return fmt.Errorf("no catalog sync configured")
	}

	log.Println("Warming catalog...")
	start := time.Now()

	p := pool.New().
		WithMaxGoroutines(m.config.WarmConcurrency).
		WithContext(ctx)

	p.Go(func(ctx context.Context) error {
		_, err := m.catalogSync.SyncPopular(ctx, models.KindMovie, 1)
		return err
	})
	p.Go(func(ctx context.Context) error {
		_, err := m.catalogSync.SyncPopular(ctx, models.KindTV, 1)
		return err
	})
	p.Go(func(ctx context.Context) error {
		_, err := m.catalogSync.SyncTrending(ctx, DefaultTrendingWindow)
		return err
	})

	err := p.Wait()
	log.Printf("Catalog warm-up took %v", time.Since(start))
	return err
}

// pruneRuns drops sync runs past the retention window
func (m *Manager) pruneRuns() {
	if m.runRepo == nil || m.config.RunRetention <= 0 {
		return
	}

	deleted, err := m.runRepo.DeleteOlderThan(m.ctx, m.config.RunRetention)
	if err != nil {
		log.Printf("Failed to prune sync runs: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Pruned %d sync runs older than %v", deleted, m.config.RunRetention)
	}
}

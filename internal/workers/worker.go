package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRunTimeout bounds a single worker run.
const DefaultRunTimeout = 10 * time.Minute

// Worker is a periodic background job.
type Worker interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// WorkerManager runs each registered worker on its own ticker.
type WorkerManager struct {
	workers    []Worker
	runTimeout time.Duration
	log        zerolog.Logger
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
}

func NewWorkerManager(log zerolog.Logger) *WorkerManager {
	return &WorkerManager{
		workers:    []Worker{},
		runTimeout: DefaultRunTimeout,
		log:        log.With().Str("component", "workers").Logger(),
	}
}

func (wm *WorkerManager) RegisterWorker(w Worker) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wm.workers = append(wm.workers, w)
	wm.log.Info().Str("worker", w.Name()).Dur("interval", w.Interval()).Msg("✅ worker registered")
}

// Start launches every registered worker. Each runs once immediately and
// then on every tick until ctx is cancelled or Stop is called.
func (wm *WorkerManager) Start(ctx context.Context) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	ctx, wm.cancel = context.WithCancel(ctx)
	wm.log.Info().Int("count", len(wm.workers)).Msg("🚀 starting workers")

	for _, w := range wm.workers {
		wm.wg.Add(1)
		go wm.runWorker(ctx, w)
	}
}

func (wm *WorkerManager) runWorker(ctx context.Context, w Worker) {
	defer wm.wg.Done()

	ticker := time.NewTicker(w.Interval())
	defer ticker.Stop()

	wm.executeWorker(ctx, w)

	for {
		select {
		case <-ticker.C:
			wm.executeWorker(ctx, w)
		case <-ctx.Done():
			wm.log.Info().Str("worker", w.Name()).Msg("🛑 worker stopped")
			return
		}
	}
}

func (wm *WorkerManager) executeWorker(ctx context.Context, w Worker) {
	ctx, cancel := context.WithTimeout(ctx, wm.runTimeout)
	defer cancel()

	start := time.Now()
	if err := w.Run(ctx); err != nil {
		wm.log.Error().Err(err).Str("worker", w.Name()).Msg("❌ worker run failed")
		return
	}
	wm.log.Debug().Str("worker", w.Name()).Dur("duration", time.Since(start)).Msg("worker run finished")
}

// Stop cancels all workers and waits for in-flight runs to return.
func (wm *WorkerManager) Stop() {
	wm.mu.Lock()
	cancel := wm.cancel
	wm.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	wm.wg.Wait()
	wm.log.Info().Msg("✅ all workers stopped")
}

type WorkerStats struct {
	TotalWorkers int      `json:"totalWorkers"`
	WorkerNames  []string `json:"workerNames"`
}

func (wm *WorkerManager) GetStats() WorkerStats {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	names := make([]string, len(wm.workers))
	for i, w := range wm.workers {
		names[i] = w.Name()
	}
	return WorkerStats{TotalWorkers: len(wm.workers), WorkerNames: names}
}

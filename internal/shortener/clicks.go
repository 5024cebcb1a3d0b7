package shortener

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ClickConfig tunes the asynchronous click recorder.
type ClickConfig struct {
	Workers       int
	Buffer        int
	BatchSize     int
	FlushInterval time.Duration
	// Timeout bounds each store increment.
	Timeout time.Duration
}

func (c ClickConfig) withDefaults() ClickConfig {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.Buffer <= 0 {
		c.Buffer = 1024
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 250 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	return c
}

// ClickRecorder applies best-effort click increments off the request path.
// Each worker folds clicks per code and flushes them as a single "add N".
// Failures are logged and dropped.
type ClickRecorder struct {
	store  LinkStore
	cfg    ClickConfig
	logger *slog.Logger

	events chan string
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewClickRecorder(store LinkStore, cfg ClickConfig, logger *slog.Logger) *ClickRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	r := &ClickRecorder{
		store:  store,
		cfg:    cfg,
		logger: logger,
		events: make(chan string, cfg.Buffer),
	}
	r.logger.Info("starting click workers", "workers", cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return r
}

// Record queues one click for code. It never blocks; when the buffer is full
// or the recorder is closed the click is dropped and logged.
func (r *ClickRecorder) Record(code string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("click dropped, recorder closed", "code", code)
		return
	}
	select {
	case r.events <- code:
	default:
		r.logger.Warn("click dropped, buffer full", "code", code)
	}
}

// Close stops accepting clicks and waits for queued ones to be flushed or ctx to end.
func (r *ClickRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *ClickRecorder) worker(id int) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	pending := make(map[string]int64)
	queued := 0
	for {
		select {
		case code, ok := <-r.events:
			if !ok {
				r.flush(id, pending)
				return
			}
			pending[code]++
			queued++
			if queued >= r.cfg.BatchSize {
				r.flush(id, pending)
				queued = 0
			}
		case <-ticker.C:
			r.flush(id, pending)
			queued = 0
		}
	}
}

func (r *ClickRecorder) flush(id int, pending map[string]int64) {
	for code, n := range pending {
		delete(pending, code)
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
		_, err := r.store.IncrementClicks(ctx, code, n)
		cancel()
		switch {
		case err == nil:
		case errors.Is(err, ErrRecordNotFound):
			r.logger.Debug("click for deleted link dropped", "worker", id, "code", code, "clicks", n)
		default:
			r.logger.Warn("async click increment failed", "worker", id, "code", code, "clicks", n, "error", err)
		}
	}
}

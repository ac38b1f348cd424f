package journal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultQueue     = 1024
	defaultBatchSize = 100
	defaultFlush     = 2 * time.Second
)

// WriterOptions tunes a Writer. Zero values pick the defaults.
type WriterOptions struct {
	Queue     int
	BatchSize int
	Flush     time.Duration
}

// Writer inserts records of type T asynchronously in batches. Records are
// flushed when a batch fills, on every Flush interval and on Stop.
type Writer[T any] struct {
	db       *gorm.DB
	name     string
	ch       chan *T
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	batch    int
	flush    time.Duration
	logger   *zap.Logger
}

// NewWriter creates a Writer and starts its background worker.
func NewWriter[T any](db *gorm.DB, name string, opts WriterOptions, logger *zap.Logger) *Writer[T] {
	if opts.Queue <= 0 {
		opts.Queue = defaultQueue
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Flush <= 0 {
		opts.Flush = defaultFlush
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Writer[T]{
		db:     db,
		name:   name,
		ch:     make(chan *T, opts.Queue),
		stopCh: make(chan struct{}),
		batch:  opts.BatchSize,
		flush:  opts.Flush,
		logger: logger,
	}
	w.wg.Add(1)
	go w.worker()
	return w
}

// Write enqueues a record. It never blocks: when the queue is full the record
// is dropped and false is returned.
func (w *Writer[T]) Write(rec *T) bool {
	select {
	case <-w.stopCh:
		return false
	default:
	}
	select {
	case w.ch <- rec:
		return true
	default:
		w.logger.Warn("journal queue full, dropping record", zap.String("writer", w.name))
		return false
	}
}

// Stop flushes remaining records and shuts down the worker. It blocks until
// the worker has finished or ctx is done.
func (w *Writer[T]) Stop(ctx context.Context) {
	w.stopOnce.Do(func() { close(w.stopCh) })
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("journal stop timed out", zap.String("writer", w.name))
	}
}

func (w *Writer[T]) worker() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.flush)
	defer ticker.Stop()

	batch := make([]*T, 0, w.batch)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.db.CreateInBatches(batch, w.batch).Error; err != nil {
			w.logger.Error("journal batch write failed",
				zap.String("writer", w.name), zap.Int("records", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-w.ch:
			batch = append(batch, rec)
			if len(batch) >= w.batch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-w.stopCh:
			for {
				select {
				case rec := <-w.ch:
					batch = append(batch, rec)
					if len(batch) >= w.batch {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

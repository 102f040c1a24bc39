package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Handler processes one task on the worker that owns it.
type Handler[T any] func(ctx context.Context, task T) error

// Setup builds the per-worker handler and its cleanup. State created here is
// only touched by that worker's goroutine.
type Setup[T any] func(ctx context.Context, workerID int) (Handler[T], func(), error)

type Report struct {
	Processed int
	Failed    int
	Skipped   int
	// FirstErr is the first failure observed in time, including setup failures.
	FirstErr error
}

// Pool runs tasks on a fixed number of workers fed through a bounded queue.
// A worker stops at its first failure; its siblings keep draining the queue.
type Pool[T any] struct {
	size      int
	queueSize int
	logger    *zap.Logger
}

func NewPool[T any](size, queueSize int, logger *zap.Logger) *Pool[T] {
	if size < 1 {
		size = 1
	}
	if queueSize < 1 {
		queueSize = size
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool[T]{size: size, queueSize: queueSize, logger: logger}
}

func (p *Pool[T]) Size() int {
	return p.size
}

// Run blocks until every worker has exited. Cancelling ctx stops feeding the
// queue; queued tasks are then skipped without running.
func (p *Pool[T]) Run(ctx context.Context, tasks []T, setup Setup[T]) Report {
	queue := make(chan T, p.queueSize)
	rec := &recorder{}

	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go p.worker(ctx, i, queue, setup, rec, &wg)
	}

	workersDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(workersDone)
	}()

feed:
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			break feed
		case <-workersDone:
			break feed
		case queue <- task:
		}
	}
	close(queue)
	<-workersDone

	processed := int(rec.processed.Load())
	failed := int(rec.failed.Load())
	return Report{
		Processed: processed,
		Failed:    failed,
		Skipped:   len(tasks) - processed - failed,
		FirstErr:  rec.firstErr(),
	}
}

func (p *Pool[T]) worker(ctx context.Context, id int, queue <-chan T, setup Setup[T], rec *recorder, wg *sync.WaitGroup) {
	defer wg.Done()
	log := p.logger.With(zap.Int("worker_id", id))

	handle, cleanup, err := setup(ctx, id)
	if err != nil {
		log.Warn("worker setup failed", zap.Error(err))
		rec.fail(err, false)
		return
	}
	if cleanup != nil {
		defer cleanup()
	}
	log.Debug("worker started")

	for task := range queue {
		if ctx.Err() != nil {
			continue
		}
		if err := handle(ctx, task); err != nil {
			log.Warn("task failed, stopping worker", zap.Error(err))
			rec.fail(err, true)
			return
		}
		rec.processed.Add(1)
	}
	log.Debug("worker finished")
}

type recorder struct {
	processed atomic.Int64
	failed    atomic.Int64

	mu  sync.Mutex
	err error
}

func (r *recorder) fail(err error, countTask bool) {
	if countTask {
		r.failed.Add(1)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

func (r *recorder) firstErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

package persist

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrQueueFull is returned by Queue.Commit when the buffer is full.
var ErrQueueFull = errors.New("persist: write queue full")

// ErrQueueClosed is returned by Queue.Commit after Close.
var ErrQueueClosed = errors.New("persist: write queue closed")

// DefaultQueueSize is the number of batches buffered ahead of the writer.
const DefaultQueueSize = 256

// QueueStats counts batches by outcome.
type QueueStats struct {
	Committed int64
	Failed    int64
	Dropped   int64
}

type queueJob struct {
	updates []Update
	queued  time.Time
}

// Queue makes commits fire-and-forget: Commit only enqueues, a single worker
// applies batches in order and logs failures. Nothing is retried.
type Queue struct {
	next    Committer
	jobs    chan queueJob
	timeout time.Duration
	log     logrus.FieldLogger

	wg     sync.WaitGroup
	sendMu sync.RWMutex
	closed bool
	done   chan struct{}

	committed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	mu      sync.Mutex
	lastErr error
}

// NewQueue starts the worker. size <= 0 uses DefaultQueueSize; timeout bounds
// each commit (0 disables).
func NewQueue(next Committer, size int, timeout time.Duration, log logrus.FieldLogger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	q := &Queue{
		next:    next,
		jobs:    make(chan queueJob, size),
		timeout: timeout,
		log:     log,
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Commit enqueues updates and returns immediately. The error only reports
// whether the batch was accepted.
func (q *Queue) Commit(_ context.Context, updates []Update) error {
	if len(updates) == 0 {
		return nil
	}
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	batch := make([]Update, len(updates))
	copy(batch, updates)

	q.wg.Add(1)
	select {
	case q.jobs <- queueJob{updates: batch, queued: time.Now()}:
		return nil
	default:
		q.wg.Done()
		q.dropped.Add(1)
		q.log.WithFields(logrus.Fields{"updates": len(updates)}).Warn("write queue full, batch refused")
		return ErrQueueFull
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for job := range q.jobs {
		q.process(job)
	}
}

func (q *Queue) process(job queueJob) {
	defer q.wg.Done()
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	err := q.next.Commit(ctx, job.updates)

	q.mu.Lock()
	q.lastErr = err
	q.mu.Unlock()

	if err != nil {
		q.failed.Add(1)
		q.log.WithError(err).WithFields(logrus.Fields{
			"updates": len(job.updates),
			"waited":  time.Since(job.queued).String(),
		}).Error("batch write failed")
		return
	}
	q.committed.Add(1)
}

// Wait blocks until every accepted batch has been processed or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	ch := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Healthy reports whether the most recent write succeeded. It backs the
// connection status shown to users.
func (q *Queue) Healthy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErr == nil
}

// LastError returns the error of the most recent write, if any.
func (q *Queue) LastError() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErr
}

func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Committed: q.committed.Load(),
		Failed:    q.failed.Load(),
		Dropped:   q.dropped.Load(),
	}
}

// Close stops accepting batches and waits for the worker to drain.
func (q *Queue) Close() {
	q.sendMu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.sendMu.Unlock()
	<-q.done
}

// Package dispatch runs compilation contexts on a pool of worker goroutines
// and delivers results through futures or a pair of callbacks.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"sassgo/compiler"
	"sassgo/diag"
	"sassgo/source"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("dispatcher is closed")

// Config sizes the pool. Zero workers means one per CPU, zero queue size
// means submitters wait for an idle worker.
type Config struct {
	Workers   int
	QueueSize int
}

// Future is pending compilation result.
type Future struct {
	id   uuid.UUID
	done chan struct{}
	res  compiler.Result
}

func newFuture(id uuid.UUID) *Future {
	return &Future{id: id, done: make(chan struct{})}
}

func (f *Future) complete(res compiler.Result) {
	f.res = res
	close(f.done)
}

// ID is the compilation context ID.
func (f *Future) ID() uuid.UUID {
	return f.id
}

// Done is closed when result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until result is available or ctx is done. Giving up waiting
// does not stop compilation.
func (f *Future) Wait(ctx context.Context) (compiler.Result, error) {
	select {
	case <-f.done:
		return f.res, nil
	case <-ctx.Done():
		return compiler.Result{}, ctx.Err()
	}
}

// SuccessFunc receives output of successful compilation.
type SuccessFunc func(*compiler.Output)

// ErrorFunc receives compilation failure.
type ErrorFunc func(*diag.Error)

type job struct {
	c      *compiler.Context
	fut    *Future
	notify func(compiler.Result)
}

// Dispatcher owns worker goroutines. Compilations are independent, each one
// runs to completion on a single worker.
type Dispatcher struct {
	log     *zap.Logger
	metrics *metrics
	jobs    chan job
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts workers. Metrics are registered with reg unless it is nil.
func New(cfg Config, log *zap.Logger, reg prometheus.Registerer) (*Dispatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	m, err := newMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("unable to register dispatcher metrics: %w", err)
	}

	d := &Dispatcher{
		log:     log.Named("dispatch"),
		metrics: m,
		jobs:    make(chan job, cfg.QueueSize),
	}
	for i := range cfg.Workers {
		d.wg.Go(func() { d.worker(i) })
	}
	d.log.Debug("Dispatcher started", zap.Int("workers", cfg.Workers), zap.Int("queue", cfg.QueueSize))
	return d, nil
}

func (d *Dispatcher) worker(id int) {
	for j := range d.jobs {
		d.execute(id, j)
	}
}

func (d *Dispatcher) execute(worker int, j job) {
	log := d.log.With(zap.Int("worker", worker), zap.Stringer("job", j.c.ID()))
	log.Debug("Compilation started", zap.Stringer("entry", j.c.Entry()))

	d.metrics.inFlight.Inc()
	start := time.Now()
	res := j.c.Run()
	elapsed := time.Since(start)
	d.metrics.inFlight.Dec()

	result := "success"
	if res.Err != nil {
		result = "failure"
	}
	d.metrics.compilations.WithLabelValues(j.c.Options().OutputStyle.String(), result).Inc()
	d.metrics.duration.Observe(elapsed.Seconds())
	log.Debug("Compilation done", zap.String("result", result), zap.Duration("elapsed", elapsed))

	if j.notify != nil {
		d.deliver(log, j.notify, res)
	}
	j.fut.complete(res)
}

// deliver calls notification, panics in user code are logged and swallowed
// so worker survives.
func (d *Dispatcher) deliver(log *zap.Logger, notify func(compiler.Result), res compiler.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Result callback panicked", zap.Any("panic", r))
		}
	}()
	notify(res)
}

// Submit queues context for execution. It blocks while queue is full, ctx
// bounds only this wait.
func (d *Dispatcher) Submit(ctx context.Context, c *compiler.Context) (*Future, error) {
	return d.submit(ctx, c, nil)
}

func (d *Dispatcher) submit(ctx context.Context, c *compiler.Context, notify func(compiler.Result)) (*Future, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, ErrClosed
	}
	fut := newFuture(c.ID())
	select {
	case d.jobs <- job{c: c, fut: fut, notify: notify}:
		d.log.Debug("Compilation queued", zap.Stringer("job", c.ID()))
		return fut, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CompileAsync compiles inline stylesheet on a worker. Exactly one of the
// callbacks is called exactly once, after compilation completes. When work
// cannot be queued onError is called from the calling goroutine. Returned
// future is always valid.
func (d *Dispatcher) CompileAsync(ctx context.Context, src string, opts compiler.Options, onSuccess SuccessFunc, onError ErrorFunc) *Future {
	return d.async(ctx, compiler.NewContext(source.Text(src), opts, d.log), onSuccess, onError)
}

// CompileFileAsync is CompileAsync for stylesheet file.
func (d *Dispatcher) CompileFileAsync(ctx context.Context, path string, opts compiler.Options, onSuccess SuccessFunc, onError ErrorFunc) *Future {
	return d.async(ctx, compiler.NewContext(source.Path(path), opts, d.log), onSuccess, onError)
}

func (d *Dispatcher) async(ctx context.Context, c *compiler.Context, onSuccess SuccessFunc, onError ErrorFunc) *Future {
	var once sync.Once
	notify := func(res compiler.Result) {
		once.Do(func() {
			if res.Err != nil {
				if onError != nil {
					onError(res.Err)
				}
				return
			}
			if onSuccess != nil {
				onSuccess(res.Output)
			}
		})
	}

	fut, err := d.submit(ctx, c, notify)
	if err == nil {
		return fut
	}

	d.log.Debug("Compilation rejected", zap.Stringer("job", c.ID()), zap.Error(err))
	res := compiler.Result{Err: diag.Wrap(diag.KindInternal, diag.Location{}, err, "compilation was not started")}
	fut = newFuture(c.ID())
	d.deliver(d.log, notify, res)
	fut.complete(res)
	return fut
}

// Close stops accepting work and waits for queued and running compilations.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Debug("Dispatcher stopped")
}

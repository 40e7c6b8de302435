package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/hoopvision/internal/adapters/mq/queue"
	"github.com/okian/hoopvision/internal/domain/identity"
	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/pkg/logger"
	"github.com/okian/hoopvision/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// ErrSkipped is returned by a Decoder for records that are read but not analyzed.
var ErrSkipped = errors.New("record skipped")

// Decoder turns one raw record into a frame.
type Decoder interface {
	Decode(ctx context.Context, payload []byte) (model.Frame, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, payload []byte) (model.Frame, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, payload []byte) (model.Frame, error) {
	return f(ctx, payload)
}

// Handler consumes frames strictly in input order, one at a time.
type Handler interface {
	Handle(ctx context.Context, frame model.Frame) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, frame model.Frame) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, frame model.Frame) error {
	return f(ctx, frame)
}

// Queue defines how workers receive records.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Item
}

// Stats counts what the pool did with its input.
type Stats struct {
	Handled int64 `json:"handled"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

type result struct {
	seq   int64
	frame model.Frame
	err   error
}

// Pool runs decode workers and an in-order sequencer feeding one Handler.
type Pool struct {
	size       int
	queue      Queue
	decoder    Decoder
	handler    Handler
	recognizer identity.Recognizer

	results chan result
	done    chan struct{}
	workers sync.WaitGroup

	handled atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64

	logger logger.Logger
}

// NewPool creates a pool of workerCount decoders. workerCount < 1 uses
// runtime.NumCPU().
func NewPool(workerCount int, q Queue, dec Decoder, h Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		size:    workerCount,
		queue:   q,
		decoder: dec,
		handler: h,
		results: make(chan result, workerCount*2),
		done:    make(chan struct{}),
		logger:  logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches the workers and the sequencer.
func (p *Pool) Start(ctx context.Context) {
	items := p.queue.Dequeue(ctx)
	for i := 0; i < p.size; i++ {
		p.workers.Add(1)
		go p.runWorker(ctx, "worker-"+strconv.Itoa(i), items)
	}
	go func() {
		p.workers.Wait()
		close(p.results)
	}()
	go p.sequence(ctx)
}

// Wait blocks until every record has been handled or ctx ends.
func (p *Pool) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown closes the queue if it supports closing and waits for the pool to
// drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	if err := p.Wait(ctx); err != nil {
		p.logger.Warn(ctx, "pool shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", err)
	}
	return nil
}

// Stats returns the current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Handled: p.handled.Load(),
		Skipped: p.skipped.Load(),
		Failed:  p.failed.Load(),
	}
}

func (p *Pool) runWorker(ctx context.Context, name string, items <-chan queue.Item) {
	defer p.workers.Done()
	log := p.logger.Named(name)

	for it := range items {
		res := result{seq: it.Seq}
		res.frame, res.err = p.decoder.Decode(ctx, it.Payload)
		if res.err == nil && p.recognizer != nil {
			p.recognize(ctx, &res.frame)
		}
		if res.err != nil && !errors.Is(res.err, ErrSkipped) {
			log.Debug(ctx, "decode failed", logger.Int64("seq", it.Seq), logger.Error(res.err))
		}
		select {
		case p.results <- res:
		case <-ctx.Done():
			return
		}
	}
}

// recognize fills readings for tracks the upstream tracker left unread.
func (p *Pool) recognize(ctx context.Context, frame *model.Frame) {
	for i := range frame.Tracks {
		tr := &frame.Tracks[i]
		if tr.Reading != nil {
			continue
		}
		if reading, ok := p.recognizer.Recognize(ctx, *frame, *tr); ok {
			tr.Reading = &reading
		}
	}
}

// sequence reorders worker results by seq and hands them to the handler.
// Sequence numbers must be contiguous from zero.
func (p *Pool) sequence(ctx context.Context) {
	defer close(p.done)

	pending := make(map[int64]result)
	var next int64
	for res := range p.results {
		pending[res.seq] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			p.deliver(ctx, r)
		}
	}
	if len(pending) > 0 {
		p.logger.Warn(ctx, "records left unsequenced", logger.Int("count", len(pending)), logger.Int64("next", next))
	}
}

func (p *Pool) deliver(ctx context.Context, r result) {
	switch {
	case errors.Is(r.err, ErrSkipped):
		p.skipped.Add(1)
		return
	case r.err != nil:
		p.failed.Add(1)
		metrics.RecordWorkerError("decode")
		return
	}
	if err := p.handler.Handle(ctx, r.frame); err != nil {
		p.failed.Add(1)
		metrics.RecordWorkerError("handle")
		p.logger.Warn(ctx, "frame rejected",
			logger.Int64("frame", r.frame.Index),
			logger.Error(err),
		)
		return
	}
	p.handled.Add(1)
}

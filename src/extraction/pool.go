package extraction

import (
	"context"

	"github.com/username/mindfolio/backend/src/logger"
)

type extractJob struct {
	ctx   context.Context
	data  []byte
	reply chan extractResult
}

type extractResult struct {
	lines []string
	err   error
}

// WorkerPool runs extractions on a fixed set of worker goroutines so a
// large PDF does not stall the request path's peers. Each call suspends
// the caller until its job is answered. When the pool cannot take the job
// (saturated queue or closed pool) the call falls back to in-process
// extraction rather than failing.
type WorkerPool struct {
	inner TextExtractor
	jobs  chan extractJob
	done  chan struct{}
}

func NewWorkerPool(inner TextExtractor, workers int) *WorkerPool {
	p := &WorkerPool{
		inner: inner,
		jobs:  make(chan extractJob, workers),
		done:  make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	for {
		select {
		case job := <-p.jobs:
			lines, err := p.inner.ExtractTextLines(job.ctx, job.data)
			job.reply <- extractResult{lines: lines, err: err}
		case <-p.done:
			return
		}
	}
}

func (p *WorkerPool) ExtractTextLines(ctx context.Context, data []byte) ([]string, error) {
	job := extractJob{ctx: ctx, data: data, reply: make(chan extractResult, 1)}

	select {
	case p.jobs <- job:
	case <-p.done:
		logger.L.Warn("Extraction pool closed, extracting in-process")
		return p.inner.ExtractTextLines(ctx, data)
	default:
		logger.L.Debug("Extraction pool saturated, extracting in-process")
		return p.inner.ExtractTextLines(ctx, data)
	}

	select {
	case res := <-job.reply:
		return res.lines, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the workers. In-flight jobs finish; later calls run
// in-process.
func (p *WorkerPool) Close() {
	close(p.done)
}

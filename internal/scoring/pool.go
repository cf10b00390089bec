package scoring

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"twitsent/pkg/logger"
	"twitsent/pkg/sentiment"
)

// Job is one text to score, addressed by its position in the interval grid
type Job struct {
	Interval int
	Index    int
	Text     string
}

// Result carries the score for a job
type Result struct {
	Job   Job
	Score float64
}

// WorkerPool scores texts concurrently
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	scorer      sentiment.Scorer
	processed   atomic.Int64
	logger      logger.Logger
}

// NewWorkerPool creates a pool bound to ctx. Cancelling ctx stops the workers.
func NewWorkerPool(ctx context.Context, numWorkers int, scorer sentiment.Scorer, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2), // Buffer size = 2x workers
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		scorer:      scorer,
		logger:      log,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting scoring pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue, waits for the workers to drain it and closes Results.
// It must be called exactly once, by the goroutine that submits jobs.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.DebugWithFields("Scoring pool stopped", map[string]interface{}{
		"processed": wp.processed.Load(),
	})
}

// Submit queues a job, blocking while the queue is full.
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("scoring pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the channel scores are delivered on, in completion order.
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

// Processed is the number of jobs scored so far.
func (wp *WorkerPool) Processed() int64 {
	return wp.processed.Load()
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			wp.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		result := Result{Job: job, Score: wp.scorer.Score(job.Text)}
		wp.processed.Add(1)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// ScoreIntervals scores every text on a pool of numWorkers and returns the
// scores in the same interval/position layout as texts.
func ScoreIntervals(ctx context.Context, numWorkers int, scorer sentiment.Scorer, texts [][]string, log logger.Logger) ([][]float64, error) {
	out := make([][]float64, len(texts))
	total := 0
	for i, interval := range texts {
		out[i] = make([]float64, len(interval))
		total += len(interval)
	}
	if total == 0 {
		return out, nil
	}

	start := time.Now()
	pool := NewWorkerPool(ctx, numWorkers, scorer, log)
	pool.Start()

	submitErr := make(chan error, 1)
	go func() {
		defer pool.Stop()
		for i, interval := range texts {
			for j, text := range interval {
				if err := pool.Submit(Job{Interval: i, Index: j, Text: text}); err != nil {
					submitErr <- err
					return
				}
			}
		}
		submitErr <- nil
	}()

	received := 0
	for result := range pool.Results() {
		out[result.Job.Interval][result.Job.Index] = result.Score
		received++
	}

	if err := <-submitErr; err != nil {
		return nil, err
	}
	if received != total {
		return nil, fmt.Errorf("scoring interrupted after %d of %d texts: %w", received, total, ctx.Err())
	}

	pool.logger.DebugWithFields("Scored texts", map[string]interface{}{
		"texts":    total,
		"workers":  pool.numWorkers,
		"duration": time.Since(start).String(),
	})
	return out, nil
}

package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
	"github.com/dthrottle/spy-leaps-monitor/pkg/types"
)

// WorkerPool runs independent backtests over shared read-only series
type WorkerPool struct {
	workerCount int
	jobQueue    chan BacktestJob
	resultQueue chan BacktestResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	underlying types.PriceSeries
	vix        types.PriceSeries
}

// BacktestJob is one parameter combination to simulate
type BacktestJob struct {
	Index  int
	ID     string
	Params map[string]float64
	Config config.StrategyConfig
	// Err is set when the combination could not be built; the job then fails without running
	Err error
}

// BacktestResult is the outcome of one job. Exactly one of Result and Error is set.
type BacktestResult struct {
	Index    int                   `json:"index"`
	ID       string                `json:"id"`
	Params   map[string]float64    `json:"params"`
	Config   config.StrategyConfig `json:"config"`
	Result   *Result               `json:"-"`
	Metrics  Metrics               `json:"metrics"`
	Duration time.Duration         `json:"duration"`
	Error    error                 `json:"-"`
}

// NewWorkerPool creates a pool bound to ctx. workerCount <= 0 uses one worker per CPU.
func NewWorkerPool(ctx context.Context, workerCount, jobBufferSize int, underlying, vix types.PriceSeries) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount: workerCount,
		jobQueue:    make(chan BacktestJob, jobBufferSize),
		resultQueue: make(chan BacktestResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
		underlying:  underlying,
		vix:         vix,
	}
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// CloseJobs signals that no more jobs will be submitted. The result channel
// closes once every worker has drained.
func (wp *WorkerPool) CloseJobs() {
	close(wp.jobQueue)
	go func() {
		wp.wg.Wait()
		close(wp.resultQueue)
	}()
}

// Stop cancels in-flight work
func (wp *WorkerPool) Stop() {
	wp.cancel()
}

// SubmitJob submits a backtest job to the pool
func (wp *WorkerPool) SubmitJob(job BacktestJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// GetResults returns the result channel for collecting completed jobs
func (wp *WorkerPool) GetResults() <-chan BacktestResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.processJob(job)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob runs one combination; a panic fails only that combination
func (wp *WorkerPool) processJob(job BacktestJob) (result BacktestResult) {
	startTime := time.Now()

	result = BacktestResult{
		Index:  job.Index,
		ID:     job.ID,
		Params: job.Params,
		Config: job.Config,
	}
	defer func() {
		if r := recover(); r != nil {
			result.Result = nil
			result.Error = fmt.Errorf("backtest %s panicked: %v", job.ID, r)
		}
		result.Duration = time.Since(startTime)
	}()

	if job.Err != nil {
		result.Error = job.Err
		return result
	}

	engine, err := NewBacktestEngine(job.Config)
	if err != nil {
		result.Error = err
		return result
	}

	res, err := engine.Run(wp.ctx, wp.underlying, wp.vix)
	if err != nil {
		result.Error = err
		return result
	}

	result.Result = res
	result.Metrics = ResultMetrics(res)
	return result
}

// ProgressTracker tracks the progress of a sweep
type ProgressTracker struct {
	total     int
	completed int
	failed    int
	startTime time.Time
	mutex     sync.RWMutex
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
	}
}

// Increment records one finished job
func (pt *ProgressTracker) Increment(failed bool) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()
	pt.completed++
	if failed {
		pt.failed++
	}
}

// GetProgress returns completed, failed, total and percent complete
func (pt *ProgressTracker) GetProgress() (int, int, int, float64) {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	progress := 0.0
	if pt.total > 0 {
		progress = float64(pt.completed) / float64(pt.total) * 100
	}
	return pt.completed, pt.failed, pt.total, progress
}

// EstimateTimeRemaining estimates the remaining time based on current progress
func (pt *ProgressTracker) EstimateTimeRemaining() time.Duration {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	if pt.completed == 0 {
		return 0
	}

	elapsed := time.Since(pt.startTime)
	avgTimePerItem := elapsed / time.Duration(pt.completed)
	remaining := pt.total - pt.completed

	return avgTimePerItem * time.Duration(remaining)
}

package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job statuses
const (
	StatusQueued    = "queued"
	StatusPrinting  = "printing"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Runner executes one request.
type Runner interface {
	RunWithID(ctx context.Context, id string, req Request) (*Result, error)
}

// Job is a queued print request and its outcome.
type Job struct {
	ID        string    `json:"id"`
	Request   Request   `json:"-"`
	File      string    `json:"file"`
	Status    string    `json:"status"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Bytes     int       `json:"bytes,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	cleanup func()
}

// Queue runs jobs one at a time in submission order. A failed job is not
// retried.
type Queue struct {
	jobs   []*Job
	mu     sync.Mutex
	runner Runner
	log    *zap.Logger
	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onUpdate func(Job)
}

// NewQueue creates a queue and starts its worker.
func NewQueue(runner Runner, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		runner: runner,
		log:    log,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}

	q.wg.Add(1)
	go q.worker()

	return q
}

// OnUpdate registers a callback fired on every status or state change.
// It must be set before jobs are enqueued.
func (q *Queue) OnUpdate(fn func(Job)) {
	q.mu.Lock()
	q.onUpdate = fn
	q.mu.Unlock()
}

// Enqueue adds a request and returns its job id. cleanup, if not nil, runs
// once the job has finished.
func (q *Queue) Enqueue(req Request, cleanup func()) string {
	q.mu.Lock()
	job := &Job{
		ID:        uuid.NewString(),
		Request:   req,
		File:      req.File,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
		cleanup:   cleanup,
	}
	q.jobs = append(q.jobs, job)
	snapshot := *job
	fn := q.onUpdate
	q.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return job.ID
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
			for q.processNextJob() {
			}
		}
	}
}

// processNextJob runs the oldest queued job and reports whether one ran.
func (q *Queue) processNextJob() bool {
	q.mu.Lock()
	var job *Job
	for _, j := range q.jobs {
		if j.Status == StatusQueued {
			job = j
			break
		}
	}
	q.mu.Unlock()

	if job == nil {
		return false
	}
	q.update(job, func(j *Job) { j.Status = StatusPrinting })

	res, err := q.runner.RunWithID(q.ctx, job.ID, job.Request)

	q.update(job, func(j *Job) {
		if res != nil {
			j.Bytes = res.Bytes
		}
		if err != nil {
			j.Status = StatusFailed
			j.Error = err.Error()
			j.ErrorKind = Kind(err)
		} else {
			j.Status = StatusCompleted
		}
	})

	if err != nil {
		q.log.Warn("print job failed", zap.String("job_id", job.ID), zap.Error(err))
	} else {
		q.log.Info("print job completed", zap.String("job_id", job.ID))
	}

	if job.cleanup != nil {
		job.cleanup()
	}
	return true
}

// SetState records a pipeline state for a job. It is meant to be wired to
// Orchestrator.OnState.
func (q *Queue) SetState(id string, s State) {
	q.mu.Lock()
	var job *Job
	for _, j := range q.jobs {
		if j.ID == id {
			job = j
			break
		}
	}
	q.mu.Unlock()

	if job != nil {
		q.update(job, func(j *Job) { j.State = s.String() })
	}
}

func (q *Queue) update(job *Job, fn func(*Job)) {
	q.mu.Lock()
	fn(job)
	snapshot := *job
	cb := q.onUpdate
	q.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// GetJob returns a copy of a job, or nil.
func (q *Queue) GetJob(jobID string) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range q.jobs {
		if job.ID == jobID {
			jobCopy := *job
			return &jobCopy
		}
	}

	return nil
}

// GetAllJobs returns copies of all jobs in submission order.
func (q *Queue) GetAllJobs() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]*Job, len(q.jobs))
	for i, job := range q.jobs {
		jobCopy := *job
		jobs[i] = &jobCopy
	}

	return jobs
}

// ClearFinished removes completed and failed jobs.
func (q *Queue) ClearFinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := make([]*Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		if job.Status != StatusCompleted && job.Status != StatusFailed {
			kept = append(kept, job)
		}
	}
	removed := len(q.jobs) - len(kept)
	q.jobs = kept
	return removed
}

// Stop cancels the running job and stops the worker.
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
}

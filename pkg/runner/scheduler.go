// Package runner executes configuration jobs through the external
// simulator under a concurrency cap, with cooperative cancellation.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lorenzo-12/quantas-link-delay/pkg/logging"
	"github.com/lorenzo-12/quantas-link-delay/pkg/metrics"
	"github.com/lorenzo-12/quantas-link-delay/pkg/sweeptypes"
)

const (
	DefaultMaxConcurrency = 4
	DefaultGracePeriod    = 5 * time.Second
)

// ErrCancelled is returned by Run when the batch was stopped before every
// job reached a terminal state.
var ErrCancelled = errors.New("batch cancelled")

// JobResult is the terminal record of one job.
type JobResult struct {
	Job      sweeptypes.Job      `json:"job"`
	State    sweeptypes.JobState `json:"state"`
	Error    string              `json:"error,omitempty"`
	Started  time.Time           `json:"started,omitempty"`
	Finished time.Time           `json:"finished,omitempty"`
	Killed   bool                `json:"killed,omitempty"`
}

func (r JobResult) Duration() time.Duration {
	if r.Started.IsZero() || r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Report is what a batch returns; jobs never started on cancellation are
// listed in NotStarted.
type Report struct {
	BatchID    string             `json:"batch_id"`
	Results    []JobResult        `json:"results"`
	NotStarted []sweeptypes.Job   `json:"not_started,omitempty"`
	Aborted    bool               `json:"aborted"`
	Started    time.Time          `json:"started"`
	Finished   time.Time          `json:"finished"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

func (r Report) Count(state sweeptypes.JobState) int {
	n := 0
	for _, res := range r.Results {
		if res.State == state {
			n++
		}
	}
	return n
}

// Scheduler runs jobs with at most MaxConcurrency children alive.
type Scheduler struct {
	Selector       Selector
	Launcher       Launcher
	MaxConcurrency int
	GracePeriod    time.Duration
	// StartStagger delays the start of each worker after the first.
	StartStagger time.Duration
	// OnTransition, when set, is called on every state change.
	OnTransition func(JobResult)

	supervisor *Supervisor
	metrics    *metrics.BatchCollector
}

func NewScheduler(sel Selector, l Launcher) *Scheduler {
	return &Scheduler{
		Selector:       sel,
		Launcher:       l,
		MaxConcurrency: DefaultMaxConcurrency,
		GracePeriod:    DefaultGracePeriod,
		supervisor:     NewSupervisor(),
	}
}

// Supervisor exposes the live-process registry.
func (s *Scheduler) Supervisor() *Supervisor {
	return s.supervisor
}

// Run drains jobs in FIFO order until the queue is empty or ctx is done.
// On cancellation no further job starts, live children get SIGTERM and are
// killed after GracePeriod, and Run returns ErrCancelled once all of them
// have exited. Job failures never stop the batch.
func (s *Scheduler) Run(ctx context.Context, jobs []sweeptypes.Job) (Report, error) {
	if s.supervisor == nil {
		s.supervisor = NewSupervisor()
	}
	if s.MaxConcurrency <= 0 {
		return Report{}, fmt.Errorf("invalid max concurrency %d", s.MaxConcurrency)
	}
	s.metrics = metrics.NewBatchCollector()

	report := Report{BatchID: uuid.NewString(), Started: time.Now()}
	queue := newJobQueue(jobs, report.BatchID)

	workers := s.MaxConcurrency
	if len(jobs) < workers {
		workers = len(jobs)
	}
	logging.LogJSON(map[string]any{
		"event":    "batch_started",
		"batch_id": report.BatchID,
		"jobs":     len(jobs),
		"workers":  workers,
	})

	var (
		mu      sync.Mutex
		results []JobResult
	)
	record := func(r JobResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	g := new(errgroup.Group)
	for w := 0; w < workers; w++ {
		if w > 0 && s.StartStagger > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.StartStagger):
			}
		}
		if ctx.Err() != nil {
			break
		}
		worker := w
		g.Go(func() error {
			for {
				if ctx.Err() != nil {
					return nil
				}
				job, ok := queue.pop()
				if !ok {
					return nil
				}
				res, started := s.execute(ctx, worker, job)
				if !started {
					queue.requeue(job)
					return nil
				}
				record(res)
			}
		})
	}
	g.Wait()

	report.Finished = time.Now()
	report.Results = results
	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].Job.ID < report.Results[j].Job.ID
	})
	report.NotStarted = queue.drain()
	report.Aborted = len(report.NotStarted) > 0 || report.Count(sweeptypes.Cancelled) > 0
	report.Metrics = s.metrics.Compute()

	logging.LogJSON(map[string]any{
		"event":       "batch_finished",
		"batch_id":    report.BatchID,
		"succeeded":   report.Count(sweeptypes.Succeeded),
		"failed":      report.Count(sweeptypes.Failed),
		"cancelled":   report.Count(sweeptypes.Cancelled),
		"not_started": len(report.NotStarted),
		"aborted":     report.Aborted,
	})

	if report.Aborted {
		return report, ErrCancelled
	}
	return report, nil
}

// execute runs one job to a terminal state. It reports false, without
// starting anything, when ctx is already done.
func (s *Scheduler) execute(ctx context.Context, worker int, job sweeptypes.Job) (JobResult, bool) {
	res := JobResult{Job: job, State: sweeptypes.Queued}
	if ctx.Err() != nil {
		return res, false
	}

	proc, err := s.Selector.Start(job, s.Launcher)
	if err != nil {
		res.State = sweeptypes.Failed
		res.Error = err.Error()
		res.Finished = time.Now()
		log.Printf("[worker %d] ERROR: %s could not start: %v", worker, job.Name(), err)
		s.transition(res)
		return res, true
	}

	h := s.supervisor.Track(job.ID, proc)
	res.State = sweeptypes.Running
	res.Started = time.Now()
	s.metrics.TrackStart()
	log.Printf("[worker %d] running %s (pid %d)", worker, job.Name(), h.Pid())
	s.transition(res)

	select {
	case <-h.Done():
	case <-ctx.Done():
		select {
		case <-h.Done():
		default:
			res.Killed = s.supervisor.Stop(h, s.GracePeriod)
			if res.Killed {
				s.metrics.RecordKill()
			}
			res.State = sweeptypes.Cancelled
			res.Error = "stopped by operator"
		}
	}
	res.Finished = time.Now()

	if res.State != sweeptypes.Cancelled {
		if err := h.Err(); err != nil {
			res.State = sweeptypes.Failed
			res.Error = err.Error()
			log.Printf("[worker %d] ERROR: %s exited with %v", worker, job.Name(), err)
		} else {
			res.State = sweeptypes.Succeeded
			log.Printf("[worker %d] done: %s in %s", worker, job.Name(), res.Duration().Round(time.Second))
		}
	} else {
		log.Printf("[worker %d] cancelled: %s", worker, job.Name())
	}
	s.metrics.TrackOutcome(res.State, res.Duration())
	s.transition(res)
	return res, true
}

func (s *Scheduler) transition(r JobResult) {
	entry := map[string]any{
		"event":  "job_" + r.State.String(),
		"job_id": r.Job.ID,
		"config": r.Job.Name(),
		"alg":    string(r.Job.Algorithm),
	}
	if r.Error != "" {
		entry["error"] = r.Error
	}
	if r.State.Terminal() && !r.Started.IsZero() {
		entry["seconds"] = r.Duration().Seconds()
	}
	logging.LogJSON(entry)
	if s.OnTransition != nil {
		s.OnTransition(r)
	}
}

type jobQueue struct {
	mu   sync.Mutex
	jobs []sweeptypes.Job
}

// newJobQueue copies jobs and gives each one a batch-unique ID that sorts in
// submission order.
func newJobQueue(jobs []sweeptypes.Job, batchID string) *jobQueue {
	q := &jobQueue{jobs: make([]sweeptypes.Job, len(jobs))}
	prefix := batchID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	for i, j := range jobs {
		if j.ID == "" {
			j.ID = fmt.Sprintf("%s-%04d", prefix, i)
		}
		q.jobs[i] = j
	}
	return q
}

func (q *jobQueue) pop() (sweeptypes.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return sweeptypes.Job{}, false
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, true
}

// requeue puts back a job popped after the stop signal.
func (q *jobQueue) requeue(j sweeptypes.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append([]sweeptypes.Job{j}, q.jobs...)
}

func (q *jobQueue) drain() []sweeptypes.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	rest := q.jobs
	q.jobs = nil
	return rest
}

// Discover lists the configuration files of alg in sorted order, skipping
// any whose name contains "test".
func Discover(configDir string, alg sweeptypes.Algorithm) ([]sweeptypes.Job, error) {
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: %q", sweeptypes.ErrUnknownAlgorithm, alg)
	}
	dir := filepath.Join(configDir, alg.PeerClass())
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.Contains(name, "test") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	jobs := make([]sweeptypes.Job, len(names))
	for i, name := range names {
		jobs[i] = sweeptypes.Job{Algorithm: alg, ConfigFile: name}
	}
	return jobs, nil
}

package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"loraset/logger"
	"loraset/model"
)

var errJobRunning = errors.New("a batch job is already running")

// JobInfo describes the current or last batch job.
type JobInfo struct {
	Kind       string       `json:"kind"`
	Running    bool         `json:"running"`
	Status     model.Status `json:"status"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt *time.Time   `json:"finishedAt,omitempty"`
}

type jobRunner struct {
	hub *ProgressHub

	mu       sync.Mutex
	current  JobInfo
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
}

// start launches fn in the background unless another job is running. fn returns the
// final status shown to reviewers.
func (j *jobRunner) start(kind string, fn func(ctx context.Context, progress func(string)) model.Status) (JobInfo, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.current.Running {
		return j.current, errJobRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.cancelFn = cancel
	j.current = JobInfo{Kind: kind, Running: true, StartedAt: time.Now()}
	info := j.current

	progress := func(msg string) {
		j.hub.Publish(ProgressEvent{Type: EventProgress, Job: kind, Message: msg})
	}

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer cancel()
		st := fn(ctx, progress)

		now := time.Now()
		j.mu.Lock()
		j.current.Running = false
		j.current.Status = st
		j.current.FinishedAt = &now
		j.mu.Unlock()

		evType := EventDone
		if !st.OK {
			evType = EventFailed
		}
		j.hub.Publish(ProgressEvent{Type: evType, Job: kind, Message: st.String()})
		logger.Info("batch job finished", logger.String("job", kind), logger.Bool("ok", st.OK))
	}()
	return info, nil
}

func (j *jobRunner) info() JobInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.current
}

func (j *jobRunner) running() bool {
	return j.info().Running
}

// cancel stops the running job between samples.
func (j *jobRunner) cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.current.Running || j.cancelFn == nil {
		return false
	}
	j.cancelFn()
	return true
}

func (j *jobRunner) wait() {
	j.wg.Wait()
}

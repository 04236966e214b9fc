package queue

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Worker is the single consumer of the queue.
type Worker struct {
	q *Queue
}

func NewWorker(q *Queue) *Worker {
	return &Worker{q: q}
}

// Run sweeps orphans once, then claims and executes jobs until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	if _, err := w.q.Sweep(ctx); err != nil {
		return err
	}
	log.WithField("poll", w.q.cfg.PollInterval).Info("worker 启动")

	ticker := time.NewTicker(w.q.cfg.PollInterval)
	defer ticker.Stop()
	for {
		w.drain(ctx)
		select {
		case <-ctx.Done():
			log.Info("worker 退出")
			return nil
		case <-ticker.C:
		}
	}
}

// 连续执行直到队列为空
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		job, err := w.q.ClaimNextJob(ctx)
		if err != nil {
			log.WithError(err).Warn("领取任务失败")
			return
		}
		if job == nil {
			return
		}
		w.q.Execute(ctx, job)
	}
}

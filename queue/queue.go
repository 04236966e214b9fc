package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"heatsim/calculator"
	"heatsim/model"
	"heatsim/store"
)

var (
	ErrNotRunnable    = errors.New("job is not runnable")
	ErrNotCancellable = errors.New("only queued jobs can be cancelled")
)

const (
	msgQueued    = "Queued"
	msgStarting  = "Starting"
	msgCompleted = "Completed"
	msgCancelled = "Cancelled"
	msgCrashed   = "Unexpected worker error"

	casRetries = 5
)

// Queue schedules jobs stored in the jobs table. Mutations of status go
// through compare-and-swap on (id, status, version).
type Queue struct {
	store   *store.Store
	cfg     Config
	metrics *Metrics

	notify func(model.Progress)
}

func New(s *store.Store, cfg Config, m *Metrics) *Queue {
	return &Queue{store: s, cfg: cfg, metrics: m}
}

// OnProgress registers a callback invoked after every status or progress change.
func (q *Queue) OnProgress(f func(model.Progress)) {
	q.notify = f
}

func (q *Queue) publish(p model.Progress) {
	if q.notify != nil {
		q.notify(p)
	}
}

func (q *Queue) Store() *store.Store {
	return q.store
}

func (q *Queue) refreshDepth(ctx context.Context) {
	if q.metrics == nil {
		return
	}
	queued, err := q.store.ListByStatus(ctx, model.StatusQueued)
	if err == nil {
		q.metrics.depth(len(queued))
	}
}

// Enqueue moves a ready, configured or failed job to queued.
func (q *Queue) Enqueue(ctx context.Context, id uint) (*model.Job, error) {
	job, err := q.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Runnable() {
		return nil, fmt.Errorf("%w: status is %s", ErrNotRunnable, job.Status)
	}
	if err := job.Complete(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRunnable, err)
	}
	err = q.store.Transition(ctx, job, job.Status, map[string]any{
		"status":           model.StatusQueued,
		"progress_percent": 0,
		"progress_message": msgQueued,
		"error_message":    "",
		"current_string":   0,
		"started_at":       nil,
		"completed_at":     nil,
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"id": job.ID, "kind": job.Kind}).Info("任务进入队列")
	q.refreshDepth(ctx)
	q.publish(job.Progress())
	return job, nil
}

// Cancel returns a queued job to its pre-queue state.
func (q *Queue) Cancel(ctx context.Context, id uint) (*model.Job, error) {
	job, err := q.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != model.StatusQueued {
		return nil, fmt.Errorf("%w: status is %s", ErrNotCancellable, job.Status)
	}
	err = q.store.Transition(ctx, job, model.StatusQueued, map[string]any{
		"status":           job.PreQueueStatus(),
		"progress_percent": 0,
		"progress_message": msgCancelled,
	})
	if errors.Is(err, store.ErrConflict) {
		// 已被 worker 领取
		return nil, fmt.Errorf("%w: job was claimed", ErrNotCancellable)
	}
	if err != nil {
		return nil, err
	}
	q.refreshDepth(ctx)
	q.publish(job.Progress())
	return job, nil
}

// ClaimNextJob claims the lowest-id queued job of any kind. It returns nil
// when the queue is empty.
func (q *Queue) ClaimNextJob(ctx context.Context) (*model.Job, error) {
	for {
		job, err := q.store.NextQueued(ctx)
		if err != nil || job == nil {
			return nil, err
		}
		now := time.Now()
		err = q.store.Transition(ctx, job, model.StatusQueued, map[string]any{
			"status":           model.StatusRunning,
			"progress_percent": 0,
			"progress_message": msgStarting,
			"error_message":    "",
			"started_at":       &now,
		})
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		q.metrics.claimed(job.Kind)
		q.refreshDepth(ctx)
		log.WithFields(log.Fields{"id": job.ID, "kind": job.Kind, "name": job.Name}).Info("领取任务")
		q.publish(job.Progress())
		return job, nil
	}
}

// MarkFailed fails a queued or running job with a generic message. Other
// statuses and unknown ids are left alone.
func (q *Queue) MarkFailed(ctx context.Context, kind model.Kind, id uint) error {
	for i := 0; i < casRetries; i++ {
		job, err := q.store.GetJob(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if job.Kind != kind {
			return nil
		}
		if job.Status != model.StatusQueued && job.Status != model.StatusRunning {
			return nil
		}
		now := time.Now()
		err = q.store.Transition(ctx, job, job.Status, map[string]any{
			"status":           model.StatusFailed,
			"error_message":    msgCrashed,
			"progress_message": msgCrashed,
			"completed_at":     &now,
		})
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"id": id, "kind": kind}).Warn("任务标记为失败")
		q.publish(job.Progress())
		return nil
	}
	return store.ErrConflict
}

// Sweep fails jobs a previous process left behind. It returns how many were failed.
func (q *Queue) Sweep(ctx context.Context) (int, error) {
	statuses := []model.Status{model.StatusRunning}
	if q.cfg.FailQueuedOnStartup {
		statuses = append(statuses, model.StatusQueued)
	}
	jobs, err := q.store.ListByStatus(ctx, statuses...)
	if err != nil {
		return 0, err
	}
	for _, job := range jobs {
		if err := q.MarkFailed(ctx, job.Kind, job.ID); err != nil {
			return 0, err
		}
	}
	if len(jobs) > 0 {
		log.WithField("count", len(jobs)).Warn("启动清理遗留任务")
	}
	q.refreshDepth(ctx)
	return len(jobs), nil
}

type JobSummary struct {
	Kind model.Kind `json:"kind"`
	ID   uint       `json:"id"`
	Name string     `json:"name"`
}

type QueuedJob struct {
	JobSummary
	Position int `json:"position"`
}

type Status struct {
	Running *JobSummary `json:"running"`
	Queued  []QueuedJob `json:"queued"`
}

func (q *Queue) QueueStatus(ctx context.Context) (Status, error) {
	st := Status{Queued: []QueuedJob{}}
	running, err := q.store.ListByStatus(ctx, model.StatusRunning)
	if err != nil {
		return st, err
	}
	if len(running) > 0 {
		j := running[0]
		st.Running = &JobSummary{Kind: j.Kind, ID: j.ID, Name: j.Name}
	}
	queued, err := q.store.ListByStatus(ctx, model.StatusQueued)
	if err != nil {
		return st, err
	}
	for i, j := range queued {
		st.Queued = append(st.Queued, QueuedJob{
			JobSummary: JobSummary{Kind: j.Kind, ID: j.ID, Name: j.Name},
			Position:   i + 1,
		})
	}
	return st, nil
}

// QueuePosition is 1-based, nil unless the job is queued.
func (q *Queue) QueuePosition(ctx context.Context, kind model.Kind, id uint) (*int, error) {
	queued, err := q.store.ListByStatus(ctx, model.StatusQueued)
	if err != nil {
		return nil, err
	}
	for i, j := range queued {
		if j.ID == id && j.Kind == kind {
			pos := i + 1
			return &pos, nil
		}
	}
	return nil, nil
}

func (q *Queue) Progress(ctx context.Context, id uint) (model.Progress, error) {
	job, err := q.store.GetJob(ctx, id)
	if err != nil {
		return model.Progress{}, err
	}
	p := job.Progress()
	if job.Status == model.StatusQueued {
		if p.QueuePosition, err = q.QueuePosition(ctx, job.Kind, job.ID); err != nil {
			return p, err
		}
	}
	return p, nil
}

// Execute runs a claimed job to a final state. Errors never escape: every
// outcome ends up on the record.
func (q *Queue) Execute(ctx context.Context, job *model.Job) {
	start := time.Now()
	// 结束状态的写入不受取消影响
	final := context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"id": job.ID, "panic": r}).Error("任务崩溃")
			if err := q.MarkFailed(final, job.Kind, job.ID); err != nil {
				log.WithError(err).Error("标记失败出错")
			}
			q.metrics.finished(job.Kind, model.StatusFailed, time.Since(start))
		}
	}()

	var (
		results []model.WeldResult
		err     error
	)
	switch job.Kind {
	case model.KindSimulation:
		results, err = q.runSimulation(ctx, job)
	case model.KindWeld:
		results, err = q.runWeld(ctx, job)
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}

	status := model.StatusCompleted
	updates := map[string]any{}
	now := time.Now()
	switch {
	case err == nil:
		updates["progress_percent"] = 100
		updates["progress_message"] = msgCompleted
		updates["completed_at"] = &now
	case errors.Is(err, calculator.ErrCancelled), errors.Is(err, context.Canceled):
		results = nil
		status = job.PreQueueStatus()
		updates["progress_percent"] = 0
		updates["progress_message"] = msgCancelled
	default:
		results = nil
		status = model.StatusFailed
		updates["error_message"] = err.Error()
		updates["progress_message"] = "Failed"
		updates["completed_at"] = &now
	}
	updates["status"] = status

	if terr := q.finish(final, job, updates, results); terr != nil {
		log.WithFields(log.Fields{"id": job.ID, "err": terr}).Error("写入任务结果状态失败")
		return
	}
	q.metrics.finished(job.Kind, status, time.Since(start))
	log.WithFields(log.Fields{
		"id":       job.ID,
		"kind":     job.Kind,
		"status":   status,
		"err":      err,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("任务结束")
	q.publish(job.Progress())
}

// 进度写库不改 version，这里重读后再 CAS；结果和最终状态一起提交
func (q *Queue) finish(ctx context.Context, job *model.Job, updates map[string]any, results []model.WeldResult) error {
	for i := 0; i < casRetries; i++ {
		fresh, err := q.store.GetJob(ctx, job.ID)
		if err != nil {
			return err
		}
		if fresh.Status != model.StatusRunning {
			*job = *fresh
			return fmt.Errorf("job left running state: %s", fresh.Status)
		}
		copied := make(map[string]any, len(updates))
		for k, v := range updates {
			copied[k] = v
		}
		err = q.store.Finish(ctx, fresh, copied, results)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return err
		}
		*job = *fresh
		return nil
	}
	return store.ErrConflict
}

// progressWriter 限制进度写库频率，fraction 到 1 时总会写入
type progressWriter struct {
	q       *Queue
	ctx     context.Context
	job     *model.Job
	limiter *rate.Limiter
	message func(fraction float64) (string, int)
}

func (q *Queue) newProgressWriter(ctx context.Context, job *model.Job, message func(float64) (string, int)) *progressWriter {
	return &progressWriter{
		q:       q,
		ctx:     ctx,
		job:     job,
		limiter: rate.NewLimiter(rate.Every(q.cfg.ProgressInterval), 1),
		message: message,
	}
}

func (w *progressWriter) report(fraction float64) {
	if fraction < 1 && !w.limiter.Allow() {
		return
	}
	percent := math.Round(fraction*1000) / 10
	msg, current := w.message(fraction)
	if err := w.q.store.UpdateProgress(w.ctx, w.job.ID, percent, msg, current); err != nil {
		log.WithFields(log.Fields{"id": w.job.ID, "err": err}).Warn("进度写入失败")
		return
	}
	w.q.publish(model.Progress{
		JobID:           w.job.ID,
		Status:          model.StatusRunning,
		ProgressPercent: percent,
		ProgressMessage: msg,
	})
}

// 结果先编码在内存，由 finish 在同一事务中写入
func encodeResults(values map[model.ResultType]any) ([]model.WeldResult, error) {
	out := make([]model.WeldResult, 0, len(values))
	for _, rt := range model.ResultTypes() {
		v, ok := values[rt]
		if !ok {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", rt, err)
		}
		out = append(out, model.WeldResult{ResultType: rt, Data: string(b)})
	}
	return out, nil
}

func (q *Queue) runSimulation(ctx context.Context, job *model.Job) ([]model.WeldResult, error) {
	c := job.Config.Simulation
	if c == nil {
		return nil, fmt.Errorf("%w: simulation config missing", model.ErrIncomplete)
	}
	params, cfg, err := SimulationInputs(c)
	if err != nil {
		return nil, err
	}
	solver, err := calculator.NewGoldakSolver(params, cfg)
	if err != nil {
		return nil, err
	}
	w := q.newProgressWriter(ctx, job, func(f float64) (string, int) {
		return fmt.Sprintf("Solving %.0f%%", f*100), 0
	})
	res, err := solver.Solve(ctx, nil, w.report)
	if err != nil {
		return nil, err
	}
	return encodeResults(map[model.ResultType]any{
		model.ResultGoldakField: res.ToData(),
		model.ResultHAZProfile:  res.HAZ(params.TransformationTemps),
	})
}

func (q *Queue) runWeld(ctx context.Context, job *model.Job) ([]model.WeldResult, error) {
	if job.Config.MultiPass == nil {
		return nil, fmt.Errorf("%w: weld project config missing", model.ErrIncomplete)
	}
	spec, cfg, err := multiPassInputs(job)
	if err != nil {
		return nil, err
	}
	mp, err := calculator.NewMultiPass(spec, cfg)
	if err != nil {
		return nil, err
	}
	n := len(spec.Passes)
	w := q.newProgressWriter(ctx, job, func(f float64) (string, int) {
		current := int(f*float64(n)) + 1
		if current > n {
			current = n
		}
		return fmt.Sprintf("String %d/%d", current, n), current
	})
	res, err := mp.Run(ctx, w.report)
	if err != nil {
		return nil, err
	}
	return encodeResults(map[model.ResultType]any{
		model.ResultGoldakMultipass: res.ToData(),
		model.ResultHAZProfile:      res.HAZ(spec.TransformationTemps),
	})
}

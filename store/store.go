package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"heatsim/model"
)

var (
	ErrNotFound = errors.New("record not found")
	// CAS 失败：状态或版本已被其他方修改
	ErrConflict = errors.New("record changed concurrently")
)

// Store wraps the gorm handle for the jobs, weld_strings and weld_results tables.
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite database at path and migrates the schema.
// Use "file:<name>?mode=memory&cache=shared" for an in-memory database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.New(log.StandardLogger(), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite 单写者
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.Job{}, &model.WeldString{}, &model.WeldResult{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.WithField("path", path).Info("数据库已打开")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// CreateJob inserts the job together with its weld strings.
func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	job.TotalStrings = len(job.Strings)
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *Store) GetJob(ctx context.Context, id uint) (*model.Job, error) {
	var job model.Job
	err := s.db.WithContext(ctx).
		Preload("Strings", func(db *gorm.DB) *gorm.DB {
			return db.Order("string_number ASC")
		}).
		First(&job, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}

// NextQueued returns the lowest-id queued job of any kind, nil when the queue is empty.
func (s *Store) NextQueued(ctx context.Context) (*model.Job, error) {
	var jobs []model.Job
	err := s.db.WithContext(ctx).
		Where("status = ?", model.StatusQueued).
		Order("id ASC").
		Limit(1).
		Find(&jobs).Error
	if err != nil || len(jobs) == 0 {
		return nil, err
	}
	return &jobs[0], nil
}

// ListByStatus returns jobs in id order, without their strings.
func (s *Store) ListByStatus(ctx context.Context, statuses ...model.Status) ([]model.Job, error) {
	var jobs []model.Job
	err := s.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("id ASC").
		Find(&jobs).Error
	return jobs, err
}

// Transition moves job from status `from` to the status in updates, if and
// only if neither status nor version changed since job was read. On success
// job is reloaded. Returns ErrConflict when the CAS loses.
func (s *Store) Transition(ctx context.Context, job *model.Job, from model.Status, updates map[string]any) error {
	if err := cas(s.db.WithContext(ctx), job, from, updates); err != nil {
		return err
	}
	return s.reload(ctx, job)
}

// Finish applies the final transition of a running job and replaces its
// results in one transaction. Nothing is written when the CAS loses.
func (s *Store) Finish(ctx context.Context, job *model.Job, updates map[string]any, results []model.WeldResult) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := cas(tx, job, model.StatusRunning, updates); err != nil {
			return err
		}
		// 旧结果不与新结果混在一起
		if err := tx.Where("job_id = ?", job.ID).Delete(&model.WeldResult{}).Error; err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		now := time.Now()
		for i := range results {
			results[i].ID = 0
			results[i].JobID = job.ID
			results[i].CreatedAt = now
		}
		return tx.Create(&results).Error
	})
	if err != nil {
		return err
	}
	return s.reload(ctx, job)
}

func cas(db *gorm.DB, job *model.Job, from model.Status, updates map[string]any) error {
	updates["version"] = gorm.Expr("version + 1")
	res := db.Model(&model.Job{}).
		Where("id = ? AND status = ? AND version = ?", job.ID, from, job.Version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrConflict
	}
	return nil
}

func (s *Store) reload(ctx context.Context, job *model.Job) error {
	fresh, err := s.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}
	*job = *fresh
	return nil
}

// UpdateProgress only touches running jobs and does not bump the version.
func (s *Store) UpdateProgress(ctx context.Context, id uint, percent float64, message string, currentString int) error {
	updates := map[string]any{
		"progress_percent": percent,
		"progress_message": message,
	}
	if currentString > 0 {
		updates["current_string"] = currentString
	}
	return s.db.WithContext(ctx).
		Model(&model.Job{}).
		Where("id = ? AND status = ?", id, model.StatusRunning).
		Updates(updates).Error
}

func (s *Store) GetResult(ctx context.Context, jobID uint, rt model.ResultType) (*model.WeldResult, error) {
	var r model.WeldResult
	err := s.db.WithContext(ctx).
		Where("job_id = ? AND result_type = ?", jobID, rt).
		First(&r).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

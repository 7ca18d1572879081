package database

import (
	"errors"
	"time"

	"github.com/botpanel/core/internal/models"
	"github.com/botpanel/core/internal/services"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobStore is the GORM-backed implementation of services.Store.
type JobStore struct {
	db *gorm.DB
}

func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) Save(job *models.CronJob) error {
	return s.db.Save(job).Error
}

func (s *JobStore) Find(id uuid.UUID) (*models.CronJob, error) {
	var job models.CronJob
	if err := s.db.First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (s *JobStore) FindAll() ([]models.CronJob, error) {
	var jobs []models.CronJob
	if err := s.db.Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *JobStore) Delete(id uuid.UUID) error {
	return s.db.Delete(&models.CronJob{}, "id = ?", id).Error
}

// RecordRun applies one run's counter mutations as a single UPDATE so
// concurrent test-fires never lose an increment.
func (s *JobStore) RecordRun(id uuid.UUID, success bool, at time.Time, nextRun *time.Time) error {
	updates := map[string]interface{}{
		"run_count":   gorm.Expr("run_count + 1"),
		"last_run_at": at,
		"next_run_at": nextRun,
	}
	if success {
		updates["success_count"] = gorm.Expr("success_count + 1")
	} else {
		updates["error_count"] = gorm.Expr("error_count + 1")
	}
	return s.db.Model(&models.CronJob{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateProvisionState touches only the provision_state column so it
// cannot race with RecordRun's counter increments.
func (s *JobStore) UpdateProvisionState(id uuid.UUID, state string) error {
	return s.db.Model(&models.CronJob{}).Where("id = ?", id).
		Update("provision_state", state).Error
}

func (s *JobStore) AppendExecution(exec *models.JobExecution) error {
	return s.db.Create(exec).Error
}

func (s *JobStore) Executions(jobID uuid.UUID, limit int) ([]models.JobExecution, error) {
	var execs []models.JobExecution
	q := s.db.Where("cron_job_id = ?", jobID).Order("executed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&execs).Error; err != nil {
		return nil, err
	}
	return execs, nil
}

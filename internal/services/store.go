package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/botpanel/core/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a referenced cron job does not exist.
	ErrNotFound = errors.New("cron job not found")

	// ErrSystemJobProtected is returned by Delete when deleting
	// platform-seeded jobs is disabled by configuration.
	ErrSystemJobProtected = errors.New("system jobs cannot be deleted")
)

// ValidationError reports a structurally invalid job definition.
// Nothing is persisted when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Store is the narrow persistence interface the cron services depend
// on. The production implementation is backed by GORM; tests use an
// in-memory fake.
type Store interface {
	Save(job *models.CronJob) error
	Find(id uuid.UUID) (*models.CronJob, error)
	FindAll() ([]models.CronJob, error)
	// Delete is a no-op for unknown ids.
	Delete(id uuid.UUID) error
	// RecordRun applies the counter mutations of one run atomically:
	// run_count always increments, success_count or error_count
	// increments depending on success, last_run_at is set to at.
	RecordRun(id uuid.UUID, success bool, at time.Time, nextRun *time.Time) error
	// UpdateProvisionState writes only the provision_state column, so
	// recording a provisioning outcome cannot clobber counters a
	// concurrent run applied in the meantime.
	UpdateProvisionState(id uuid.UUID, state string) error
	AppendExecution(exec *models.JobExecution) error
	Executions(jobID uuid.UUID, limit int) ([]models.JobExecution, error)
}

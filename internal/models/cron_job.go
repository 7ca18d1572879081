package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Provisioning states for a cron job's external registration.
const (
	ProvisionPending     = "pending"
	ProvisionDone        = "provisioned"
	ProvisionNeedsManual = "needs_manual_setup"
)

// HeaderPair is one request header. Headers are kept as an ordered list
// rather than a map so the edit form can rename a key in place without
// reordering the rest.
type HeaderPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type CronJob struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Endpoint    string    `gorm:"not null" json:"endpoint"` // absolute URL
	Method      string    `gorm:"default:'GET'" json:"method"`
	Frequency   string    `gorm:"not null" json:"frequency"` // 5-field cron expression
	// JSON array of {key,value} pairs, see HeaderPair.
	Headers datatypes.JSON `gorm:"type:jsonb" json:"headers"`
	// Request body, sent only for POST/PUT. Null means no body.
	Body           datatypes.JSON `gorm:"type:jsonb" json:"body"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	IsSystem       bool           `gorm:"default:false" json:"is_system"`
	ProvisionState string         `gorm:"default:'pending'" json:"provision_state"`
	RunCount       int64          `gorm:"default:0" json:"run_count"`
	SuccessCount   int64          `gorm:"default:0" json:"success_count"`
	ErrorCount     int64          `gorm:"default:0" json:"error_count"`
	LastRunAt      *time.Time     `json:"last_run_at"`
	NextRunAt      *time.Time     `json:"next_run_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// HeaderPairs decodes the Headers column. A missing or corrupt column
// yields an empty list; the registry validates on write.
func (j *CronJob) HeaderPairs() []HeaderPair {
	var pairs []HeaderPair
	if len(j.Headers) == 0 {
		return pairs
	}
	_ = json.Unmarshal(j.Headers, &pairs)
	return pairs
}

func (j *CronJob) SetHeaderPairs(pairs []HeaderPair) {
	if pairs == nil {
		pairs = []HeaderPair{}
	}
	b, _ := json.Marshal(pairs)
	j.Headers = datatypes.JSON(b)
}

// HasBody reports whether the job carries a body that should be sent.
// Bodies are only meaningful for POST and PUT.
func (j *CronJob) HasBody() bool {
	if j.Method != "POST" && j.Method != "PUT" {
		return false
	}
	return len(j.Body) > 0 && string(j.Body) != "null"
}

// JobExecution records one test-fire or externally triggered run.
type JobExecution struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CronJobID  uuid.UUID `gorm:"type:uuid;not null;index" json:"cron_job_id"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"status_code"`
	DurationMs int64     `json:"duration_ms"`
	Response   string    `gorm:"type:text" json:"response"`
	Error      string    `gorm:"type:text" json:"error"`
	ExecutedAt time.Time `gorm:"not null;index" json:"executed_at"`
}

// TestResult is returned from a test-fire. It is not persisted beyond
// the aggregate counters and the JobExecution row.
type TestResult struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Response   string `json:"response,omitempty"`
	Error      string `json:"error,omitempty"`
}

// JobTemplate is a catalog entry that can be instantiated into a CronJob.
// Endpoint is deployment-relative; the registry absolutizes it on create.
type JobTemplate struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Endpoint    string          `json:"endpoint"`
	Method      string          `json:"method"`
	Frequency   string          `json:"frequency"`
	Headers     []HeaderPair    `json:"headers"`
	Body        json.RawMessage `json:"body,omitempty"`
}

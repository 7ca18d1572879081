package services

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/botpanel/core/internal/cronexpr"
	"github.com/botpanel/core/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var allowedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
}

// JobInput carries the fields accepted when creating a cron job.
type JobInput struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Endpoint    string              `json:"endpoint"`
	Method      string              `json:"method"`
	Frequency   string              `json:"frequency"`
	Headers     []models.HeaderPair `json:"headers"`
	Body        json.RawMessage     `json:"body"`
	IsActive    *bool               `json:"is_active"`
	IsSystem    bool                `json:"-"`
}

// JobPatch carries the fields accepted on update. Nil means "leave
// unchanged"; Body is applied when non-nil ("null" clears it).
type JobPatch struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	Endpoint    *string              `json:"endpoint"`
	Method      *string              `json:"method"`
	Frequency   *string              `json:"frequency"`
	Headers     *[]models.HeaderPair `json:"headers"`
	Body        json.RawMessage      `json:"body"`
	IsActive    *bool                `json:"is_active"`
}

// JobRegistry owns the set of cron job definitions.
type JobRegistry struct {
	store             Store
	baseURL           string
	allowSystemDelete bool
}

func NewJobRegistry(store Store, baseURL string, allowSystemDelete bool) *JobRegistry {
	return &JobRegistry{
		store:             store,
		baseURL:           strings.TrimRight(baseURL, "/"),
		allowSystemDelete: allowSystemDelete,
	}
}

// AbsoluteEndpoint converts an operator-entered path into an absolute
// URL against the deployment base. Already-absolute URLs pass through.
func (r *JobRegistry) AbsoluteEndpoint(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if strings.HasPrefix(endpoint, "/") {
		return r.baseURL + endpoint
	}
	return r.baseURL + "/" + endpoint
}

func (r *JobRegistry) Create(in JobInput) (*models.CronJob, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(in.Endpoint) == "" {
		return nil, &ValidationError{Field: "endpoint", Message: "endpoint is required"}
	}
	if strings.TrimSpace(in.Frequency) == "" {
		return nil, &ValidationError{Field: "frequency", Message: "frequency is required"}
	}

	method := strings.ToUpper(in.Method)
	if method == "" {
		method = "GET"
	}
	if !allowedMethods[method] {
		return nil, &ValidationError{Field: "method", Message: "method must be GET, POST, PUT or DELETE"}
	}

	expr, err := cronexpr.Parse(in.Frequency)
	if err != nil {
		return nil, &ValidationError{Field: "frequency", Message: err.Error()}
	}

	body, err := normalizeBody(in.Body, method)
	if err != nil {
		return nil, err
	}

	job := &models.CronJob{
		Name:           in.Name,
		Description:    in.Description,
		Endpoint:       r.AbsoluteEndpoint(in.Endpoint),
		Method:         method,
		Frequency:      expr.String(),
		Body:           body,
		IsActive:       true,
		IsSystem:       in.IsSystem,
		ProvisionState: models.ProvisionPending,
	}
	if in.IsActive != nil {
		job.IsActive = *in.IsActive
	}
	job.SetHeaderPairs(in.Headers)
	setNextRun(job, expr)

	if err := r.store.Save(job); err != nil {
		return nil, err
	}
	return job, nil
}

func (r *JobRegistry) Update(id uuid.UUID, patch JobPatch) (*models.CronJob, error) {
	job, err := r.store.Find(id)
	if err != nil {
		return nil, err
	}

	// System jobs seeded from the default catalog only allow their
	// activation state to be toggled. Every other patched field is
	// silently ignored, which is what the edit form expects.
	if job.IsSystem {
		if patch.IsActive != nil {
			job.IsActive = *patch.IsActive
		}
		r.refreshNextRun(job)
		if err := r.store.Save(job); err != nil {
			return nil, err
		}
		return job, nil
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, &ValidationError{Field: "name", Message: "name is required"}
		}
		job.Name = *patch.Name
	}
	if patch.Description != nil {
		job.Description = *patch.Description
	}
	if patch.Endpoint != nil {
		if strings.TrimSpace(*patch.Endpoint) == "" {
			return nil, &ValidationError{Field: "endpoint", Message: "endpoint is required"}
		}
		job.Endpoint = r.AbsoluteEndpoint(*patch.Endpoint)
	}
	if patch.Method != nil {
		method := strings.ToUpper(*patch.Method)
		if !allowedMethods[method] {
			return nil, &ValidationError{Field: "method", Message: "method must be GET, POST, PUT or DELETE"}
		}
		job.Method = method
	}
	if patch.Frequency != nil {
		expr, err := cronexpr.Parse(*patch.Frequency)
		if err != nil {
			return nil, &ValidationError{Field: "frequency", Message: err.Error()}
		}
		job.Frequency = expr.String()
	}
	if patch.Headers != nil {
		job.SetHeaderPairs(*patch.Headers)
	}
	if patch.Body != nil {
		body, err := normalizeBody(patch.Body, job.Method)
		if err != nil {
			return nil, err
		}
		job.Body = body
	}
	if patch.IsActive != nil {
		job.IsActive = *patch.IsActive
	}

	r.refreshNextRun(job)
	if err := r.store.Save(job); err != nil {
		return nil, err
	}
	return job, nil
}

// Delete removes a job by id. Unknown ids are a no-op success so the
// UI can safely retry; any other storage failure still propagates.
func (r *JobRegistry) Delete(id uuid.UUID) error {
	job, err := r.store.Find(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if job.IsSystem && !r.allowSystemDelete {
		return ErrSystemJobProtected
	}
	return r.store.Delete(id)
}

func (r *JobRegistry) List() ([]models.CronJob, error) {
	return r.store.FindAll()
}

func (r *JobRegistry) Get(id uuid.UUID) (*models.CronJob, error) {
	return r.store.Find(id)
}

// normalizeBody validates and keeps the body for POST/PUT, and drops it
// for methods that never send one.
func normalizeBody(body json.RawMessage, method string) (datatypes.JSON, error) {
	if len(body) == 0 || string(body) == "null" {
		return nil, nil
	}
	if method != "POST" && method != "PUT" {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, &ValidationError{Field: "body", Message: "body must be valid JSON"}
	}
	return datatypes.JSON(body), nil
}

func (r *JobRegistry) refreshNextRun(job *models.CronJob) {
	expr, err := cronexpr.Parse(job.Frequency)
	if err != nil {
		return
	}
	setNextRun(job, expr)
}

func setNextRun(job *models.CronJob, expr *cronexpr.Expression) {
	if !job.IsActive {
		job.NextRunAt = nil
		return
	}
	next := expr.Next(time.Now().UTC())
	job.NextRunAt = &next
}

package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/botpanel/core/internal/models"
	"github.com/google/uuid"
)

// ErrSchedulerUnavailable stands in for a real registration failure
// when no control panel is configured at all.
var ErrSchedulerUnavailable = errors.New("scheduler adapter not configured")

// SchedulerAdapter registers a schedule with the hosting control
// panel's cron API. It is best-effort: failures degrade to manual
// setup instructions, they never block the local save.
type SchedulerAdapter interface {
	Register(ctx context.Context, frequency, command string) error
}

// ProvisionWarning is attached to an otherwise successful create or
// update when external registration could not be completed. It gives
// the operator everything needed to set the schedule up by hand.
type ProvisionWarning struct {
	Message   string `json:"message"`
	Frequency string `json:"frequency"`
	Curl      string `json:"curl"`
	Wget      string `json:"wget"`
}

// Provisioner wraps the registry's create/update with external
// schedule registration.
type Provisioner struct {
	registry *JobRegistry
	store    Store
	adapter  SchedulerAdapter
}

func NewProvisioner(registry *JobRegistry, store Store, adapter SchedulerAdapter) *Provisioner {
	return &Provisioner{registry: registry, store: store, adapter: adapter}
}

func (p *Provisioner) Create(ctx context.Context, in JobInput) (*models.CronJob, *ProvisionWarning, error) {
	job, err := p.registry.Create(in)
	if err != nil {
		return nil, nil, err
	}
	warning := p.provision(ctx, job)
	return job, warning, nil
}

func (p *Provisioner) Update(ctx context.Context, id uuid.UUID, patch JobPatch) (*models.CronJob, *ProvisionWarning, error) {
	job, err := p.registry.Update(id, patch)
	if err != nil {
		return nil, nil, err
	}
	warning := p.provision(ctx, job)
	return job, warning, nil
}

// provision attempts external registration for an already persisted
// job and records the outcome on it. Inactive jobs are skipped. Any
// adapter failure is converted into a warning; the local save made by
// the registry is never rolled back.
func (p *Provisioner) provision(ctx context.Context, job *models.CronJob) *ProvisionWarning {
	if !job.IsActive {
		return nil
	}

	err := p.register(ctx, job)
	if err == nil {
		p.setState(job, models.ProvisionDone)
		return nil
	}

	slog.Warn("External schedule registration failed, falling back to manual setup",
		"job", job.Name, "error", err)
	p.setState(job, models.ProvisionNeedsManual)

	return &ProvisionWarning{
		Message: "The job was saved, but automatic registration with the hosting " +
			"control panel failed. Add it to the host's crontab manually using one " +
			"of the commands below.",
		Frequency: job.Frequency,
		Curl:      Curl(job),
		Wget:      Wget(job),
	}
}

func (p *Provisioner) register(ctx context.Context, job *models.CronJob) error {
	if p.adapter == nil {
		return ErrSchedulerUnavailable
	}
	return p.adapter.Register(ctx, job.Frequency, Curl(job))
}

// setState persists only the provision state column. The full row is
// deliberately not written back: counters may have moved while the
// registration call was in flight.
func (p *Provisioner) setState(job *models.CronJob, state string) {
	job.ProvisionState = state
	if err := p.store.UpdateProvisionState(job.ID, state); err != nil {
		slog.Error("Failed to record provision state", "job", job.ID, "error", err)
	}
}

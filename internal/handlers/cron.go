package handlers

import (
	"errors"
	"log/slog"

	"github.com/botpanel/core/internal/cronexpr"
	"github.com/botpanel/core/internal/models"
	"github.com/botpanel/core/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Execution history page bounds. A bad or missing ?limit= falls back
// to the default; nothing may request the unbounded history.
const (
	defaultExecutionLimit = 50
	maxExecutionLimit     = 200
)

type CronHandler struct {
	registry    *services.JobRegistry
	provisioner *services.Provisioner
	runner      *services.TestRunner
	catalog     *services.Catalog
	store       services.Store
}

func NewCronHandler(
	registry *services.JobRegistry,
	provisioner *services.Provisioner,
	runner *services.TestRunner,
	catalog *services.Catalog,
	store services.Store,
) *CronHandler {
	return &CronHandler{
		registry:    registry,
		provisioner: provisioner,
		runner:      runner,
		catalog:     catalog,
		store:       store,
	}
}

func (h *CronHandler) ListJobs(c *fiber.Ctx) error {
	jobs, err := h.registry.List()
	if err != nil {
		slog.Error("Failed to list cron jobs", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to list cron jobs",
		})
	}
	return c.JSON(fiber.Map{"jobs": jobs})
}

func (h *CronHandler) CreateJob(c *fiber.Ctx) error {
	var in services.JobInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	job, warning, err := h.provisioner.Create(c.Context(), in)
	if err != nil {
		return serviceError(c, err)
	}

	resp := fiber.Map{"job": job}
	if warning != nil {
		resp["warning"] = warning
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *CronHandler) GetJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidJobID(c)
	}

	job, err := h.registry.Get(id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(job)
}

func (h *CronHandler) UpdateJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidJobID(c)
	}

	var patch services.JobPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	job, warning, err := h.provisioner.Update(c.Context(), id, patch)
	if err != nil {
		return serviceError(c, err)
	}

	resp := fiber.Map{"job": job}
	if warning != nil {
		resp["warning"] = warning
	}
	return c.JSON(resp)
}

func (h *CronHandler) DeleteJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidJobID(c)
	}

	if err := h.registry.Delete(id); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cron job deleted"})
}

func (h *CronHandler) TestJob(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidJobID(c)
	}

	result, err := h.runner.Run(c.Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(result)
}

func (h *CronHandler) GetExecutions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidJobID(c)
	}

	if _, err := h.registry.Get(id); err != nil {
		return serviceError(c, err)
	}

	limit := c.QueryInt("limit", defaultExecutionLimit)
	if limit < 1 {
		limit = defaultExecutionLimit
	}
	if limit > maxExecutionLimit {
		limit = maxExecutionLimit
	}

	execs, err := h.store.Executions(id, limit)
	if err != nil {
		slog.Error("Failed to load executions", "job", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to load executions",
		})
	}
	return c.JSON(fiber.Map{"executions": execs})
}

// GetCommands returns the manual provisioning commands for a job, for
// operators who need to paste them into the host's crontab themselves.
func (h *CronHandler) GetCommands(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidJobID(c)
	}

	job, err := h.registry.Get(id)
	if err != nil {
		return serviceError(c, err)
	}

	resp := fiber.Map{
		"frequency": job.Frequency,
		"curl":      services.Curl(job),
		"wget":      services.Wget(job),
	}
	if expr, err := cronexpr.Parse(job.Frequency); err == nil {
		resp["frequency_text"] = expr.Describe()
	}
	return c.JSON(resp)
}

func (h *CronHandler) ListTemplates(c *fiber.Ctx) error {
	templates, source := h.catalog.Recommended(c.Context())
	return c.JSON(fiber.Map{
		"templates": templates,
		"source":    source,
	})
}

// InstallTemplate instantiates a catalog template into a concrete job.
// Installation is idempotent per endpoint: if a system job already
// points at the template's endpoint, it is returned instead of a
// duplicate being created.
func (h *CronHandler) InstallTemplate(c *fiber.Ctx) error {
	var req struct {
		Name  string `json:"name"`
		BotID string `json:"bot_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid request body",
		})
	}

	templates, _ := h.catalog.Recommended(c.Context())
	for _, tpl := range templates {
		if tpl.Name != req.Name {
			continue
		}

		endpoint := h.registry.AbsoluteEndpoint(tpl.Endpoint)
		if existing := h.findSystemJob(endpoint); existing != nil {
			return c.JSON(fiber.Map{"job": existing, "already_installed": true})
		}

		job, warning, err := h.provisioner.Create(c.Context(), services.Instantiate(tpl, req.BotID))
		if err != nil {
			return serviceError(c, err)
		}
		resp := fiber.Map{"job": job}
		if warning != nil {
			resp["warning"] = warning
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}

	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":   true,
		"message": "Unknown template",
	})
}

func (h *CronHandler) Overview(c *fiber.Ctx) error {
	jobs, err := h.registry.List()
	if err != nil {
		slog.Error("Failed to load overview", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to load overview",
		})
	}

	var active, needsManual int
	var runs, successes, failures int64
	for _, j := range jobs {
		if j.IsActive {
			active++
		}
		if j.ProvisionState == models.ProvisionNeedsManual {
			needsManual++
		}
		runs += j.RunCount
		successes += j.SuccessCount
		failures += j.ErrorCount
	}

	return c.JSON(fiber.Map{
		"total_jobs":         len(jobs),
		"active_jobs":        active,
		"needs_manual_setup": needsManual,
		"total_runs":         runs,
		"total_successes":    successes,
		"total_failures":     failures,
	})
}

func (h *CronHandler) findSystemJob(endpoint string) *models.CronJob {
	jobs, err := h.registry.List()
	if err != nil {
		return nil
	}
	for i := range jobs {
		if jobs[i].IsSystem && jobs[i].Endpoint == endpoint {
			return &jobs[i]
		}
	}
	return nil
}

func invalidJobID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   true,
		"message": "Invalid cron job ID",
	})
}

func serviceError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": verr.Message,
			"field":   verr.Field,
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Cron job not found",
		})
	case errors.Is(err, services.ErrSystemJobProtected):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   true,
			"message": "System jobs cannot be deleted",
		})
	default:
		slog.Error("Cron operation failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Internal server error",
		})
	}
}

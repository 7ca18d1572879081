package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/botpanel/core/internal/cronexpr"
	"github.com/botpanel/core/internal/models"
	"github.com/google/uuid"
)

// Response bodies are captured best-effort; anything past this is
// dropped so a misbehaving endpoint cannot bloat the execution log.
const maxResponseCapture = 64 << 10

// TestRunner fires a job's HTTP call on demand and records the outcome.
type TestRunner struct {
	store  Store
	client *http.Client
}

func NewTestRunner(store Store, timeout time.Duration) *TestRunner {
	return &TestRunner{
		store:  store,
		client: &http.Client{Timeout: timeout},
	}
}

// Run executes the job's configured call. The only error it returns is
// ErrNotFound: a failed HTTP call is data, reported inside the
// TestResult. Counters are updated whether the call succeeds or not,
// because a failed attempt is still a recorded run.
func (tr *TestRunner) Run(ctx context.Context, id uuid.UUID) (*models.TestResult, error) {
	job, err := tr.store.Find(id)
	if err != nil {
		return nil, err
	}

	result := tr.execute(ctx, job)
	tr.record(job, result)
	return result, nil
}

func (tr *TestRunner) execute(ctx context.Context, job *models.CronJob) *models.TestResult {
	var body io.Reader
	if job.HasBody() {
		body = bytes.NewReader(job.Body)
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, job.Method, job.Endpoint, body)
	if err != nil {
		return &models.TestResult{
			Success:    false,
			DurationMs: time.Since(start).Milliseconds(),
			Error:      "invalid request: " + err.Error(),
		}
	}
	for _, h := range job.HeaderPairs() {
		if h.Key == "" {
			continue
		}
		req.Header.Set(h.Key, h.Value)
	}
	if job.HasBody() && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tr.client.Do(req)
	durationMs := time.Since(start).Milliseconds()
	if err != nil {
		return &models.TestResult{
			Success:    false,
			DurationMs: durationMs,
			Error:      err.Error(),
		}
	}
	defer resp.Body.Close()

	captured, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseCapture))

	result := &models.TestResult{
		StatusCode: resp.StatusCode,
		DurationMs: durationMs,
		Response:   string(captured),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Success = true
	} else {
		result.Error = "unexpected status " + resp.Status
	}
	return result
}

func (tr *TestRunner) record(job *models.CronJob, result *models.TestResult) {
	now := time.Now().UTC()

	var next *time.Time
	if job.IsActive {
		if expr, err := cronexpr.Parse(job.Frequency); err == nil {
			n := expr.Next(now)
			next = &n
		}
	}

	if err := tr.store.RecordRun(job.ID, result.Success, now, next); err != nil {
		slog.Error("Failed to record run counters", "job", job.ID, "error", err)
	}

	exec := &models.JobExecution{
		CronJobID:  job.ID,
		Success:    result.Success,
		StatusCode: result.StatusCode,
		DurationMs: result.DurationMs,
		Response:   result.Response,
		Error:      result.Error,
		ExecutedAt: now,
	}
	if err := tr.store.AppendExecution(exec); err != nil {
		slog.Error("Failed to record execution", "job", job.ID, "error", err)
	}
}

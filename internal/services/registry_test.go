package services

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/botpanel/core/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://panel.example.com"

func newTestRegistry(t *testing.T) (*JobRegistry, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewJobRegistry(store, testBaseURL, true), store
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func TestRegistry_Create(t *testing.T) {
	registry, _ := newTestRegistry(t)

	job, err := registry.Create(JobInput{
		Name:      "Check Payments",
		Endpoint:  "/api/payments/check-pending",
		Method:    "POST",
		Frequency: "*/1 * * * *",
		Body:      json.RawMessage(`{"interval":30}`),
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, testBaseURL+"/api/payments/check-pending", job.Endpoint)
	assert.Equal(t, "POST", job.Method)
	assert.Equal(t, "*/1 * * * *", job.Frequency)
	assert.True(t, job.IsActive)
	assert.False(t, job.IsSystem)
	assert.Equal(t, models.ProvisionPending, job.ProvisionState)
	assert.Zero(t, job.RunCount)
	assert.Zero(t, job.SuccessCount)
	assert.Zero(t, job.ErrorCount)
	assert.JSONEq(t, `{"interval":30}`, string(job.Body))
	require.NotNil(t, job.NextRunAt)
}

func TestRegistry_Create_Validation(t *testing.T) {
	registry, _ := newTestRegistry(t)

	tests := []struct {
		name  string
		in    JobInput
		field string
	}{
		{
			name:  "missing name",
			in:    JobInput{Endpoint: "/x", Frequency: "* * * * *"},
			field: "name",
		},
		{
			name:  "missing endpoint",
			in:    JobInput{Name: "x", Frequency: "* * * * *"},
			field: "endpoint",
		},
		{
			name:  "missing frequency",
			in:    JobInput{Name: "x", Endpoint: "/x"},
			field: "frequency",
		},
		{
			name:  "malformed frequency",
			in:    JobInput{Name: "x", Endpoint: "/x", Frequency: "* * *"},
			field: "frequency",
		},
		{
			name:  "unsupported method",
			in:    JobInput{Name: "x", Endpoint: "/x", Method: "PATCH", Frequency: "* * * * *"},
			field: "method",
		},
		{
			name: "invalid body json",
			in: JobInput{
				Name: "x", Endpoint: "/x", Method: "POST",
				Frequency: "* * * * *", Body: json.RawMessage(`{nope}`),
			},
			field: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Create(tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)

			// Nothing persisted on validation failure.
			jobs, _ := registry.List()
			assert.Empty(t, jobs)
		})
	}
}

func TestRegistry_Create_EndpointAbsolutization(t *testing.T) {
	registry, _ := newTestRegistry(t)

	tests := []struct {
		endpoint string
		want     string
	}{
		{"/api/payments/check-pending", testBaseURL + "/api/payments/check-pending"},
		{"api/payments/check-pending", testBaseURL + "/api/payments/check-pending"},
		{"https://other.example.com/hook", "https://other.example.com/hook"},
		{"http://other.example.com/hook", "http://other.example.com/hook"},
	}

	for _, tt := range tests {
		job, err := registry.Create(JobInput{
			Name:      "job",
			Endpoint:  tt.endpoint,
			Frequency: "* * * * *",
		})
		require.NoError(t, err)
		assert.Equal(t, tt.want, job.Endpoint)
	}
}

func TestRegistry_Create_BodyDroppedForGet(t *testing.T) {
	registry, _ := newTestRegistry(t)

	job, err := registry.Create(JobInput{
		Name:      "job",
		Endpoint:  "/x",
		Method:    "GET",
		Frequency: "* * * * *",
		Body:      json.RawMessage(`{"ignored":true}`),
	})
	require.NoError(t, err)
	assert.Empty(t, job.Body)
	assert.False(t, job.HasBody())
}

func TestRegistry_Update(t *testing.T) {
	registry, _ := newTestRegistry(t)

	job, err := registry.Create(JobInput{
		Name:      "original",
		Endpoint:  "/original",
		Frequency: "* * * * *",
	})
	require.NoError(t, err)

	updated, err := registry.Update(job.ID, JobPatch{
		Name:      strPtr("renamed"),
		Endpoint:  strPtr("/renamed"),
		Frequency: strPtr("*/5 * * * *"),
		IsActive:  boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, testBaseURL+"/renamed", updated.Endpoint)
	assert.Equal(t, "*/5 * * * *", updated.Frequency)
	assert.False(t, updated.IsActive)
	assert.Nil(t, updated.NextRunAt)
}

func TestRegistry_Update_NotFound(t *testing.T) {
	registry, _ := newTestRegistry(t)

	_, err := registry.Update(uuid.New(), JobPatch{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_Update_InvalidFrequencyRejected(t *testing.T) {
	registry, _ := newTestRegistry(t)

	job, err := registry.Create(JobInput{
		Name: "job", Endpoint: "/x", Frequency: "*/5 * * * *",
	})
	require.NoError(t, err)

	_, err = registry.Update(job.ID, JobPatch{Frequency: strPtr("not a cron")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	// The stored frequency stays valid.
	got, err := registry.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", got.Frequency)
}

func TestRegistry_Update_SystemJobNarrowing(t *testing.T) {
	registry, _ := newTestRegistry(t)

	job, err := registry.Create(JobInput{
		Name:      "Check Pending Payments",
		Endpoint:  "/api/payments/check-pending",
		Method:    "POST",
		Frequency: "*/1 * * * *",
		Headers:   []models.HeaderPair{{Key: "X-Cron-Token", Value: "abc"}},
		Body:      json.RawMessage(`{"interval":30}`),
		IsSystem:  true,
	})
	require.NoError(t, err)

	updated, err := registry.Update(job.ID, JobPatch{
		Endpoint:  strPtr("/changed"),
		Method:    strPtr("DELETE"),
		Frequency: strPtr("0 0 * * *"),
		Headers:   &[]models.HeaderPair{},
		Body:      json.RawMessage(`null`),
		IsActive:  boolPtr(false),
	})
	require.NoError(t, err)

	// Only is_active changed; everything else is silently ignored.
	assert.Equal(t, job.Endpoint, updated.Endpoint)
	assert.Equal(t, "POST", updated.Method)
	assert.Equal(t, "*/1 * * * *", updated.Frequency)
	assert.Equal(t, job.HeaderPairs(), updated.HeaderPairs())
	assert.JSONEq(t, `{"interval":30}`, string(updated.Body))
	assert.False(t, updated.IsActive)
}

func TestRegistry_Delete_Idempotent(t *testing.T) {
	registry, _ := newTestRegistry(t)

	job, err := registry.Create(JobInput{
		Name: "job", Endpoint: "/x", Frequency: "* * * * *",
	})
	require.NoError(t, err)

	require.NoError(t, registry.Delete(job.ID))
	require.NoError(t, registry.Delete(job.ID))
	require.NoError(t, registry.Delete(uuid.New()))

	_, err = registry.Get(job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// faultyStore simulates a storage outage on lookups.
type faultyStore struct {
	*memStore
	findErr error
}

func (s *faultyStore) Find(id uuid.UUID) (*models.CronJob, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.memStore.Find(id)
}

func TestRegistry_Delete_StoreErrorPropagates(t *testing.T) {
	store := &faultyStore{memStore: newMemStore()}
	registry := NewJobRegistry(store, testBaseURL, true)

	job, err := registry.Create(JobInput{
		Name: "job", Endpoint: "/x", Frequency: "* * * * *",
	})
	require.NoError(t, err)

	// Only an unknown id is a no-op success. A storage failure must
	// surface instead of being reported as a completed delete.
	store.findErr = errors.New("dial tcp 127.0.0.1:5432: connection refused")
	err = registry.Delete(job.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	store.findErr = nil
	got, err := registry.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
}

func TestRegistry_Delete_SystemJobPolicy(t *testing.T) {
	store := newMemStore()
	registry := NewJobRegistry(store, testBaseURL, false)

	job, err := registry.Create(JobInput{
		Name: "seeded", Endpoint: "/x", Frequency: "* * * * *", IsSystem: true,
	})
	require.NoError(t, err)

	err = registry.Delete(job.ID)
	assert.ErrorIs(t, err, ErrSystemJobProtected)

	_, err = registry.Get(job.ID)
	require.NoError(t, err)
}

func TestRegistry_HeaderOrderPreserved(t *testing.T) {
	registry, _ := newTestRegistry(t)

	headers := []models.HeaderPair{
		{Key: "X-Cron-Token", Value: "t"},
		{Key: "Accept", Value: "application/json"},
		{Key: "X-Trace", Value: "1"},
	}
	job, err := registry.Create(JobInput{
		Name: "job", Endpoint: "/x", Frequency: "* * * * *", Headers: headers,
	})
	require.NoError(t, err)

	got, err := registry.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, headers, got.HeaderPairs())
}

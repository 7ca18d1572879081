package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/botpanel/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallback_Content(t *testing.T) {
	templates := Fallback()
	require.Len(t, templates, 2)

	payments := templates[0]
	assert.Equal(t, "/api/payments/check-pending", payments.Endpoint)
	assert.Equal(t, "*/1 * * * *", payments.Frequency)
	assert.Equal(t, "POST", payments.Method)
	assert.JSONEq(t, `{"interval":30}`, string(payments.Body))

	pix := templates[1]
	assert.Equal(t, "/api/pix/check-expiration", pix.Endpoint)
	assert.Equal(t, "*/5 * * * *", pix.Frequency)

	// Every default job carries the blank token header for the
	// operator to fill in.
	for _, tpl := range templates {
		require.NotEmpty(t, tpl.Headers, tpl.Name)
		assert.Equal(t, TokenHeader, tpl.Headers[0].Key)
		assert.Empty(t, tpl.Headers[0].Value)
	}
}

func TestCatalog_RecommendedFromBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/cron/templates", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"templates": Fallback(),
		})
	}))
	defer backend.Close()

	catalog := NewCatalog(backend.URL, "token", 5*time.Second)
	templates, source := catalog.Recommended(context.Background())

	assert.Equal(t, CatalogSourceBackend, source)
	assert.Len(t, templates, 2)
}

func TestCatalog_FallsBack(t *testing.T) {
	tests := []struct {
		name    string
		catalog *Catalog
	}{
		{
			name:    "backend not configured",
			catalog: NewCatalog("", "", time.Second),
		},
		{
			name:    "backend unreachable",
			catalog: NewCatalog("http://127.0.0.1:1", "", time.Second),
		},
		{
			name: "backend error status",
			catalog: func() *Catalog {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
				}))
				t.Cleanup(srv.Close)
				return NewCatalog(srv.URL, "", time.Second)
			}(),
		},
		{
			name: "backend empty list",
			catalog: func() *Catalog {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte(`{"templates":[]}`))
				}))
				t.Cleanup(srv.Close)
				return NewCatalog(srv.URL, "", time.Second)
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			templates, source := tt.catalog.Recommended(context.Background())
			assert.Equal(t, CatalogSourceFallback, source)
			assert.Equal(t, Fallback(), templates)
		})
	}
}

func TestInstantiate(t *testing.T) {
	tpl := Fallback()[0]

	in := Instantiate(tpl, "")
	assert.Equal(t, tpl.Name, in.Name)
	assert.Equal(t, tpl.Endpoint, in.Endpoint)
	assert.Equal(t, tpl.Frequency, in.Frequency)
	assert.True(t, in.IsSystem)
	assert.JSONEq(t, `{"interval":30}`, string(in.Body))
}

func TestInstantiate_BindsBotID(t *testing.T) {
	tpl := Fallback()[0]

	in := Instantiate(tpl, "bot-42")
	assert.JSONEq(t, `{"interval":30,"bot_id":"bot-42"}`, string(in.Body))

	// The template itself is untouched.
	assert.JSONEq(t, `{"interval":30}`, string(tpl.Body))
}

func TestInstantiate_CorruptBodySurvivesToValidation(t *testing.T) {
	tpl := models.JobTemplate{
		Name:      "Broken Template",
		Endpoint:  "/api/broken",
		Method:    "POST",
		Frequency: "*/5 * * * *",
		Body:      json.RawMessage(`{"interval":`),
	}

	// A body that can't be parsed is passed through unchanged instead
	// of being replaced with a bare bot_id object.
	in := Instantiate(tpl, "bot-42")
	assert.Equal(t, string(tpl.Body), string(in.Body))

	// The registry then rejects it, so the bad catalog payload is
	// visible to the caller rather than silently installed.
	registry := NewJobRegistry(newMemStore(), testBaseURL, true)
	_, err := registry.Create(in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "body", verr.Field)
}

func TestInstantiate_PersistsViaRegistry(t *testing.T) {
	registry := NewJobRegistry(newMemStore(), testBaseURL, true)

	job, err := registry.Create(Instantiate(Fallback()[0], "bot-42"))
	require.NoError(t, err)

	assert.True(t, job.IsSystem)
	assert.Equal(t, testBaseURL+"/api/payments/check-pending", job.Endpoint)
	assert.Equal(t, []models.HeaderPair{{Key: TokenHeader, Value: ""}}, job.HeaderPairs())
}

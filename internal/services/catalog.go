package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/botpanel/core/internal/models"
)

// Catalog sources reported alongside the template list. The ops
// backend supplies the current set; the built-in fallback guarantees
// the operator always sees the defaults even when that backend is down.
const (
	CatalogSourceBackend  = "backend"
	CatalogSourceFallback = "fallback"
)

// TokenHeader is the auth header each default job carries. Its value is
// left blank for the operator to fill in.
const TokenHeader = "X-Cron-Token"

// Catalog supplies the recommended cron job templates.
type Catalog struct {
	backendURL string
	token      string
	client     *http.Client
}

func NewCatalog(backendURL, token string, timeout time.Duration) *Catalog {
	return &Catalog{
		backendURL: backendURL,
		token:      token,
		client:     &http.Client{Timeout: timeout},
	}
}

// Recommended returns the template catalog from the ops backend, or the
// built-in fallback when the backend is unconfigured, unreachable, or
// answers with anything but a usable list.
func (c *Catalog) Recommended(ctx context.Context) ([]models.JobTemplate, string) {
	templates, err := c.fetch(ctx)
	if err != nil {
		slog.Warn("Template catalog unavailable, using fallback", "error", err)
		return Fallback(), CatalogSourceFallback
	}
	return templates, CatalogSourceBackend
}

func (c *Catalog) fetch(ctx context.Context) ([]models.JobTemplate, error) {
	if c.backendURL == "" {
		return nil, fmt.Errorf("ops backend not configured")
	}

	url := c.backendURL + "/api/v1/cron/templates"
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ops backend returned status %d", resp.StatusCode)
	}

	var payload struct {
		Templates []models.JobTemplate `json:"templates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Templates) == 0 {
		return nil, fmt.Errorf("ops backend returned no templates")
	}
	return payload.Templates, nil
}

// Fallback is the self-contained copy of the default catalog. It must
// stay behaviorally identical to the backend's list (same endpoints,
// same frequencies); catalog_test.go asserts the parity.
func Fallback() []models.JobTemplate {
	return []models.JobTemplate{
		{
			Name:        "Check Pending Payments",
			Description: "Polls for payments awaiting confirmation and settles the ones that cleared.",
			Endpoint:    "/api/payments/check-pending",
			Method:      "POST",
			Frequency:   "*/1 * * * *",
			Headers:     []models.HeaderPair{{Key: TokenHeader, Value: ""}},
			Body:        json.RawMessage(`{"interval":30}`),
		},
		{
			Name:        "Check PIX Expiration",
			Description: "Expires PIX charges whose payment window has elapsed.",
			Endpoint:    "/api/pix/check-expiration",
			Method:      "GET",
			Frequency:   "*/5 * * * *",
			Headers:     []models.HeaderPair{{Key: TokenHeader, Value: ""}},
		},
	}
}

// Instantiate materializes a template into registry input, binding the
// optional bot id into the body. Catalog jobs are marked as system jobs
// so their execution parameters stay protected from later edits.
func Instantiate(tpl models.JobTemplate, botID string) JobInput {
	in := JobInput{
		Name:        tpl.Name,
		Description: tpl.Description,
		Endpoint:    tpl.Endpoint,
		Method:      tpl.Method,
		Frequency:   tpl.Frequency,
		Headers:     append([]models.HeaderPair(nil), tpl.Headers...),
		Body:        tpl.Body,
		IsSystem:    true,
	}

	if botID != "" {
		bound, err := bindBotID(tpl.Body, botID)
		if err != nil {
			// Keep the body as delivered; the registry's body
			// validation will reject it visibly instead of the bad
			// catalog payload being papered over here.
			slog.Warn("Template body is not a JSON object, skipping bot binding",
				"template", tpl.Name, "error", err)
		} else {
			in.Body = bound
		}
	}
	return in
}

func bindBotID(body json.RawMessage, botID string) (json.RawMessage, error) {
	params := map[string]any{}
	if len(body) > 0 && string(body) != "null" {
		if err := json.Unmarshal(body, &params); err != nil {
			return nil, err
		}
	}
	params["bot_id"] = botID
	return json.Marshal(params)
}

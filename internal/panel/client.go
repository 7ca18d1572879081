// Package panel talks to the hosting control panel's cron API. It is
// best-effort by design: callers treat every failure as "set the
// schedule up manually", never as a reason to fail their own request.
package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	apiURL string
	token  string
	client *http.Client
}

func NewClient(apiURL, token string, timeout time.Duration) *Client {
	return &Client{
		apiURL: apiURL,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

// Register creates a crontab entry on the hosting panel.
func (c *Client) Register(ctx context.Context, frequency, command string) error {
	payload, err := json.Marshal(map[string]string{
		"schedule": frequency,
		"command":  command,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/cron", c.apiURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("control panel returned status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// Package deployhook triggers a static-site rebuild after translations change.
package deployhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	errors "github.com/frahmantamala/school-management/internal"
)

// Meta travels with the hook so the build can report which translations it ships.
type Meta struct {
	TranslationVersion string `json:"translationVersion"`
	PublicationID      string `json:"publicationId,omitempty"`
}

type payload struct {
	Ref  string `json:"ref"`
	Meta Meta   `json:"meta"`
}

// Result is what the hook endpoint answered. Job fields are empty when the
// endpoint does not describe the queued job.
type Result struct {
	StatusCode int
	JobID      string
	JobState   string
}

type Config struct {
	URL     string
	Ref     string
	Timeout time.Duration
}

type Client struct {
	url        string
	ref        string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ref := cfg.Ref
	if ref == "" {
		ref = "main"
	}
	return &Client{
		url:        cfg.URL,
		ref:        ref,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Enabled reports whether a hook URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

func (c *Client) Trigger(ctx context.Context, meta Meta) (*Result, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("deploy hook is not configured")
	}

	jsonData, err := json.Marshal(payload{Ref: c.ref, Meta: meta})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deploy hook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewExternalError("Deploy hook request failed", errors.ErrCodeDeployHookFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewExternalError(
			fmt.Sprintf("Deploy hook returned status %d", resp.StatusCode), errors.ErrCodeDeployHookFailed, nil)
	}

	result := &Result{StatusCode: resp.StatusCode}
	var decoded struct {
		Job struct {
			ID    string `json:"id"`
			State string `json:"state"`
		} `json:"job"`
	}
	if len(body) > 0 && json.Unmarshal(body, &decoded) == nil {
		result.JobID = decoded.Job.ID
		result.JobState = decoded.Job.State
	}

	c.logger.Info("deploy hook triggered",
		"translation_version", meta.TranslationVersion,
		"publication_id", meta.PublicationID,
		"status", resp.StatusCode,
		"job_id", result.JobID)
	return result, nil
}

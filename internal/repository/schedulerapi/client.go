// Package schedulerapi is the REST client for the external time-based
// trigger service used by deferred training sends.
package schedulerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seisline/seisline/internal/domain/notify"
)

type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	APIKey  string        `mapstructure:"api_key"`
}

type Client struct {
	c   *http.Client
	cfg Config
	log *zap.Logger
}

var _ notify.TriggerScheduler = (*Client)(nil)

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.L()
	}
	return &Client{
		c:   &http.Client{Timeout: cfg.Timeout},
		cfg: cfg,
		log: log.With(zap.String("component", "scheduler.client")),
	}
}

type registerRequest struct {
	NotificationID string    `json:"notification_id"`
	TriggerAt      time.Time `json:"trigger_at"`
}

type registerResponse struct {
	ScheduleRef string `json:"schedule_ref"`
}

func (cl *Client) Register(ctx context.Context, notificationID uuid.UUID, at time.Time) (string, error) {
	body, err := json.Marshal(registerRequest{
		NotificationID: notificationID.String(),
		TriggerAt:      at.UTC(),
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, cl.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.cfg.BaseURL+"/triggers", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if cl.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cl.cfg.APIKey)
	}

	resp, err := cl.c.Do(req)
	if err != nil {
		return "", fmt.Errorf("register trigger: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("register trigger: status %d", resp.StatusCode)
	}

	var out registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("register trigger: decode: %w", err)
	}
	if out.ScheduleRef == "" {
		return "", fmt.Errorf("register trigger: empty schedule ref")
	}
	return out.ScheduleRef, nil
}

func (cl *Client) Cancel(ctx context.Context, ref string) error {
	ctx, cancel := context.WithTimeout(ctx, cl.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, cl.cfg.BaseURL+"/triggers/"+ref, nil)
	if err != nil {
		return err
	}
	if cl.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cl.cfg.APIKey)
	}

	resp, err := cl.c.Do(req)
	if err != nil {
		return fmt.Errorf("cancel trigger: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("cancel trigger: status %d", resp.StatusCode)
	}
	return nil
}

// Package feed implements the bulletin source over the seismic data feed's
// HTTP API: a list endpoint per classification plus per-bulletin detail
// fetches.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/seisline/seisline/internal/domain/quake"
	"github.com/seisline/seisline/internal/obs/retry"
)

type Config struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	Attempts  int           `mapstructure:"attempts"`
}

type Client struct {
	c   *http.Client
	cfg Config
	log *zap.Logger
}

var _ quake.Feed = (*Client)(nil)

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if log == nil {
		log = zap.L()
	}
	return &Client{
		c:   &http.Client{Timeout: cfg.Timeout, Transport: transport},
		cfg: cfg,
		log: log.With(zap.String("component", "feed.client")),
	}
}

func (cl *Client) FetchBulletins(ctx context.Context, c quake.Classification, limit int) ([]quake.RawBulletin, error) {
	if limit <= 0 {
		limit = 50
	}
	u := fmt.Sprintf("%s/bulletins?classification=%s&limit=%s",
		cl.cfg.BaseURL, url.QueryEscape(string(c)), strconv.Itoa(limit))

	var out []quake.RawBulletin
	err := retry.Do(ctx, func() error {
		body, err := cl.get(ctx, u)
		if err != nil {
			return err
		}
		out = out[:0]
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("decode bulletin list: %w", err)
		}
		return nil
	}, retry.Policy{
		Name:     "feed.fetch_bulletins",
		Attempts: cl.cfg.Attempts,
		Backoff:  retry.ExpoJitter{Base: 300 * time.Millisecond, Max: 3 * time.Second, Jitter: 0.2},
		OnAttempt: func(attempt int, err error) {
			cl.log.Warn("bulletin fetch attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		},
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (cl *Client) FetchDetail(ctx context.Context, detailURL string) ([]byte, error) {
	var out []byte
	err := retry.Do(ctx, func() error {
		body, err := cl.get(ctx, detailURL)
		if err != nil {
			return err
		}
		out = body
		return nil
	}, retry.Policy{
		Name:     "feed.fetch_detail",
		Attempts: cl.cfg.Attempts,
		Backoff:  retry.ExpoJitter{Base: 300 * time.Millisecond, Max: 3 * time.Second, Jitter: 0.2},
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (cl *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if cl.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cl.cfg.UserAgent)
	}
	resp, err := cl.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: %s returned %d", u, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

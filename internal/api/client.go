package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/notification"
)

// TokenSource yields the bearer token to authenticate with, read at call
// time rather than cached so a refreshed login is picked up immediately.
type TokenSource func() string

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Breaker settings; zero values get the defaults below.
	BreakerMaxFailures uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
}

// Client talks to the dashboard backend's notification endpoints. All
// calls run through a circuit breaker so a dead backend fails fast
// instead of stacking up timeouts.
type Client struct {
	base  string
	http  *http.Client
	cb    *gobreaker.CircuitBreaker
	token TokenSource
	log   *zap.Logger
}

func NewClient(cfg Config, token TokenSource, log *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerInterval == 0 {
		cfg.BreakerInterval = 60 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	st := gobreaker.Settings{
		Name:     "notifications-api",
		Interval: cfg.BreakerInterval,
		Timeout:  cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &Client{
		base:  cfg.BaseURL,
		http:  &http.Client{Timeout: cfg.Timeout},
		cb:    gobreaker.NewCircuitBreaker(st),
		token: token,
		log:   log,
	}
}

// List fetches the user's notifications and normalizes them, stamping
// roleID onto each record.
func (c *Client) List(ctx context.Context, roleID, userID string) ([]notification.Notification, error) {
	u := fmt.Sprintf("%s/api/v1/notifications?userId=%s", c.base, url.QueryEscape(userID))
	body, err := c.do(ctx, http.MethodGet, u)
	if err != nil {
		return nil, err
	}
	return notification.DecodeResponse(body, roleID)
}

// MarkRead acknowledges read status for a notification. The response
// body carries no information the caller uses; any non-2xx is failure.
func (c *Client) MarkRead(ctx context.Context, id, userID string) error {
	u := fmt.Sprintf("%s/api/v1/notifications/%s/mark-read?userId=%s",
		c.base, url.PathEscape(id), url.QueryEscape(userID))
	_, err := c.do(ctx, http.MethodPut, u)
	return err
}

func (c *Client) do(ctx context.Context, method, u string) ([]byte, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, u, nil)
		if err != nil {
			return nil, err
		}
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("%s %s: unexpected status %d", method, u, resp.StatusCode)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

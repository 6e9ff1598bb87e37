// Package alert is a minimal PagerDuty Events v2 client used for the
// socket listener's disconnect and reconnect-failure alarms.
// It is deliberately best-effort: a failed or unconfigured alert must
// never affect job processing, so every method swallows its own errors
// after logging them.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const eventsURL = "https://events.pagerduty.com/v2/enqueue"

// Client sends deduplicated trigger/resolve events to PagerDuty. A Client
// built with an empty RoutingKey is a permissive no-op, so callers can
// construct one unconditionally and let configuration decide whether it
// does anything.
type Client struct {
	RoutingKey string
	Source     string
	EventsURL  string // defaults to the PagerDuty Events v2 endpoint; overridable in tests
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// New builds a Client. routingKey == "" disables every call.
func New(routingKey, source string, logger *slog.Logger) *Client {
	return &Client{
		RoutingKey: routingKey,
		Source:     source,
		EventsURL:  eventsURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Logger:     logger.With("component", "alert"),
	}
}

type event struct {
	RoutingKey  string  `json:"routing_key"`
	EventAction string  `json:"event_action"`
	DedupKey    string  `json:"dedup_key,omitempty"`
	Payload     payload `json:"payload"`
}

type payload struct {
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	Severity string `json:"severity"`
}

// Trigger fires (or re-fires) an alert identified by dedupKey. Safe to call
// repeatedly; PagerDuty coalesces repeated triggers with the same key.
func (c *Client) Trigger(ctx context.Context, dedupKey, summary, severity string) {
	c.send(ctx, event{
		EventAction: "trigger",
		DedupKey:    dedupKey,
		Payload:     payload{Summary: summary, Source: c.Source, Severity: severity},
	})
}

// Resolve closes the alert identified by dedupKey.
func (c *Client) Resolve(ctx context.Context, dedupKey, summary string) {
	c.send(ctx, event{
		EventAction: "resolve",
		DedupKey:    dedupKey,
		Payload:     payload{Summary: summary, Source: c.Source, Severity: "info"},
	})
}

func (c *Client) send(ctx context.Context, e event) {
	if c.RoutingKey == "" {
		return
	}
	e.RoutingKey = c.RoutingKey

	body, err := json.Marshal(e)
	if err != nil {
		c.Logger.Warn("alert_encode_failed", "err", err)
		return
	}

	url := c.EventsURL
	if url == "" {
		url = eventsURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.Logger.Warn("alert_request_build_failed", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Warn("alert_send_failed", "action", e.EventAction, "dedup_key", e.DedupKey, "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.Logger.Warn("alert_send_rejected",
			"action", e.EventAction, "dedup_key", e.DedupKey, "status", fmt.Sprintf("%d", resp.StatusCode))
	}
}

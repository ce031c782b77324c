package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/moltbot/rampart/pkg/httputil"
)

// WebhookSink POSTs each decision record to an external collector. The
// collector must answer 2xx; anything else is an append error surfaced to
// the caller, never a silent drop.
type WebhookSink struct {
	url     string
	timeout time.Duration
}

func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{url: url, timeout: timeout}
}

func (s *WebhookSink) Append(ctx context.Context, rec Record) error {
	if rec.Timestamp == "" {
		rec.Timestamp = Now()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("audit: marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("audit: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DeliveryClient(s.timeout).Do(req)
	if err != nil {
		return fmt.Errorf("audit: deliver record: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := httputil.ReadBody(resp.Body)
		return fmt.Errorf("audit: collector returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return nil
}

func (s *WebhookSink) Close() error { return nil }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

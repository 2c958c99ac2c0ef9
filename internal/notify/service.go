package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Service delivers signed events to the single configured webhook
// endpoint. An empty URL disables delivery entirely.
type Service struct {
	url    string
	secret string
	client *http.Client
}

func NewService(url, secret string) *Service {
	return &Service{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether a webhook endpoint is configured.
func (s *Service) Enabled() bool {
	return s.url != ""
}

func (s *Service) Send(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Doorwatch-Signature", Sign(s.secret, payload))
	req.Header.Set("X-Doorwatch-Event", event.Type)
	req.Header.Set("User-Agent", "Doorwatch-Webhook/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver event: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("deliver event: HTTP %d", resp.StatusCode)
	}

	return nil
}

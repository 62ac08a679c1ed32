package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/metrics"
)

type webhookPayload struct {
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Data      Data      `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// postWebhook sends a single attempt; it is not retried.
func (s *System) postWebhook(endpoint string, timeout time.Duration, a Alert) error {
	errFactory := errors.New()

	body, err := json.Marshal(webhookPayload{
		Severity:  a.Severity.String(),
		Message:   a.Message,
		Data:      a.Data,
		Timestamp: a.Timestamp,
	})
	if err != nil {
		return errFactory.Wrap(errors.ErrEncode, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errFactory.Wrap(ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errFactory.Wrap(ErrDelivery, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errFactory.WithData(ErrDelivery, struct {
			Status string
		}{
			Status: resp.Status,
		})
	}
	return nil
}

func (s *System) deliver(d *Delivery, endpoint string, timeout time.Duration, a Alert) {
	err := s.postWebhook(endpoint, timeout, a)
	if err != nil {
		metrics.ObserveWebhook(metrics.OutcomeError)
		s.log.Warn().
			Err(err).
			Str("alert_id", a.ID).
			Msg("Webhook delivery failed")
	} else {
		metrics.ObserveWebhook(metrics.OutcomeSuccess)
	}
	d.finish(err)

	s.mu.Lock()
	delete(s.inflight, d)
	s.mu.Unlock()
}

package alert

import "codeberg.org/mutker/vitalsctl/internal/errors"

const (
	ErrInvalidConfig    = errors.ErrInvalidConfig
	ErrInvalidThreshold = errors.ErrorCode("alert_invalid_threshold")
	ErrInvalidWebhook   = errors.ErrorCode("alert_invalid_webhook")
	ErrInvalidTimeout   = errors.ErrorCode("alert_invalid_timeout")
	ErrDelivery         = errors.ErrDelivery
)

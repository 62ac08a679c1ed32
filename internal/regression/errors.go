package regression

import "codeberg.org/mutker/vitalsctl/internal/errors"

const (
	ErrInvalidThresholds = errors.ErrorCode("regression_invalid_thresholds")
)

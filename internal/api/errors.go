package api

import "codeberg.org/mutker/vitalsctl/internal/errors"

const (
	ErrServeAPI      = errors.ErrServeAPI
	ErrShutdown      = errors.ErrShutdownFailed
	ErrInvalidConfig = errors.ErrInvalidConfig
)

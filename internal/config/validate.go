package config

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter wraps every configuration validation failure.
var ErrInvalidParameter = errors.New("invalid configuration")

// Validate checks parameter ranges the pipeline depends on.
func (c *Config) Validate() error {
	if c.Scan.Threshold < 0 || c.Scan.Threshold > 100 {
		return fmt.Errorf("%w: threshold must be between 0 and 100, got %v", ErrInvalidParameter, c.Scan.Threshold)
	}
	if c.Scan.Frames <= 0 {
		return fmt.Errorf("%w: frames must be positive, got %d", ErrInvalidParameter, c.Scan.Frames)
	}
	if c.Scan.HashSize <= 1 {
		return fmt.Errorf("%w: hash size must be greater than 1, got %d", ErrInvalidParameter, c.Scan.HashSize)
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidParameter, c.Scan.Workers)
	}
	if c.Scan.SkipDurationSeconds < 0 {
		return fmt.Errorf("%w: skip duration cannot be negative, got %d", ErrInvalidParameter, c.Scan.SkipDurationSeconds)
	}
	return nil
}

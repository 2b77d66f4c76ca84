package detection

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration error rejected before work starts
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrStopped is returned by operations interrupted through Stop
var ErrStopped = errors.New("detection stopped")

// ConfigError names the option that violated a precondition
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Option, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// InvalidFaceCountError is returned when the reference image does not hold exactly one face
type InvalidFaceCountError struct {
	Count int
}

func (e *InvalidFaceCountError) Error() string {
	return fmt.Sprintf("verification image should contain exactly 1 face, found %d", e.Count)
}

func (e *InvalidFaceCountError) Unwrap() error {
	return ErrInvalidConfig
}

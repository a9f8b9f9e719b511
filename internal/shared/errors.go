package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Database errors
	ErrNothingToRollback = fmt.Errorf("no migrations to roll back")

	// Workshop service errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrSubmissionRejected = fmt.Errorf("request submission rejected")
	ErrRemote             = fmt.Errorf("remote operation failed")
	ErrHandleClosed       = fmt.Errorf("workshop handle shut down")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Preset errors
	ErrParse          = fmt.Errorf("preset parse failed")
	ErrPresetNotFound = fmt.Errorf("preset not found")
	ErrNoPresets      = fmt.Errorf("no presets loaded")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

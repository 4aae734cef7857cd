package services

import "errors"

// Engine steps, in execution order.
const (
	StepSelectStack = "select-stack"
	StepSetConfig   = "set-config"
	StepRefresh     = "refresh"
	StepUp          = "up"
)

// EngineError wraps a failure reported by the automation engine. Its message
// is the engine's message, unchanged.
type EngineError struct {
	Step string
	Err  error
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *EngineError) Unwrap() error { return e.Err }

// IsEngineError reports whether err came from the automation engine.
func IsEngineError(err error) bool {
	var engineErr *EngineError
	return errors.As(err, &engineErr)
}

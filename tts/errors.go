package tts

import (
	"errors"
	"fmt"
)

// Common errors for the narration system.
var (
	// Controller errors
	ErrControllerShutdown = errors.New("controller has been shut down")
	ErrControllerRunning  = errors.New("controller is already running")
	ErrUnknownAction      = errors.New("unknown action")

	// Engine errors
	ErrEngineNotAvailable = errors.New("speech engine is not available")
	ErrUnknownEngine      = errors.New("unknown speech engine")
	ErrNoVoices           = errors.New("engine reported no voices")
	ErrVoiceNotFound      = errors.New("requested voice not found")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidRate   = errors.New("rate out of range")
)

// EngineError records a failed engine operation.
type EngineError struct {
	Engine string // engine name, e.g. "espeak"
	Op     string // operation, e.g. "speak"
	Err    error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Engine, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError wraps err with the engine and operation that produced it.
func NewEngineError(engine, op string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Engine: engine, Op: op, Err: err}
}

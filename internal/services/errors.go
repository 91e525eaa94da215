package services

import (
	"errors"
)

var (
	// ErrEmailNotFound indicates the referenced email does not exist
	ErrEmailNotFound = errors.New("email not found")
	// ErrActionNotFound indicates the referenced action does not exist
	ErrActionNotFound = errors.New("action not found")
	// ErrInvalidTransition indicates an out-of-order action state change;
	// the wrapped message names the action's current status
	ErrInvalidTransition = errors.New("invalid action transition")
	// ErrAgentAlreadyRunning indicates Start was called while running
	ErrAgentAlreadyRunning = errors.New("agent already running")
	// ErrAgentNotRunning indicates Stop was called while stopped
	ErrAgentNotRunning = errors.New("agent not running")
	// ErrClassifyFailed indicates the classifier capability failed
	ErrClassifyFailed = errors.New("classification failed")
	// ErrDraftFailed indicates the responder capability failed
	ErrDraftFailed = errors.New("reply drafting failed")
)

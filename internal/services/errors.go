// Package services implements the intake conversation core: answer
// validation, phone normalization, AI health tracking, the scripted fallback
// flow and the hybrid orchestrator that ties them together.
//
// This file centralizes service-level error values so that callers can check
// them with errors.Is. Translation into user-facing messages or HTTP status
// codes is performed at the handler layer.
package services

import "errors"

var (
	// ErrSessionIDRequired is returned when a turn or lookup has no session id.
	ErrSessionIDRequired = errors.New("session id is required")

	// ErrSessionNotFound is returned by SessionContext when no session exists
	// for the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAIUnavailable is returned when the tracker vetoes an AI attempt or
	// no AI backend is configured.
	ErrAIUnavailable = errors.New("ai backend unavailable")

	// ErrInvalidAIResponse is returned when the AI backend answered with an
	// empty or error-looking string.
	ErrInvalidAIResponse = errors.New("invalid ai response")

	// ErrFlowUnavailable is returned by the flow loader when the store failed
	// or served an empty flow. The engine degrades to the default flow.
	ErrFlowUnavailable = errors.New("flow definition unavailable")
)

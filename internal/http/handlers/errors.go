// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and are returned in the `code` field of an
// ErrorResponse (see fail()). Clients branch on the code, not on the message.
// Generic codes mirror HTTP status semantics; domain codes name the operation
// that failed.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "not_found",
//	  "message": "session not found"
//	}
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeListFailed       = "list_failed"
	ErrCodeLookupFailed     = "lookup_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

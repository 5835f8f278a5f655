// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable: clients branch on them rather
// than on messages. Generic codes mirror HTTP status semantics; the workflow
// codes report why an intent was refused.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "busy",
//	  "message": "caption: a request of this kind is already pending"
//	}
package handlers

const (
	ErrCodeBadRequest           = "bad_request"
	ErrCodeNotFound             = "not_found"
	ErrCodeRateLimited          = "too_many_requests"
	ErrCodeInternal             = "internal_error"
	ErrCodeMethodNotAllowed     = "method_not_allowed"
	ErrCodePayloadTooLarge      = "payload_too_large"
	ErrCodeUnsupportedMediaType = "unsupported_media_type"

	// Workflow:
	ErrCodePrecondition = "precondition_failed"
	ErrCodeBusy         = "busy"
	ErrCodeNoImage      = "no_image"
	ErrCodeJournalOff   = "journal_disabled"
)

package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound = "not_found"
	ErrCodeConflict = "conflict"

	// Question pipeline errors
	ErrCodeUnknownTaxonomy  = "unknown_taxonomy_node"
	ErrCodeNoValidQuestions = "no_valid_questions"
	ErrCodeGenerationFailed = "generation_failed"
	ErrCodeEnrichmentFailed = "enrichment_failed"
	ErrCodeDiagramFailed    = "diagram_generation_failed"

	// Session errors
	ErrCodeSessionNotFound = "session_not_found"
	ErrCodeSessionFinished = "session_finished"
	ErrCodeInvalidOption   = "invalid_option"
	ErrCodeNotAnswerable   = "not_answerable"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)

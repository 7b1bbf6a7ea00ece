package errors

// ErrorResponse is the serialisable form of an error reported by the worker
// or returned to callers that need a transport friendly shape.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code          string   `json:"code"`
	Display       string   `json:"message"`
	InternalError string   `json:"internal_error,omitempty"`
	Hints         []string `json:"hints,omitempty"`
}

// NewErrorResponse converts any error into an ErrorResponse
func NewErrorResponse(err error) ErrorResponse {
	hints := FlattenHints(err)
	display := err.Error()
	if len(hints) > 0 {
		display = hints[0]
	}
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:          Code(err),
			Display:       display,
			InternalError: err.Error(),
			Hints:         hints,
		},
	}
}

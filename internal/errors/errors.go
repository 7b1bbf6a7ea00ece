package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error kinds used across the billing core. Every error returned by
// a package in this module is marked with exactly one of these sentinels.
var (
	ErrNotFound         = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation       = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation = new(ErrCodeInvalidOperation, "invalid operation")
	ErrHTTPClient       = new(ErrCodeHTTPClient, "http client error")
	ErrDatabase         = new(ErrCodeDatabase, "database error")
	ErrSystem           = new(ErrCodeSystemError, "system error")

	// billing specific kinds
	ErrInvalidSnapDay         = new(ErrCodeInvalidSnapDay, "invalid snap day")
	ErrPricingModeUnsupported = new(ErrCodePricingModeUnsupported, "pricing mode not supported")
	ErrMissingCustomAmount    = new(ErrCodeMissingCustomAmount, "custom pricing requires an amount")
	ErrTaxCalculation         = new(ErrCodeTaxCalculation, "tax calculation failed")
	ErrInvalidPlanID          = new(ErrCodeInvalidPlanID, "invalid plan id")
	ErrInvalidItemID          = new(ErrCodeInvalidItemID, "invalid item id")
)

const (
	ErrCodeHTTPClient       = "http_client_error"
	ErrCodeSystemError      = "system_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeAlreadyExists    = "already_exists"
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidOperation = "invalid_operation"
	ErrCodeDatabase         = "database_error"

	ErrCodeInvalidSnapDay         = "invalid_snap_day"
	ErrCodePricingModeUnsupported = "pricing_mode_unsupported"
	ErrCodeMissingCustomAmount    = "missing_custom_amount"
	ErrCodeTaxCalculation         = "tax_calculation_failed"
	ErrCodeInvalidPlanID          = "invalid_plan_id"
	ErrCodeInvalidItemID          = "invalid_item_id"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is re-exported so callers don't need to import cockroachdb/errors
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsDatabase checks if an error is a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsHTTPClient checks if an error is an http client error
func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}

func IsInvalidSnapDay(err error) bool {
	return errors.Is(err, ErrInvalidSnapDay)
}

func IsPricingModeUnsupported(err error) bool {
	return errors.Is(err, ErrPricingModeUnsupported)
}

func IsMissingCustomAmount(err error) bool {
	return errors.Is(err, ErrMissingCustomAmount)
}

func IsTaxCalculation(err error) bool {
	return errors.Is(err, ErrTaxCalculation)
}

func IsInvalidPlanID(err error) bool {
	return errors.Is(err, ErrInvalidPlanID)
}

func IsInvalidItemID(err error) bool {
	return errors.Is(err, ErrInvalidItemID)
}

// Code returns the code of the first sentinel the error is marked with,
// or ErrCodeSystemError when the error carries no known kind.
func Code(err error) string {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind.Code
		}
	}
	return ErrCodeSystemError
}

var kinds = []*InternalError{
	ErrInvalidSnapDay,
	ErrPricingModeUnsupported,
	ErrMissingCustomAmount,
	ErrTaxCalculation,
	ErrInvalidPlanID,
	ErrInvalidItemID,
	ErrNotFound,
	ErrAlreadyExists,
	ErrValidation,
	ErrInvalidOperation,
	ErrHTTPClient,
	ErrDatabase,
	ErrSystem,
}

var statusCodeMap = map[string]int{
	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeAlreadyExists:          http.StatusConflict,
	ErrCodeValidation:             http.StatusBadRequest,
	ErrCodeInvalidOperation:       http.StatusBadRequest,
	ErrCodeInvalidSnapDay:         http.StatusBadRequest,
	ErrCodePricingModeUnsupported: http.StatusBadRequest,
	ErrCodeMissingCustomAmount:    http.StatusBadRequest,
	ErrCodeInvalidPlanID:          http.StatusBadRequest,
	ErrCodeInvalidItemID:          http.StatusBadRequest,
	ErrCodeHTTPClient:             http.StatusBadGateway,
	ErrCodeTaxCalculation:         http.StatusBadGateway,
}

// HTTPStatusFromErr maps the error kind to a response status, 500 when unknown
func HTTPStatusFromErr(err error) int {
	if status, ok := statusCodeMap[Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Package errors provides standardized error handling for the recommendation
// pipeline and its BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Startup / configuration
	ErrCodeMissingCredential    ErrorCode = "MISSING_CREDENTIAL"
	ErrCodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"

	// Input
	ErrCodeInvalidQuery ErrorCode = "INVALID_QUERY"

	// Tools
	ErrCodeToolNotFound         ErrorCode = "TOOL_NOT_FOUND"
	ErrCodeToolArgumentsInvalid ErrorCode = "TOOL_ARGUMENTS_INVALID"
	ErrCodeToolInvocationFailed ErrorCode = "TOOL_INVOCATION_FAILED"
	ErrCodeToolStartupFailed    ErrorCode = "TOOL_STARTUP_FAILED"

	// Model
	ErrCodeModelInvocationFailed  ErrorCode = "MODEL_INVOCATION_FAILED"
	ErrCodeModelTimeout           ErrorCode = "MODEL_TIMEOUT"
	ErrCodeModelResponseMalformed ErrorCode = "MODEL_RESPONSE_MALFORMED"

	// Stages
	ErrCodeStageStepLimitExceeded  ErrorCode = "STAGE_STEP_LIMIT_EXCEEDED"
	ErrCodeEmptyContext            ErrorCode = "EMPTY_CONTEXT"
	ErrCodeTemplateVariableMissing ErrorCode = "TEMPLATE_VARIABLE_MISSING"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
}

// NewMissingCredentialError reports a required secret absent from the environment.
func NewMissingCredentialError(envVar string) *StandardError {
	return newError(ErrCodeMissingCredential, fmt.Sprintf("%s missing", envVar), "", nil).
		WithMetadata("env", envVar)
}

func NewInvalidConfigurationError(details string) *StandardError {
	return newError(ErrCodeInvalidConfiguration, "Invalid configuration", details, nil)
}

func NewInvalidQueryError(details string) *StandardError {
	return newError(ErrCodeInvalidQuery, "Query rejected", details, nil)
}

func NewToolNotFoundError(name string) *StandardError {
	return newError(ErrCodeToolNotFound, "Tool not registered", fmt.Sprintf("tool: %s", name), nil).
		WithMetadata("tool", name)
}

func NewToolArgumentsInvalidError(name, details string) *StandardError {
	return newError(ErrCodeToolArgumentsInvalid, "Tool arguments failed validation", details, nil).
		WithMetadata("tool", name)
}

// NewToolInvocationFailedError wraps a transport failure or a tool-reported error.
func NewToolInvocationFailedError(name string, err error) *StandardError {
	return newError(ErrCodeToolInvocationFailed, fmt.Sprintf("Tool '%s' failed", name), err.Error(), err).
		WithMetadata("tool", name)
}

func NewToolStartupFailedError(name string, err error) *StandardError {
	return newError(ErrCodeToolStartupFailed, fmt.Sprintf("Tool server '%s' failed to start", name), err.Error(), err).
		WithMetadata("tool", name)
}

func NewModelInvocationFailedError(err error) *StandardError {
	return newError(ErrCodeModelInvocationFailed, "Model call failed", err.Error(), err)
}

func NewModelTimeoutError(err error) *StandardError {
	details := "model call exceeded its deadline"
	if err != nil {
		details = err.Error()
	}
	return newError(ErrCodeModelTimeout, "Model call timeout", details, err)
}

func NewModelResponseMalformedError(details string) *StandardError {
	return newError(ErrCodeModelResponseMalformed, "Model response malformed", details, nil)
}

func NewStageStepLimitExceededError(stage string, maxSteps int) *StandardError {
	return newError(ErrCodeStageStepLimitExceeded, "Stage exceeded its step limit",
		fmt.Sprintf("stage: %s, maxSteps: %d", stage, maxSteps), nil).
		WithMetadata("stage", stage)
}

func NewEmptyContextError(key string) *StandardError {
	return newError(ErrCodeEmptyContext, "Data-gathering stage produced no context",
		fmt.Sprintf("outputKey: %s", key), nil)
}

func NewTemplateVariableMissingError(key string) *StandardError {
	return newError(ErrCodeTemplateVariableMissing, "Instruction references an unknown variable",
		fmt.Sprintf("key: %s", key), nil).
		WithMetadata("key", key)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeMissingCredential:       "MISSING_CREDENTIAL",
	ErrCodeInvalidConfiguration:    "INVALID_CONFIGURATION",
	ErrCodeInvalidQuery:            "INVALID_QUERY",
	ErrCodeToolNotFound:            "TOOL_FAILED",
	ErrCodeToolArgumentsInvalid:    "TOOL_FAILED",
	ErrCodeToolInvocationFailed:    "TOOL_FAILED",
	ErrCodeToolStartupFailed:       "TOOL_FAILED",
	ErrCodeModelInvocationFailed:   "MODEL_FAILED",
	ErrCodeModelTimeout:            "MODEL_FAILED",
	ErrCodeModelResponseMalformed:  "MODEL_FAILED",
	ErrCodeStageStepLimitExceeded:  "STAGE_FAILED",
	ErrCodeEmptyContext:            "STAGE_FAILED",
	ErrCodeTemplateVariableMissing: "STAGE_FAILED",
}

// GetRetryCount returns the number of engine retries for a code. The pipeline
// never retries, so every code maps to zero.
func GetRetryCount(code ErrorCode) int {
	return 0
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError finds the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first StandardError in err's chain, or
// INTERNAL_ERROR when there is none.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "TOOL"):
		return "TOOL"
	case strings.HasPrefix(codeStr, "MODEL"):
		return "MODEL"
	case strings.Contains(codeStr, "CREDENTIAL") || strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	case strings.HasPrefix(codeStr, "STAGE") || strings.Contains(codeStr, "CONTEXT") || strings.Contains(codeStr, "TEMPLATE"):
		return "STAGE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

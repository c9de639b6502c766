// Package errors provides the structured error taxonomy shared by the
// builder engine, the HTTP layer and the CLI.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeInit       ErrorType = "init"
	ErrorTypeLookup     ErrorType = "lookup"
	ErrorTypeStructural ErrorType = "structural"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeInput      ErrorType = "input"
	ErrorTypeExport     ErrorType = "export"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeRootNotFound      = "ERR_ROOT_NOT_FOUND"
	ErrCodeNodeNotFound      = "ERR_NODE_NOT_FOUND"
	ErrCodeParentNotFound    = "ERR_PARENT_NOT_FOUND"
	ErrCodeComponentNotFound = "ERR_COMPONENT_NOT_FOUND"
	ErrCodeCycle             = "ERR_CYCLE"
	ErrCodeDropNotAllowed    = "ERR_DROP_NOT_ALLOWED"
	ErrCodeDuplicateExposed  = "ERR_DUPLICATE_EXPOSED"
	ErrCodeMalformedInput    = "ERR_MALFORMED_INPUT"
	ErrCodeExportFailed      = "ERR_EXPORT_FAILED"
	ErrCodeInvalidTarget     = "ERR_INVALID_EXPORT_TARGET"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound      = "ERR_FILE_NOT_FOUND"
	ErrCodeMalformedDocument = "ERR_MALFORMED_DOCUMENT"
	ErrCodeInternalError     = "ERR_INTERNAL"
)

// BuilderError is a structured error type with context.
type BuilderError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	NodeID      string
	Component   string
	Recoverable bool
}

// Error implements the error interface.
func (e *BuilderError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.NodeID != "" {
		parts = append(parts, "node:"+e.NodeID)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BuilderError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *BuilderError) Is(target error) bool {
	var t *BuilderError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *BuilderError) WithContext(key string, value interface{}) *BuilderError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithNode records the tree node the error refers to.
func (e *BuilderError) WithNode(nodeID string) *BuilderError {
	e.NodeID = nodeID

	return e
}

// WithComponent adds component context.
func (e *BuilderError) WithComponent(component string) *BuilderError {
	e.Component = component

	return e
}

// Error creation functions

// NewInitError creates a fatal initialization error.
func NewInitError(code, message string) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeInit,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewLookupError creates an error for an id or path that did not resolve.
func NewLookupError(code, message string) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeLookup,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewStructuralError creates an error for a rejected tree shape change.
func NewStructuralError(code, message string) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeStructural,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewInputError creates an error for malformed user input.
func NewInputError(code, message string, cause error) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeInput,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewExportError creates an export error.
func NewExportError(code, message string, cause error) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeExport,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *BuilderError {
	return &BuilderError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var be *BuilderError
	if errors.As(err, &be) {
		return be.Recoverable
	}

	return false
}

// TypeOf returns the error type, or ErrorTypeInternal for foreign errors.
func TypeOf(err error) ErrorType {
	var be *BuilderError
	if errors.As(err, &be) {
		return be.Type
	}

	return ErrorTypeInternal
}

// AsBuilderError returns the first BuilderError in err's chain.
func AsBuilderError(err error) (*BuilderError, bool) {
	var be *BuilderError
	if errors.As(err, &be) {
		return be, true
	}

	return nil, false
}

// IsLookup checks if an error reports an unresolved id.
func IsLookup(err error) bool {
	return TypeOf(err) == ErrorTypeLookup
}

// Helper functions for common errors

// ErrNodeNotFound creates a node lookup error.
func ErrNodeNotFound(nodeID string) *BuilderError {
	return NewLookupError(ErrCodeNodeNotFound, "node not found").WithNode(nodeID)
}

// ErrParentNotFound creates a parent lookup error.
func ErrParentNotFound(parentID string) *BuilderError {
	return NewLookupError(ErrCodeParentNotFound, "parent not found").WithNode(parentID)
}

// ErrComponentNotFound creates a registry lookup error.
func ErrComponentNotFound(path string) *BuilderError {
	return NewLookupError(ErrCodeComponentNotFound, "component not found").WithComponent(path)
}

// ErrRootNotFound creates the fatal error raised when the registry lacks
// the root component.
func ErrRootNotFound(path string, available []string) *BuilderError {
	return NewInitError(
		ErrCodeRootNotFound,
		"root component not found: "+path,
	).WithContext("available", available)
}

// ErrCycle creates the error for a move into the node's own subtree.
func ErrCycle(nodeID, targetID string) *BuilderError {
	return NewStructuralError(
		ErrCodeCycle,
		"cannot move a node into its own subtree",
	).WithNode(nodeID).WithContext("target", targetID)
}

// ErrMalformedInput wraps a parse failure of a freeform field edit.
func ErrMalformedInput(nodeID, prop string, cause error) *BuilderError {
	return NewInputError(
		ErrCodeMalformedInput,
		"malformed value for "+prop,
		cause,
	).WithNode(nodeID).WithContext("prop", prop)
}

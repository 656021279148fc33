// Package pipeline defines the data transfer objects shared across the
// engine's stages. This file defines UserError, the structured error type
// for the user-facing taxonomy in spec section 7, and the exit-code mapping
// commands use to communicate failures back to main.go.
package pipeline

import "fmt"

// UserErrorKind enumerates the user-facing error taxonomy. Every UserError
// the engine returns carries one of these; anything else that escapes the
// engine is a bug and propagates as an ordinary Go panic or error, never a
// UserErrorKind.
type UserErrorKind string

const (
	KindSectionNotFound              UserErrorKind = "SectionNotFound"
	KindExtendsCycle                 UserErrorKind = "ExtendsCycle"
	KindMetaSectionRenderError       UserErrorKind = "MetaSectionRenderError"
	KindMultipleIntegrationModeSets  UserErrorKind = "MultipleIntegrationModeSets"
	KindNoIntegrationModeSet         UserErrorKind = "NoIntegrationModeSet"
	KindProviderNotSupported         UserErrorKind = "ProviderNotSupported"
	KindInvalidModeReference         UserErrorKind = "InvalidModeReference"
	KindUnknownModeSet               UserErrorKind = "UnknownModeSet"
	KindTemplateCycle                UserErrorKind = "TemplateCycle"
	KindTemplateParseError           UserErrorKind = "TemplateParseError"
	KindTemplateProcessingError      UserErrorKind = "TemplateProcessingError"
	KindPathEscapesScope             UserErrorKind = "PathEscapesScope"
	KindScopeNotFound                UserErrorKind = "ScopeNotFound"
	KindAddressingError              UserErrorKind = "AddressingError"
	KindConditionParseError          UserErrorKind = "ConditionParseError"
	KindMigrationFatal               UserErrorKind = "MigrationFatal"
	KindMigrationTimeout             UserErrorKind = "MigrationTimeout"
	KindPreflightRequired            UserErrorKind = "PreflightRequired"
)

// UserError is a structured error with a taxonomy Kind, a human-readable
// Message, and an exit code. The CLI prints "Error: <message>" and exits
// with Code; it never prints a stack trace for a UserError. It implements
// the error interface and supports unwrapping via errors.Is/errors.As.
type UserError struct {
	// Kind classifies the error per spec section 7's taxonomy.
	Kind UserErrorKind

	// Message is a human-readable description of what went wrong.
	Message string

	// Err is the underlying error that caused this UserError, if any.
	Err error
}

// Error returns the formatted error message. If an underlying error is
// present it is appended after a colon.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error, enabling errors.Is and errors.As to
// traverse the error chain.
func (e *UserError) Unwrap() error {
	return e.Err
}

// Code returns the process exit code associated with this error. Every
// UserError currently maps to ExitError (1); the Kind field is what lets a
// caller distinguish error classes programmatically.
func (e *UserError) Code() int {
	return int(ExitError)
}

// NewUserError constructs a UserError of the given kind.
func NewUserError(kind UserErrorKind, msg string, err error) *UserError {
	return &UserError{Kind: kind, Message: msg, Err: err}
}

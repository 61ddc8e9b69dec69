package schema

import (
	"errors"
	"fmt"
)

// Errors returned by schema operations.
var (
	// ErrUnknownOption indicates the option name is not registered.
	ErrUnknownOption = errors.New("no option with this name")

	// ErrAlreadyRegistered indicates a duplicate registration attempt.
	ErrAlreadyRegistered = errors.New("option already registered")
)

// Code categorizes validation failures.
type Code uint8

const (
	// CodeUnknownOption indicates an unrecognized option name.
	CodeUnknownOption Code = iota
	// CodeTypeMismatch indicates the value type is wrong.
	CodeTypeMismatch
	// CodeOutOfRange indicates a numeric value is out of bounds.
	CodeOutOfRange
	// CodeInvalidEnum indicates the value is not in the allowed set.
	CodeInvalidEnum
)

// String returns a short name for the code.
func (c Code) String() string {
	switch c {
	case CodeUnknownOption:
		return "unknown_option"
	case CodeTypeMismatch:
		return "type_mismatch"
	case CodeOutOfRange:
		return "out_of_range"
	case CodeInvalidEnum:
		return "invalid_enum"
	default:
		return "unknown"
	}
}

// ValidationError describes why a value was rejected for an option.
type ValidationError struct {
	// Name is the option name.
	Name string
	// Value is the rejected value.
	Value any
	// Code categorizes the failure.
	Code Code
	// Message describes the failure.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Name, e.Message)
}

// Is matches unknown-option validation errors against ErrUnknownOption.
func (e *ValidationError) Is(target error) bool {
	return target == ErrUnknownOption && e.Code == CodeUnknownOption
}

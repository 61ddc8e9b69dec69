package config

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by configuration operations.
var (
	// ErrUnknownOption indicates an option name is not in the schema
	// registry.
	ErrUnknownOption = errors.New("no option with this name")

	// ErrNotInitialized indicates an operation before LoadAll.
	ErrNotInitialized = errors.New("configuration not initialized")
)

// ErrorDesc describes one error that occurred while handling a
// configuration source: the action being performed, the underlying
// cause and an optional formatted trace for display.
type ErrorDesc struct {
	// Action is the contextual description, e.g. "While reading" or
	// "While setting 'tabs.show'".
	Action string

	// Err is the underlying cause.
	Err error

	// Traceback is an optional formatted trace for user display.
	Traceback string
}

// String formats the descriptor as "<action>: <cause>".
func (d ErrorDesc) String() string {
	return d.Action + ": " + d.Err.Error()
}

// WithTraceback returns a copy of the descriptor carrying a trace.
func (d ErrorDesc) WithTraceback(tb string) ErrorDesc {
	d.Traceback = tb
	return d
}

// FileError aggregates the errors from one configuration file. It is
// the unit of failure reporting for both the override document and the
// config script: structural failures abort the stage and surface as a
// single FileError for the host to display.
type FileError struct {
	// Filename is the base name of the offending file.
	Filename string

	// Descs is the ordered list of error descriptors.
	Descs []ErrorDesc
}

// NewFileError creates a FileError for one file with one descriptor.
func NewFileError(filename string, desc ErrorDesc) *FileError {
	return &FileError{Filename: filename, Descs: []ErrorDesc{desc}}
}

// Error implements the error interface.
func (e *FileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "errors occurred while reading %s", e.Filename)
	for _, d := range e.Descs {
		b.WriteString("\n  ")
		b.WriteString(d.String())
	}
	return b.String()
}

// Unwrap exposes the first underlying cause for errors.Is/As matching.
func (e *FileError) Unwrap() error {
	if len(e.Descs) == 0 {
		return nil
	}
	return e.Descs[0].Err
}

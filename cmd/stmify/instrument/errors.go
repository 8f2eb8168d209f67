// Package instrument - positioned errors for the rewriting engine.
//
// Errors carry file:line:column so they read like compiler diagnostics, and
// optionally a suggestion when there is an actionable fix:
//
//	main.go:42:15: cannot rewrite multi-assignment involving shared word "counter"
//
//	Suggestion: split the assignment so each shared word is assigned on its own line
package instrument

import (
	"fmt"
	"go/token"
)

// Error is an instrumentation failure tied to a source position.
type Error struct {
	File       string // source file path
	Line       int    // 1-indexed line
	Column     int    // 1-indexed column
	Message    string // what went wrong
	Suggestion string // optional actionable fix, empty if none
}

// Error implements the error interface in file:line:column form.
func (e *Error) Error() string {
	result := fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	if e.Suggestion != "" {
		result += fmt.Sprintf("\n\nSuggestion: %s", e.Suggestion)
	}
	return result
}

// errAt creates a positioned error from an AST node position.
func errAt(fset *token.FileSet, pos token.Pos, msg string) *Error {
	position := fset.Position(pos)
	return &Error{
		File:    position.Filename,
		Line:    position.Line,
		Column:  position.Column,
		Message: msg,
	}
}

// errAtSuggest creates a positioned error with a suggested fix.
func errAtSuggest(fset *token.FileSet, pos token.Pos, msg, suggestion string) *Error {
	err := errAt(fset, pos, msg)
	err.Suggestion = suggestion
	return err
}

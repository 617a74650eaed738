// Package dberr provides the categorized error type shared by the engine.
// Callers branch on the category (and code) rather than on message text.
package dberr

import (
	"errors"
	"fmt"
)

// Category classifies an error by what kind of failure it is.
type Category string

const (
	CategoryConstraint Category = "CONSTRAINT"
	CategoryInvariant  Category = "INVARIANT"
	CategoryCatalog    Category = "CATALOG"
	CategoryStorage    Category = "STORAGE"
)

const (
	// Constraint codes
	CodeDuplicateKey     = "DUPLICATE_KEY"
	CodeDuplicateInBatch = "DUPLICATE_IN_BATCH"
	CodeUpdateCollision  = "UPDATE_COLLISION"

	// Invariant codes
	CodeMalformedRow = "MALFORMED_ROW"
	CodeMissingIndex = "MISSING_INDEX"
	CodeIndexCorrupt = "INDEX_CORRUPT"

	// Catalog codes
	CodeTableExists   = "TABLE_EXISTS"
	CodeTableNotFound = "TABLE_NOT_FOUND"
	CodeInvalidSchema = "INVALID_SCHEMA"

	// Storage codes
	CodeRowNotFound = "ROW_NOT_FOUND"
	CodeMetaWrite   = "META_WRITE"
)

// Error is the structured error used across the engine.
type Error struct {
	Category Category
	Code     string
	Message  string
	Details  map[string]any
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on category and code. A target with an empty code matches any
// error of the same category.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if e.Category != t.Category {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

func New(category Category, code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

func Wrap(category Category, code, message string, cause error) *Error {
	return &Error{Category: category, Code: code, Message: message, Cause: cause}
}

// WithDetails returns a copy of the error with details attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// Category sentinels for errors.Is checks.
var (
	ErrConstraint = &Error{Category: CategoryConstraint}
	ErrInvariant  = &Error{Category: CategoryInvariant}
	ErrCatalog    = &Error{Category: CategoryCatalog}
	ErrStorage    = &Error{Category: CategoryStorage}
)

// IsConstraint reports whether err (or its chain) is a constraint violation.
func IsConstraint(err error) bool { return errors.Is(err, ErrConstraint) }

// GetCategory returns the category of the first *Error in err's chain,
// or "" if there is none.
func GetCategory(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// GetCode returns the code of the first *Error in err's chain.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

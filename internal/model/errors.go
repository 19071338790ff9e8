package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by the pipeline and the serving path.
var (
	ErrFileNotFound    = errors.New("file not found")
	ErrEmptyInput      = errors.New("empty input")
	ErrParse           = errors.New("parse error")
	ErrMissingColumns  = errors.New("missing columns")
	ErrUnknownCategory = errors.New("unknown category")
	ErrTraining        = errors.New("training error")
	ErrNotFitted       = errors.New("model not fitted")
	ErrModelNotFound   = errors.New("model not found")
	ErrEvaluation      = errors.New("evaluation error")
	ErrSchemaMismatch  = errors.New("model schema mismatch")
	ErrInvalidInput    = errors.New("invalid input")
)

// MissingColumnsError lists exactly which required columns were absent.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}

// UnknownCategoryError reports a categorical value with no entry in the mapping tables.
type UnknownCategoryError struct {
	Field string
	Value string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Field, e.Value)
}

func (e *UnknownCategoryError) Is(target error) bool {
	return target == ErrUnknownCategory
}

// ErrorKind groups errors by how a caller is expected to react.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindValidation ErrorKind = "validation"
	KindInternal   ErrorKind = "internal"
)

// KindOf classifies err. Anything unrecognised is internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrModelNotFound), errors.Is(err, ErrFileNotFound):
		return KindNotFound
	case errors.Is(err, ErrMissingColumns),
		errors.Is(err, ErrUnknownCategory),
		errors.Is(err, ErrInvalidInput):
		return KindValidation
	default:
		return KindInternal
	}
}

package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrMissingQuestionBank = errors.New("question bank missing")
)

type FieldProblem struct {
	QuestionID string `json:"question_id"`
	Reason     string `json:"reason"`
}

// ValidationError lists every answer that failed its type constraint.
type ValidationError struct {
	Problems []FieldProblem `json:"problems"`
}

func (e *ValidationError) Add(questionID, format string, args ...any) {
	e.Problems = append(e.Problems, FieldProblem{
		QuestionID: questionID,
		Reason:     fmt.Sprintf(format, args...),
	})
}

func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if p.QuestionID == "" {
			parts = append(parts, p.Reason)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", p.QuestionID, p.Reason))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func NewValidationError(questionID, format string, args ...any) *ValidationError {
	e := &ValidationError{}
	e.Add(questionID, format, args...)
	return e
}

// SchemaMismatchError is returned when a stored record lacks a required field.
type SchemaMismatchError struct {
	Record string
	Field  string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: %s record has no %s", e.Record, e.Field)
}

// BatchError names the mark keys that could not be written in a batch save.
type BatchError struct {
	Failed map[string]error
}

func (e *BatchError) Keys() []string {
	keys := make([]string, 0, len(e.Failed))
	for k := range e.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("failed to save %d mark(s): %s", len(e.Failed), strings.Join(e.Keys(), ", "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, k := range e.Keys() {
		errs = append(errs, e.Failed[k])
	}
	return errs
}

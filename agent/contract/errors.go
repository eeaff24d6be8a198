package contract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")

	ErrValidation = errors.New("validation failed")
	ErrAmbiguous  = errors.New("ambiguous match")
	ErrConflict   = errors.New("slot conflict")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal failure")
)

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAmbiguity  ErrorKind = "ambiguity"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindInternal   ErrorKind = "internal"
)

// KindOf classifies err into the conversational error taxonomy. Anything
// unrecognised is internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAmbiguous):
		return KindAmbiguity
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// ValidationError reports missing or malformed fields. Options lists valid
// choices when the caller can pick from a closed set.
type ValidationError struct {
	Missing []string
	Field   string
	Reason  string
	Options []string
}

func (e *ValidationError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf("missing fields: %s", strings.Join(e.Missing, ", "))
	case e.Field != "":
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	default:
		return e.Reason
	}
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type AmbiguityError struct {
	Field   string
	Input   string
	Matches []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("%s %q matches %d options", e.Field, e.Input, len(e.Matches))
}

func (e *AmbiguityError) Unwrap() error { return ErrAmbiguous }

// ConflictError carries the provider's open slots on the requested day.
type ConflictError struct {
	Provider  string
	Date      string
	Time      string
	OpenSlots []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s is already booked on %s at %s", e.Provider, e.Date, e.Time)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

type NotFoundError struct {
	What string
	Key  string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return e.What + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.What, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

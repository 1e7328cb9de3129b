package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for outcomes callers branch on directly.
var (
	ErrNotFound       = errors.New("model: not found")
	ErrAlreadyImported = errors.New("model: already imported")
	ErrCancelled      = errors.New("model: cancelled")
	ErrTimeout        = errors.New("model: timeout")
	ErrUnauthorized   = errors.New("model: unauthorized")
)

// ParseErrorKind distinguishes the stage at which a dialect parser gave up.
type ParseErrorKind string

const (
	ParseHeader    ParseErrorKind = "header"
	ParseMalformed ParseErrorKind = "malformed"
	ParseTruncated ParseErrorKind = "truncated"
)

// ParseError reports a dialect-parser failure. Header and Malformed abort
// the whole file. Truncated records in AtSeq where decoding stopped; the
// error value carries no session. The claudecode and codex parsers return
// the messages decoded up to that point alongside it; the archive,
// geminicli and cursoragent parsers return none.
type ParseError struct {
	Kind     ParseErrorKind
	Path     string
	Reason   string
	AtSeq    int // meaningful only for ParseTruncated
	Wrapped  error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case ParseTruncated:
		return fmt.Sprintf("parse %s: truncated at sequence %d: %s", e.Path, e.AtSeq, e.Reason)
	default:
		return fmt.Sprintf("parse %s: %s: %s", e.Path, e.Kind, e.Reason)
	}
}

func (e *ParseError) Unwrap() error { return e.Wrapped }

// InvariantError reports that a constructed entity would violate one of
// the canonical model's field invariants.
type InvariantError struct {
	Entity string
	Field  string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("model: invalid %s.%s: %s", e.Entity, e.Field, e.Reason)
}

// SchemaMismatchError is returned when the persisted database's schema
// version is newer than this build understands. Fatal at startup.
type SchemaMismatchError struct {
	Version int
	Current int
	Reason  string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema version %d is newer than supported version %d: %s", e.Version, e.Current, e.Reason)
}

// GeneratorErrorKind enumerates the retryable/non-retryable outcomes a
// TextGenerator call may fail with.
type GeneratorErrorKind string

const (
	GenRateLimited     GeneratorErrorKind = "rate_limited"
	GenUnauthorized    GeneratorErrorKind = "unauthorized"
	GenTimeout         GeneratorErrorKind = "timeout"
	GenCancelled       GeneratorErrorKind = "cancelled"
	GenTransport       GeneratorErrorKind = "transport"
	GenContentFiltered GeneratorErrorKind = "content_filtered"
	GenMalformed       GeneratorErrorKind = "malformed"
)

// GeneratorError wraps a TextGenerator failure with its retry-after hint
// when the provider supplied one.
type GeneratorError struct {
	Kind       GeneratorErrorKind
	RetryAfter int // seconds; 0 if not specified
	Reason     string
	Wrapped    error
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("generator: %s: %s", e.Kind, e.Reason)
}

func (e *GeneratorError) Unwrap() error { return e.Wrapped }

// Retryable reports whether the sweep/orchestrator should retry this
// failure within its budget.
func (e *GeneratorError) Retryable() bool {
	switch e.Kind {
	case GenRateLimited, GenTransport, GenTimeout:
		return true
	default:
		return false
	}
}

package types

import "fmt"

// ConfigurationError covers failures that no retry can fix: an empty corpus,
// an embedding dimension mismatch, missing fusion weights.
type ConfigurationError struct {
	Op     string
	Reason string
	Cause  error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "configuration error"
	}
	if e.Cause != nil {
		return fmt.Sprintf("configuration error (op=%s): %s: %v", e.Op, e.Reason, e.Cause)
	}
	return fmt.Sprintf("configuration error (op=%s): %s", e.Op, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NoCandidatesError means the filter-relaxation ladder ran to the end and the
// corpus itself held nothing. An over-constrained query never raises this, the
// ladder resolves those silently.
type NoCandidatesError struct {
	CorpusSize int
}

func (e *NoCandidatesError) Error() string {
	if e == nil {
		return "no candidate moves"
	}
	return fmt.Sprintf("no candidate moves in corpus (size=%d)", e.CorpusSize)
}

// IndexRuntimeError is a transient search-engine fault (accelerated backend
// failure, corrupted index). It is recovered once by a CPU rebuild-and-retry;
// a second failure escalates to ConfigurationError.
type IndexRuntimeError struct {
	Backend string
	Op      string
	Cause   error
}

func (e *IndexRuntimeError) Error() string {
	if e == nil {
		return "index runtime error"
	}
	return fmt.Sprintf("index runtime error (backend=%s op=%s): %v", e.Backend, e.Op, e.Cause)
}

func (e *IndexRuntimeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// SchemaValidationError names the blueprint field that failed the structural
// contract. Raised before handoff, never silently repaired.
type SchemaValidationError struct {
	Field  string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	if e == nil {
		return "blueprint schema validation failed"
	}
	return fmt.Sprintf("blueprint schema validation failed: field=%s: %s", e.Field, e.Reason)
}

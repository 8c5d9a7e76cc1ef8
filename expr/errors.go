package expr

import "fmt"

// InputError indicates that a source file could not be read or deserialized,
// or that a requested sample does not exist in the source dataset. It is
// always fatal: no downstream stage runs over a partially loaded dataset.
type InputError struct {
	Path string
	Msg  string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("expr: %s", e.Msg)
	}
	return fmt.Sprintf("expr: %s: %s", e.Path, e.Msg)
}

func (e *InputError) Unwrap() error { return e.Err }

// SchemaMismatchError indicates that two datasets being merged do not share
// an identical gene row-key set.
type SchemaMismatchError struct {
	// Gene is the first gene identifier found in one input but not the other.
	Gene string
	Msg  string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("expr: schema mismatch: %s (gene %q)", e.Msg, e.Gene)
}

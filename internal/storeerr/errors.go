// Package storeerr holds the sentinel error vocabulary shared by the
// content store, relational index, and ingestion layers. Sentinel
// errors rather than ad hoc strings let callers test outcomes with
// errors.Is.
package storeerr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: node/edge/version/lesson/quirk/embedding absent where expected.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists: primary-key conflict on create.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvariantViolation: e.g. update called for an absent node, version out of order.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrValidation: malformed inputs (bad ID format, invalid enum, empty required field).
	ErrValidation = errors.New("validation error")
	// ErrIdentityConflict: deterministic-ID collision across distinct fingerprints.
	ErrIdentityConflict = errors.New("identity conflict")
	// ErrCorrupt: content-store file fails schema validation.
	ErrCorrupt = errors.New("corrupt record")
	// ErrDimensionMismatch: embedding size != configured vector table dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrIO: underlying storage error.
	ErrIO = errors.New("io error")
	// ErrProvider: embedding provider failure.
	ErrProvider = errors.New("provider error")
)

// sentinels lists every error kind above, for classifying wrapped chains.
var sentinels = []error{
	ErrNotFound, ErrAlreadyExists, ErrInvariantViolation, ErrValidation,
	ErrIdentityConflict, ErrCorrupt, ErrDimensionMismatch, ErrIO, ErrProvider,
}

func isSentinel(err error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// Wrap attaches an operation label to err, preserving errors.Is matching
// against the sentinel it wraps. A raw backend error that carries no
// sentinel is classified as ErrIO, with the backend message retained.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if isSentinel(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}

// Wrapf is Wrap with a formatted operation label.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if isSentinel(err) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
	}
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, args...), ErrIO, err)
}

// Is reports whether err is, or wraps, target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

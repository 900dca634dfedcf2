// Package brainyerr defines the sentinel error taxonomy shared across the
// store's components, so callers can use errors.Is/errors.As instead of
// matching strings.
package brainyerr

import (
	"errors"
	"fmt"
)

// Kind identifies which bucket of spec.md §7 an error belongs to.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidArgument    Kind = "invalid_argument"
	KindConflictingCommit  Kind = "conflicting_commit"
	KindThrottled          Kind = "throttled"
	KindTimeout            Kind = "timeout"
	KindIncompatibleFormat Kind = "incompatible_format"
	KindMigrationError     Kind = "migration_error"
	KindIntegrityError     Kind = "integrity_error"
)

// Sentinel errors. Wrap with fmt.Errorf("%s: %w", op, ErrX) at call sites.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrConflictingCommit  = errors.New("conflicting commit")
	ErrThrottled          = errors.New("throttled")
	ErrTimeout            = errors.New("timeout")
	ErrIncompatibleFormat = errors.New("incompatible format")
	ErrMigrationError     = errors.New("migration error")
	ErrIntegrityError     = errors.New("integrity error")
)

var kindBySentinel = map[error]Kind{
	ErrNotFound:           KindNotFound,
	ErrInvalidArgument:    KindInvalidArgument,
	ErrConflictingCommit:  KindConflictingCommit,
	ErrThrottled:          KindThrottled,
	ErrTimeout:            KindTimeout,
	ErrIncompatibleFormat: KindIncompatibleFormat,
	ErrMigrationError:     KindMigrationError,
	ErrIntegrityError:     KindIntegrityError,
}

// KindOf classifies err against the taxonomy. Returns ("", false) for
// errors that don't wrap one of the sentinels (e.g. raw I/O errors destined
// to be fatal per spec.md §7's propagation policy).
func KindOf(err error) (Kind, bool) {
	for sentinel, kind := range kindBySentinel {
		if errors.Is(err, sentinel) {
			return kind, true
		}
	}
	return "", false
}

// Wrap annotates err with an operation name while preserving errors.Is
// against the sentinel.
func Wrap(op string, sentinel error, detail string) error {
	if detail == "" {
		return fmt.Errorf("%s: %w", op, sentinel)
	}
	return fmt.Errorf("%s: %w: %s", op, sentinel, detail)
}

// NotFound builds a NotFound error for the given kind of object and id.
func NotFound(what, id string) error {
	return fmt.Errorf("%s %q: %w", what, id, ErrNotFound)
}

// InvalidArgument builds an InvalidArgument error with a free-form reason.
func InvalidArgument(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrInvalidArgument)
}

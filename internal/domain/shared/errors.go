package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ValidationError reports malformed or out-of-range input rejected before any state change
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Is matches any ValidationError when the target field is empty
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}

// UnbalancedEntryError means computed journal lines do not net to zero
type UnbalancedEntryError struct {
	Debits  int64
	Credits int64
}

func (e UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced journal entry: debits %d != credits %d", e.Debits, e.Credits)
}

func (e UnbalancedEntryError) Is(target error) bool {
	_, ok := target.(UnbalancedEntryError)
	return ok
}

// InvalidAccountError reports a missing account or one of the wrong type for its role
type InvalidAccountError struct {
	AccountID uuid.UUID
	Role      string
	Reason    string
}

func (e InvalidAccountError) Error() string {
	if e.AccountID == uuid.Nil {
		return fmt.Sprintf("invalid %s account: %s", e.Role, e.Reason)
	}
	return fmt.Sprintf("invalid %s account %s: %s", e.Role, e.AccountID, e.Reason)
}

// Is matches any InvalidAccountError when the target account id is nil
func (e InvalidAccountError) Is(target error) bool {
	t, ok := target.(InvalidAccountError)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || t.AccountID == e.AccountID
}

// ConflictError reports a structural constraint violation
type ConflictError struct {
	Resource string
	Reason   string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Reason)
}

func (e ConflictError) Is(target error) bool {
	t, ok := target.(ConflictError)
	if !ok {
		return false
	}
	return t.Resource == "" || t.Resource == e.Resource
}

// DuplicatePostingError is returned when a source event was already posted.
// EntryID points at the entry created by the first submission.
type DuplicatePostingError struct {
	SourceType SourceType
	SourceID   string
	EntryID    uuid.UUID
}

func (e DuplicatePostingError) Error() string {
	return fmt.Sprintf("source %s/%s already posted as entry %s", e.SourceType, e.SourceID, e.EntryID)
}

func (e DuplicatePostingError) Is(target error) bool {
	t, ok := target.(DuplicatePostingError)
	if !ok {
		return false
	}
	if t.SourceID == "" {
		return true
	}
	return t.SourceType == e.SourceType && t.SourceID == e.SourceID
}

// IntegrityError signals that a report-time self-check found corrupted history
type IntegrityError struct {
	Check   string
	Details string
}

func (e IntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity check %q failed: %s", e.Check, e.Details)
}

func (e IntegrityError) Is(target error) bool {
	t, ok := target.(IntegrityError)
	if !ok {
		return false
	}
	return t.Check == "" || t.Check == e.Check
}

// NotFoundError indicates a missing entity
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Is matches on resource and id, empty target fields act as wildcards
func (e NotFoundError) Is(target error) bool {
	t, ok := target.(NotFoundError)
	if !ok {
		return false
	}
	if t.Resource != "" && t.Resource != e.Resource {
		return false
	}
	return t.ID == "" || t.ID == e.ID
}

// ClassifyFailure maps a posting error to a failure reason. permanent is false for
// infrastructure errors that may succeed when retried.
func ClassifyFailure(err error) (reason FailureReason, permanent bool) {
	switch {
	case errors.Is(err, ValidationError{}):
		return FailureReasonValidation, true
	case errors.Is(err, InvalidAccountError{}):
		return FailureReasonInvalidAccount, true
	case errors.Is(err, NotFoundError{}):
		return FailureReasonNotFound, true
	case errors.Is(err, ConflictError{}):
		return FailureReasonConflict, true
	case errors.Is(err, UnbalancedEntryError{}):
		return FailureReasonUnbalanced, true
	default:
		return FailureReasonUnknownError, false
	}
}

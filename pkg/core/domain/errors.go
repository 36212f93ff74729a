package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the link store failure kinds
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrLinkNotFound     = errors.New("link not found")
	ErrNotOwner         = errors.New("not the owner of the link")
	ErrAlreadyExists    = errors.New("link already exists")
	ErrPropertyNotFound = errors.New("link vanished before property update")
	ErrInvalidProperty  = errors.New("property cannot be updated")
	ErrPrefixTooShort   = errors.New("completion prefix too short")
	ErrIntegrity        = errors.New("data integrity fault")
	ErrOwnerVanished    = errors.New("owner vanished")
	ErrPartialFailure   = errors.New("partial failure")
	ErrStore            = errors.New("store failure")
)

// AlreadyExistsError reports an attempt to create a path that is taken.
type AlreadyExistsError struct {
	Path  string
	Owner string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists, owned by %s", e.Path, e.Owner)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// StoreError wraps a failed primitive store call with the step that issued it.
type StoreError struct {
	Step string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// IncompleteLinkError reports a link whose owner field was claimed but whose
// remaining fields could not be written. The record is left as an owner-only
// stub and is not repaired.
type IncompleteLinkError struct {
	Path    string
	Missing []string
	Err     error
}

func (e *IncompleteLinkError) Error() string {
	return fmt.Sprintf("%s created with missing fields %s: %v",
		e.Path, strings.Join(e.Missing, ", "), e.Err)
}

func (e *IncompleteLinkError) Unwrap() error {
	return e.Err
}

// PartialFailureError reports secondary updates that failed after the
// primary record change was already committed.
type PartialFailureError struct {
	Op   string
	Path string
	Err  error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s %s committed, secondary updates failed: %v", e.Op, e.Path, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

func (e *PartialFailureError) Is(target error) bool {
	return target == ErrPartialFailure
}

// IntegrityError reports a secondary structure that did not contain an entry
// it was expected to contain, discovered after a primary mutation committed.
type IntegrityError struct {
	Op    string
	Key   string
	Value string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %q not present in %q", e.Op, e.Value, e.Key)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// OwnerVanishedError reports a link whose owner's list disappeared before
// the link could be pushed onto it, leaving the link undiscoverable by its
// owner.
type OwnerVanishedError struct {
	Path  string
	Owner string
}

func (e *OwnerVanishedError) Error() string {
	return fmt.Sprintf("owner %s vanished before %s could be added to its list", e.Owner, e.Path)
}

func (e *OwnerVanishedError) Is(target error) bool {
	return target == ErrOwnerVanished
}

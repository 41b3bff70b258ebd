package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInsufficientFunds indicates that a debit would push an account below its
// allowed floor (zero for debit accounts, the negated credit limit otherwise).
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrBusy indicates that an account lock could not be acquired within the
// configured wait. The operation made no state change and may be retried.
var ErrBusy = errors.New("account busy, retry later")

// ErrScoringUnavailable indicates that the churn scoring artifact is missing or
// failing. Callers receive a degraded default rather than this error directly.
var ErrScoringUnavailable = errors.New("scoring unavailable")

// ErrConflict indicates the resource is in a state that does not permit the
// requested operation (e.g. a closed account).
var ErrConflict = errors.New("resource state conflict")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")

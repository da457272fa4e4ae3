package shield

import "errors"

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("shield: not found")
	ErrInvalidInput = errors.New("shield: invalid input")

	// Tenant/session errors
	ErrAuthentication = errors.New("shield: authentication failed")
	ErrTenantUnknown  = errors.New("shield: tenant unknown (no session and no credential)")
	ErrProvisioning   = errors.New("shield: tenant provisioning failed")

	// Ledger errors
	ErrDuplicateCommitment = errors.New("shield: commitment already exists")
	ErrAlreadySpent        = errors.New("shield: commitment already spent or unknown")

	// Query errors
	ErrInvalidPagination = errors.New("shield: invalid pagination parameters")

	// Store errors
	ErrStorageUnavailable = errors.New("shield: storage unavailable")
	ErrStoreClosed        = errors.New("shield: store is closed")
)

// IsNotFound returns true if the error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error is a write conflict: a duplicate
// commitment hash or a disposal transition that lost the race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateCommitment) ||
		errors.Is(err, ErrAlreadySpent)
}

// IsRetryable returns true if the error is temporary and the operation may
// be retried by the caller. Disposal transitions are only safe to retry
// with the same consumed set and dedup key.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrStoreClosed)
}

// IsAuthError returns true if the error aborts the session flow entirely.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthentication) ||
		errors.Is(err, ErrTenantUnknown)
}

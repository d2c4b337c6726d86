package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidCandidate marks malformed or empty candidates. Such items are
// excluded from the batch and reported, never retried.
var ErrInvalidCandidate = errors.New("invalid candidate")

// ErrVaultUnavailable aborts the whole run: scoring without a duplicate
// check risks silently re-proposing items already in the vault.
var ErrVaultUnavailable = errors.New("vault unavailable")

// InvalidCandidateError attaches the offending item identity so a reviewer
// can locate and reprocess it.
func InvalidCandidateError(item CandidateItem, reason string) error {
	return fmt.Errorf("%w: %s (%s)", ErrInvalidCandidate, item.Identity(), reason)
}

// VaultUnavailableError wraps the collaborator failure that prevented the
// snapshot load.
func VaultUnavailableError(cause error) error {
	return fmt.Errorf("%w: %v", ErrVaultUnavailable, cause)
}

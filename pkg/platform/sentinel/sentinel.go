// Package sentinel holds the store-level facts that services translate into
// domain errors. Stores return them, optionally wrapped; validation failures
// belong in pkg/domain-errors instead.
package sentinel

import "errors"

var (
	// ErrNotFound: no session, enrollment, principal or secret under the key.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a uniqueness rule other than the ledger's was hit, such as a
	// second open session for the same holder and scope.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyUsed: the ledger already holds a record for the session and principal.
	ErrAlreadyUsed = errors.New("already used")
	// ErrInvalidState: the entity is not in a state that allows the write,
	// for example closing a closed session or marking against one.
	ErrInvalidState = errors.New("invalid state")
)

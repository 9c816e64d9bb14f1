package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/gigboard/internal/auth"
	"github.com/mmynk/gigboard/internal/storage"
)

var (
	errNoBillingCustomer = errors.New("no billing customer on file")
	errEscrowNotFound    = errors.New("escrow not found")
	errNotEscrowOwner    = errors.New("not authorized to release this escrow")
	errAlreadyReleased   = errors.New("escrow already released")
	errReleaseInProgress = errors.New("escrow release already in progress")
	errTransferFailed    = errors.New("failed to transfer funds")
	errTransferRejected  = errors.New("transfer rejected; escrow returned to held")
	errHistoryFailed     = errors.New("failed to load billing history")
	errInternal          = errors.New("internal error")
)

// requireUser returns the Unauthenticated error used when no user is on the context.
func requireUser(userID string) error {
	if userID == "" {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return nil
}

// storeError converts a storage error into a Connect error. Unknown errors
// are reported as Internal without leaking details to the caller.
func storeError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrAlreadyExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, storage.ErrConflict):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	default:
		return connect.NewError(connect.CodeInternal, errInternal)
	}
}

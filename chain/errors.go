package chain

import "errors"

var (
	// ErrBadDataSize is returned when a blob is empty or exceeds the
	// per-transaction size limit.
	ErrBadDataSize = errors.New("bad data size")
	// ErrTooManyTransactions is returned when the per-block transaction
	// limit is reached.
	ErrTooManyTransactions = errors.New("too many transactions")
	// ErrInsufficientAuthorization is returned by the pre-dispatch check
	// when no authorization covers a store or renew call.
	ErrInsufficientAuthorization = errors.New("insufficient authorization")
	// ErrRenewedNotFound is returned when a renew call targets an entry
	// that does not exist.
	ErrRenewedNotFound = errors.New("renewed transaction not found")
	// ErrAuthorizationNotFound is returned when a refresh or removal
	// targets a missing authorization.
	ErrAuthorizationNotFound = errors.New("authorization not found")
	// ErrAuthorizationNotExpired is returned when removing an
	// authorization that is still live.
	ErrAuthorizationNotExpired = errors.New("authorization not expired")
	// ErrBadOrigin is returned when a call requires a different origin.
	ErrBadOrigin = errors.New("bad origin")

	// ErrUnexpectedProof is returned when a proof arrives in a block that
	// does not require one.
	ErrUnexpectedProof = errors.New("unexpected proof")
	// ErrMissingProof invalidates a block that required a proof but did
	// not carry one.
	ErrMissingProof = errors.New("missing storage proof")
	// ErrInvalidProof is returned when merkle verification fails.
	ErrInvalidProof = errors.New("invalid storage proof")
	// ErrDoubleCheck is returned when a block carries a second proof.
	ErrDoubleCheck = errors.New("proof already checked")

	// ErrNotFound is returned by stores when a key is absent.
	ErrNotFound = errors.New("not found")
)

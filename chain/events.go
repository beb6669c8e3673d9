package chain

import "github.com/bulletinlabs/bulletind/content"

// An Event records a state transition applied during a block. EndBlock
// returns the block's events in application order.
type Event interface {
	isEvent()
}

type (
	// StoredEvent is emitted for each successful store call.
	StoredEvent struct {
		Index       int
		ContentHash content.ContentHash
		Cid         []byte
	}

	// RenewedEvent is emitted for each successful renew call.
	RenewedEvent struct {
		Index       int
		ContentHash content.ContentHash
	}

	// ProofCheckedEvent is emitted when the block's possession proof
	// verifies.
	ProofCheckedEvent struct{}

	// AccountAuthorizedEvent is emitted when an account budget is granted.
	AccountAuthorizedEvent struct {
		Who          AccountID
		Transactions uint32
		Bytes        uint64
	}

	// PreimageAuthorizedEvent is emitted when a preimage budget is granted.
	PreimageAuthorizedEvent struct {
		ContentHash content.ContentHash
		MaxSize     uint64
	}

	// AccountAuthorizationRefreshedEvent is emitted on refresh.
	AccountAuthorizationRefreshedEvent struct {
		Who AccountID
	}

	// PreimageAuthorizationRefreshedEvent is emitted on refresh.
	PreimageAuthorizationRefreshedEvent struct {
		ContentHash content.ContentHash
	}

	// ExpiredAccountAuthorizationRemovedEvent is emitted when an expired
	// account authorization is reaped.
	ExpiredAccountAuthorizationRemovedEvent struct {
		Who AccountID
	}

	// ExpiredPreimageAuthorizationRemovedEvent is emitted when an expired
	// preimage authorization is reaped.
	ExpiredPreimageAuthorizationRemovedEvent struct {
		ContentHash content.ContentHash
	}
)

func (StoredEvent) isEvent() {}
func (RenewedEvent) isEvent() {}
func (ProofCheckedEvent) isEvent() {}
func (AccountAuthorizedEvent) isEvent() {}
func (PreimageAuthorizedEvent) isEvent() {}
func (AccountAuthorizationRefreshedEvent) isEvent() {}
func (PreimageAuthorizationRefreshedEvent) isEvent() {}
func (ExpiredAccountAuthorizationRemovedEvent) isEvent() {}
func (ExpiredPreimageAuthorizationRemovedEvent) isEvent() {}

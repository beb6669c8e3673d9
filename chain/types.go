package chain

import (
	"github.com/bulletinlabs/bulletind/content"
)

type (
	// An AccountID identifies an on-chain account.
	AccountID [32]byte

	// An Origin is the provenance of a call: unsigned, signed by an
	// account, or the privileged authorizer.
	Origin struct {
		account    *AccountID
		authorizer bool
	}

	// A TransactionInfo is one entry in the per-block transaction log.
	TransactionInfo struct {
		// ChunkRoot is the merkle root over the blob's 256-byte chunks.
		ChunkRoot content.ContentHash
		// ContentHash identifies the blob bytes.
		ContentHash content.ContentHash
		// Size is the blob length in bytes.
		Size uint64
		// BlockChunks is the cumulative chunk count in the block up to and
		// including this entry. It is strictly increasing within a block.
		BlockChunks uint64
		// CidConfig records a non-default codec/hash choice. Nil means the
		// default (raw, blake2b-256).
		CidConfig *content.CidConfig
	}

	// An AuthorizationExtent is the remaining budget of an authorization.
	AuthorizationExtent struct {
		Transactions uint32
		Bytes        uint64
	}

	// An Authorization grants store/renew budget until it expires.
	Authorization struct {
		Remaining AuthorizationExtent
		// MaxSize caps the size of a single call for preimage scopes.
		MaxSize   uint64
		ExpiresAt uint64
	}
)

// Unsigned returns the origin of an unsigned call.
func Unsigned() Origin {
	return Origin{}
}

// Signed returns the origin of a call signed by who.
func Signed(who AccountID) Origin {
	return Origin{account: &who}
}

// Authorizer returns the privileged origin that manages authorizations.
func Authorizer() Origin {
	return Origin{authorizer: true}
}

// Account returns the signing account and whether the origin is signed.
func (o Origin) Account() (AccountID, bool) {
	if o.account == nil {
		return AccountID{}, false
	}
	return *o.account, true
}

// IsAuthorizer returns true for the authorizer origin.
func (o Origin) IsAuthorizer() bool {
	return o.authorizer
}

// Config returns the entry's effective CID config.
func (t TransactionInfo) Config() content.CidConfig {
	if t.CidConfig == nil {
		return content.DefaultCidConfig()
	}
	return *t.CidConfig
}

// Chunks returns the number of 256-byte chunks covered by the entry.
func (t TransactionInfo) Chunks() uint64 {
	return ChunkCount(t.Size)
}

// IsZero returns true when the extent has no budget left.
func (e AuthorizationExtent) IsZero() bool {
	return e.Transactions == 0 && e.Bytes == 0
}

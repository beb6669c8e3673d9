package chain

import "github.com/bulletinlabs/bulletind/content"

// A Call is one entry of the dispatch table. Apply switches on the
// concrete type.
type Call interface {
	isCall()
}

type (
	// StoreCall stores a blob under the default CID config.
	StoreCall struct {
		Data []byte
	}

	// StoreWithCidConfigCall stores a blob under an explicit CID config.
	StoreWithCidConfigCall struct {
		CidConfig content.CidConfig
		Data      []byte
	}

	// RenewCall extends the retention of an existing entry.
	RenewCall struct {
		Block uint64
		Index int
	}

	// CheckProofCall is the per-block unsigned possession-proof inherent.
	CheckProofCall struct {
		Proof Proof
	}

	// AuthorizeAccountCall grants an account a store/renew budget.
	AuthorizeAccountCall struct {
		Who          AccountID
		Transactions uint32
		Bytes        uint64
	}

	// AuthorizePreimageCall grants a one-shot budget for a specific blob.
	AuthorizePreimageCall struct {
		ContentHash content.ContentHash
		MaxSize     uint64
	}

	// RefreshAccountAuthorizationCall resets an account authorization's
	// expiry without touching its budget.
	RefreshAccountAuthorizationCall struct {
		Who AccountID
	}

	// RefreshPreimageAuthorizationCall resets a preimage authorization's
	// expiry without touching its budget.
	RefreshPreimageAuthorizationCall struct {
		ContentHash content.ContentHash
	}

	// RemoveExpiredAccountAuthorizationCall reaps an expired account
	// authorization. Any origin may call it.
	RemoveExpiredAccountAuthorizationCall struct {
		Who AccountID
	}

	// RemoveExpiredPreimageAuthorizationCall reaps an expired preimage
	// authorization. Any origin may call it.
	RemoveExpiredPreimageAuthorizationCall struct {
		ContentHash content.ContentHash
	}
)

func (StoreCall) isCall() {}
func (StoreWithCidConfigCall) isCall() {}
func (RenewCall) isCall() {}
func (CheckProofCall) isCall() {}
func (AuthorizeAccountCall) isCall() {}
func (AuthorizePreimageCall) isCall() {}
func (RefreshAccountAuthorizationCall) isCall() {}
func (RefreshPreimageAuthorizationCall) isCall() {}
func (RemoveExpiredAccountAuthorizationCall) isCall() {}
func (RemoveExpiredPreimageAuthorizationCall) isCall() {}

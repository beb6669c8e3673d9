package chain

import (
	"sync"

	"github.com/bulletinlabs/bulletind/content"
)

type (
	// A Store persists the transaction log and the content-indexed blob
	// column. Blob rows are refcounted: AddBlob inserts with refcount 1 or
	// increments an existing row, ReleaseBlob decrements and deletes the
	// bytes at zero.
	Store interface {
		AddBlob(h content.ContentHash, data []byte) error
		AddBlobRef(h content.ContentHash) error
		ReleaseBlob(h content.ContentHash) error
		Blob(h content.ContentHash) ([]byte, error)
		HasBlob(h content.ContentHash) (bool, error)

		PutBlockTransactions(block uint64, txs []TransactionInfo) error
		BlockTransactions(block uint64) ([]TransactionInfo, error)
		DeleteBlockTransactions(block uint64) error

		Tip() (uint64, bool, error)
		SetTip(block uint64) error
	}

	// A ProviderRegistry tracks liveness handles held on accounts. An
	// account authorization holds one provider reference for its entire
	// lifetime.
	ProviderRegistry interface {
		IncProviders(who AccountID)
		DecProviders(who AccountID)
	}
)

type blobRow struct {
	data []byte
	refs uint32
}

// A MemStore is an in-memory Store. It backs tests and ephemeral nodes.
type MemStore struct {
	mu    sync.Mutex
	blobs map[content.ContentHash]*blobRow
	txs   map[uint64][]TransactionInfo
	tip   uint64
	hasTip bool
}

// NewMemStore initializes an in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		blobs: make(map[content.ContentHash]*blobRow),
		txs:   make(map[uint64][]TransactionInfo),
	}
}

// AddBlob inserts a blob with refcount 1, or increments the refcount of an
// existing row.
func (ms *MemStore) AddBlob(h content.ContentHash, data []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if row, ok := ms.blobs[h]; ok {
		row.refs++
		return nil
	}
	ms.blobs[h] = &blobRow{data: append([]byte(nil), data...), refs: 1}
	return nil
}

// AddBlobRef increments the refcount of an existing blob.
func (ms *MemStore) AddBlobRef(h content.ContentHash) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	row, ok := ms.blobs[h]
	if !ok {
		return ErrNotFound
	}
	row.refs++
	return nil
}

// ReleaseBlob decrements a blob's refcount, deleting the row at zero.
func (ms *MemStore) ReleaseBlob(h content.ContentHash) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	row, ok := ms.blobs[h]
	if !ok {
		return ErrNotFound
	}
	row.refs--
	if row.refs == 0 {
		delete(ms.blobs, h)
	}
	return nil
}

// Blob returns the bytes stored under h.
func (ms *MemStore) Blob(h content.ContentHash) ([]byte, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	row, ok := ms.blobs[h]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), row.data...), nil
}

// HasBlob returns whether a row exists for h.
func (ms *MemStore) HasBlob(h content.ContentHash) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	_, ok := ms.blobs[h]
	return ok, nil
}

// BlobRefs returns the refcount of h, or zero if absent.
func (ms *MemStore) BlobRefs(h content.ContentHash) uint32 {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	row, ok := ms.blobs[h]
	if !ok {
		return 0
	}
	return row.refs
}

// BlobCount returns the number of blob rows.
func (ms *MemStore) BlobCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.blobs)
}

// PutBlockTransactions stores the finalized transaction vector of a block.
func (ms *MemStore) PutBlockTransactions(block uint64, txs []TransactionInfo) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.txs[block] = append([]TransactionInfo(nil), txs...)
	return nil
}

// BlockTransactions returns the transaction vector of a block.
func (ms *MemStore) BlockTransactions(block uint64) ([]TransactionInfo, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	txs, ok := ms.txs[block]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]TransactionInfo(nil), txs...), nil
}

// DeleteBlockTransactions removes the transaction vector of a block.
func (ms *MemStore) DeleteBlockTransactions(block uint64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.txs, block)
	return nil
}

// Tip returns the persisted tip height, if any.
func (ms *MemStore) Tip() (uint64, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.tip, ms.hasTip, nil
}

// SetTip persists the tip height.
func (ms *MemStore) SetTip(block uint64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.tip, ms.hasTip = block, true
	return nil
}

// AccountProviders is an in-memory provider registry.
type AccountProviders struct {
	mu     sync.Mutex
	counts map[AccountID]int
}

// NewAccountProviders initializes an empty provider registry.
func NewAccountProviders() *AccountProviders {
	return &AccountProviders{counts: make(map[AccountID]int)}
}

// IncProviders acquires a provider reference on who.
func (ap *AccountProviders) IncProviders(who AccountID) {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	ap.counts[who]++
}

// DecProviders releases a provider reference on who.
func (ap *AccountProviders) DecProviders(who AccountID) {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	if ap.counts[who] <= 1 {
		delete(ap.counts, who)
		return
	}
	ap.counts[who]--
}

// Providers returns the number of references held on who.
func (ap *AccountProviders) Providers(who AccountID) int {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	return ap.counts[who]
}

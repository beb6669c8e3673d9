package hop

import (
	"crypto/ed25519"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bulletinlabs/bulletind/content"
	"go.uber.org/zap"
)

// MaxDataSize is the largest blob a pool entry may hold.
const MaxDataSize = 64 << 20

type (
	// An Entry is one blob parked in the pool awaiting its recipients.
	Entry struct {
		Data       []byte
		AddedAt    uint64
		ExpiresAt  uint64
		Size       uint64
		Recipients []ed25519.PublicKey
		Claimed    []bool
	}

	// A Status is a snapshot of pool occupancy.
	Status struct {
		EntryCount int    `json:"entryCount"`
		TotalBytes uint64 `json:"totalBytes"`
		MaxBytes   uint64 `json:"maxBytes"`
	}

	// A Pool is an ephemeral, content-addressed hand-off pool. Entries are
	// keyed by the blake2b hash of their bytes, scoped to recipient public
	// keys, and swept after a fixed number of blocks.
	Pool struct {
		mu      sync.RWMutex
		entries map[content.ContentHash]*Entry

		// currentSize is updated after the map write within the same
		// logical operation; readers hold no lock.
		currentSize atomic.Uint64

		maxSize         uint64
		retentionBlocks uint64
		log             *zap.Logger
	}
)

// NewPool initializes a pool with the given byte capacity and retention.
func NewPool(maxSize, retentionBlocks uint64, log *zap.Logger) *Pool {
	return &Pool{
		entries:         make(map[content.ContentHash]*Entry),
		maxSize:         maxSize,
		retentionBlocks: retentionBlocks,
		log:             log,
	}
}

// Insert adds a blob scoped to the given recipients and returns its
// content hash. now is the current best block number.
func (p *Pool) Insert(data []byte, now uint64, recipients []ed25519.PublicKey) (content.ContentHash, error) {
	switch {
	case len(recipients) == 0:
		return content.ContentHash{}, ErrNoRecipients
	case len(data) == 0:
		return content.ContentHash{}, ErrEmptyData
	case uint64(len(data)) > MaxDataSize:
		return content.ContentHash{}, fmt.Errorf("%d bytes: %w", len(data), ErrDataTooLarge)
	}
	for _, r := range recipients {
		if len(r) != ed25519.PublicKeySize {
			return content.ContentHash{}, ErrInvalidRecipientKey
		}
	}

	h := content.Blake2b(data)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.currentSize.Load()+uint64(len(data)) > p.maxSize {
		return content.ContentHash{}, ErrPoolFull
	}
	if _, ok := p.entries[h]; ok {
		return content.ContentHash{}, ErrDuplicateEntry
	}

	keys := make([]ed25519.PublicKey, len(recipients))
	for i, r := range recipients {
		keys[i] = append(ed25519.PublicKey(nil), r...)
	}
	p.entries[h] = &Entry{
		Data:       append([]byte(nil), data...),
		AddedAt:    now,
		ExpiresAt:  now + p.retentionBlocks,
		Size:       uint64(len(data)),
		Recipients: keys,
		Claimed:    make([]bool, len(keys)),
	}
	p.currentSize.Add(uint64(len(data)))

	p.log.Debug("inserted entry",
		zap.Int("size", len(data)),
		zap.Int("recipients", len(keys)),
		zap.Uint64("expiresAt", now+p.retentionBlocks))
	return h, nil
}

// Claim hands the entry's bytes to a recipient. The signature must be a
// 64-byte ed25519 signature over the content hash by one of the entry's
// unclaimed recipient keys. When every recipient has claimed, the entry is
// removed.
func (p *Pool) Claim(h content.ContentHash, signature []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[h]
	if !ok {
		return nil, ErrNotFound
	}
	if len(signature) != ed25519.SignatureSize {
		return nil, ErrInvalidSignature
	}

	claimed := -1
	for i, r := range entry.Recipients {
		if !entry.Claimed[i] && ed25519.Verify(r, h[:], signature) {
			claimed = i
			break
		}
	}
	if claimed < 0 {
		return nil, ErrNotRecipient
	}
	entry.Claimed[claimed] = true
	data := append([]byte(nil), entry.Data...)

	remaining := 0
	for _, c := range entry.Claimed {
		if !c {
			remaining++
		}
	}
	if remaining == 0 {
		delete(p.entries, h)
		p.currentSize.Add(^(entry.Size - 1))
	}

	p.log.Debug("claimed entry",
		zap.Int("recipient", claimed),
		zap.Int("unclaimed", remaining))
	return data, nil
}

// Get returns the entry's bytes without claiming it.
func (p *Pool) Get(h content.ContentHash) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[h]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.Data...), nil
}

// Has reports whether an entry exists for h.
func (p *Pool) Has(h content.ContentHash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.entries[h]
	return ok
}

// Status returns a snapshot of pool occupancy.
func (p *Pool) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Status{
		EntryCount: len(p.entries),
		TotalBytes: p.currentSize.Load(),
		MaxBytes:   p.maxSize,
	}
}

// Sweep removes entries whose retention has lapsed as of the current best
// block number. It returns the number of removed entries.
func (p *Pool) Sweep(now uint64) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var removed int
	for h, entry := range p.entries {
		if entry.ExpiresAt <= now {
			delete(p.entries, h)
			p.currentSize.Add(^(entry.Size - 1))
			removed++
		}
	}
	if removed > 0 {
		p.log.Debug("swept entries", zap.Int("removed", removed), zap.Uint64("now", now))
	}
	return removed
}

package chain

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"go.uber.org/zap"
)

// selectChunk interprets the seed as an integer S and picks chunk
// S mod total from the union of the per-block vector. It returns the entry
// containing the selected chunk and the chunk offset within that entry.
func selectChunk(seed [32]byte, txs []TransactionInfo) (entry int, offset uint64) {
	total := txs[len(txs)-1].BlockChunks
	selected := new(big.Int).Mod(new(big.Int).SetBytes(seed[:]), new(big.Int).SetUint64(total)).Uint64()

	// BlockChunks is strictly increasing, so the containing entry is the
	// first one whose cumulative count exceeds the selection.
	entry = sort.Search(len(txs), func(i int) bool {
		return txs[i].BlockChunks > selected
	})
	prev := uint64(0)
	if entry > 0 {
		prev = txs[entry-1].BlockChunks
	}
	return entry, selected - prev
}

// checkProof verifies the block's possession-proof inherent. The proof
// must be unsigned, the block must require a proof, and at most one proof
// is accepted per block.
func (p *Pallet) checkProof(origin Origin, proof Proof) error {
	if _, signed := origin.Account(); signed || origin.IsAuthorizer() {
		return ErrBadOrigin
	}
	if !p.proofRequired {
		return ErrUnexpectedProof
	}
	if p.proofChecked {
		return ErrDoubleCheck
	}

	target := p.height - p.cfg.RetentionPeriod
	txs, err := p.store.BlockTransactions(target)
	if errors.Is(err, ErrNotFound) {
		return ErrUnexpectedProof
	} else if err != nil {
		return fmt.Errorf("failed to read target transactions: %w", err)
	}

	entry, offset := selectChunk(p.seed, txs)
	info := txs[entry]
	if !VerifyProof(info.ChunkRoot, info.Chunks(), offset, proof) {
		return ErrInvalidProof
	}

	p.proofChecked = true
	p.emit(ProofCheckedEvent{})
	p.log.Debug("proof checked",
		zap.Uint64("target", target),
		zap.Int("entry", entry),
		zap.Uint64("offset", offset))
	return nil
}

// BuildStorageProof constructs the proof the current block requires, using
// the blobs indexed in the store. The node calls it when acting as its own
// prover.
func (p *Pallet) BuildStorageProof() (Proof, error) {
	if !p.proofRequired {
		return Proof{}, ErrUnexpectedProof
	}
	target := p.height - p.cfg.RetentionPeriod
	txs, err := p.store.BlockTransactions(target)
	if err != nil {
		return Proof{}, fmt.Errorf("failed to read target transactions: %w", err)
	}

	entry, offset := selectChunk(p.seed, txs)
	data, err := p.store.Blob(txs[entry].ContentHash)
	if err != nil {
		return Proof{}, fmt.Errorf("failed to read blob: %w", err)
	}
	return BuildProof(data, offset)
}

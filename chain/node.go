package chain

import (
	"fmt"
	"sync"
	"time"

	"github.com/bulletinlabs/bulletind/content"
	"go.uber.org/zap"
	"lukechampine.com/frand"
)

type queuedCall struct {
	origin Origin
	call   Call
}

// A Node drives the state machine: it produces a block every interval,
// applies queued calls in arrival order, and acts as its own prover for
// blocks that require a possession proof. Consensus is external to this
// package; the node only assumes a monotonic block number.
type Node struct {
	pallet *Pallet
	store  Store
	log    *zap.Logger

	mu     sync.Mutex
	height uint64
	queue  []queuedCall

	tickerStop chan struct{}
	tickerDone chan struct{}
}

// NewNode initializes a node over a pallet, resuming from the store's
// persisted tip. If interval is positive the node starts producing blocks
// immediately; otherwise blocks are produced only via MineBlock.
func NewNode(pallet *Pallet, store Store, interval time.Duration, log *zap.Logger) (*Node, error) {
	tip, ok, err := store.Tip()
	if err != nil {
		return nil, fmt.Errorf("failed to read tip: %w", err)
	}
	n := &Node{
		pallet: pallet,
		store:  store,
		log:    log,
	}
	if ok {
		n.height = tip
	}

	if interval > 0 {
		n.tickerStop = make(chan struct{})
		n.tickerDone = make(chan struct{})
		go func() {
			defer close(n.tickerDone)
			t := time.NewTicker(interval)
			defer t.Stop()
			for {
				select {
				case <-n.tickerStop:
					return
				case <-t.C:
					if _, err := n.MineBlock(); err != nil {
						log.Error("failed to produce block", zap.Error(err))
					}
				}
			}
		}()
	}
	return n, nil
}

// Close stops block production.
func (n *Node) Close() error {
	if n.tickerStop != nil {
		close(n.tickerStop)
		<-n.tickerDone
		n.tickerStop = nil
	}
	return nil
}

// Height returns the height of the last produced block.
func (n *Node) Height() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height
}

// SubmitCall queues a call for inclusion in the next block.
func (n *Node) SubmitCall(origin Origin, call Call) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queue = append(n.queue, queuedCall{origin: origin, call: call})
}

// Blob returns the indexed bytes for a content hash.
func (n *Node) Blob(h content.ContentHash) ([]byte, error) {
	return n.store.Blob(h)
}

// BlockTransactions returns the retained transaction vector for a block.
func (n *Node) BlockTransactions(block uint64) ([]TransactionInfo, error) {
	return n.store.BlockTransactions(block)
}

// MineBlock produces one block: it drains the call queue, supplies the
// proof inherent when required, and finalizes. It returns the block's
// events.
func (n *Node) MineBlock() ([]Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	height := n.height + 1
	var seed [32]byte
	frand.Read(seed[:])

	if err := n.pallet.BeginBlock(height, seed); err != nil {
		return nil, fmt.Errorf("failed to begin block %d: %w", height, err)
	}

	if n.pallet.ProofRequired() {
		proof, err := n.pallet.BuildStorageProof()
		if err != nil {
			return nil, fmt.Errorf("failed to build proof for block %d: %w", height, err)
		}
		if err := n.pallet.Apply(Unsigned(), CheckProofCall{Proof: proof}); err != nil {
			return nil, fmt.Errorf("failed to apply proof for block %d: %w", height, err)
		}
	}

	queue := n.queue
	n.queue = nil
	for _, qc := range queue {
		if err := n.pallet.Apply(qc.origin, qc.call); err != nil {
			// a failed call is dropped from the block, not retried
			n.log.Warn("call failed", zap.Uint64("height", height), zap.Error(err))
		}
	}

	events, err := n.pallet.EndBlock()
	if err != nil {
		return nil, fmt.Errorf("failed to finalize block %d: %w", height, err)
	}
	n.height = height
	return events, nil
}

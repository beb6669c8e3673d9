package chain

import (
	"errors"
	"fmt"

	"github.com/bulletinlabs/bulletind/content"
	"go.uber.org/zap"
)

// Config holds the parameters of the transaction-storage state machine.
type Config struct {
	RetentionPeriod      uint64
	AuthorizationPeriod  uint64
	MaxTransactionSize   uint64
	MaxBlockTransactions int
}

// DefaultMaxTransactionSize caps a single stored blob at 8 MiB.
const DefaultMaxTransactionSize = 8 << 20

// A Pallet is the on-chain transaction-storage state machine. It executes
// single-threaded inside block processing: BeginBlock, a sequence of Apply
// calls, then EndBlock.
type Pallet struct {
	cfg       Config
	store     Store
	providers ProviderRegistry
	log       *zap.Logger

	height        uint64
	seed          [32]byte
	proofRequired bool
	proofChecked  bool

	scratch       []TransactionInfo
	scratchChunks uint64

	accountAuths  map[AccountID]Authorization
	preimageAuths map[content.ContentHash]Authorization

	events []Event
}

// NewPallet initializes the state machine over a store.
func NewPallet(cfg Config, store Store, providers ProviderRegistry, log *zap.Logger) *Pallet {
	if cfg.MaxTransactionSize == 0 {
		cfg.MaxTransactionSize = DefaultMaxTransactionSize
	}
	return &Pallet{
		cfg:           cfg,
		store:         store,
		providers:     providers,
		log:           log,
		accountAuths:  make(map[AccountID]Authorization),
		preimageAuths: make(map[content.ContentHash]Authorization),
	}
}

// Height returns the block currently being processed.
func (p *Pallet) Height() uint64 {
	return p.height
}

// ProofRequired reports whether the current block must carry a possession
// proof.
func (p *Pallet) ProofRequired() bool {
	return p.proofRequired
}

func (p *Pallet) emit(e Event) {
	p.events = append(p.events, e)
}

// BeginBlock starts processing block n. It imports the block's randomness
// seed, determines whether a possession proof is required, and clears the
// per-block scratch state.
func (p *Pallet) BeginBlock(n uint64, seed [32]byte) error {
	p.height = n
	p.seed = seed
	p.proofChecked = false
	p.proofRequired = false
	p.scratch = p.scratch[:0]
	p.scratchChunks = 0
	p.events = p.events[:0]

	if n >= p.cfg.RetentionPeriod {
		_, err := p.store.BlockTransactions(n - p.cfg.RetentionPeriod)
		if err == nil {
			p.proofRequired = true
		} else if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("failed to read retained transactions: %w", err)
		}
	}
	return nil
}

// Apply executes one call. A call either fully applies or leaves the state
// untouched.
func (p *Pallet) Apply(origin Origin, call Call) error {
	switch c := call.(type) {
	case StoreCall:
		return p.storeData(origin, c.Data, nil)
	case StoreWithCidConfigCall:
		cfg := c.CidConfig
		return p.storeData(origin, c.Data, &cfg)
	case RenewCall:
		return p.renew(origin, c.Block, c.Index)
	case CheckProofCall:
		return p.checkProof(origin, c.Proof)
	case AuthorizeAccountCall:
		return p.authorizeAccount(origin, c.Who, c.Transactions, c.Bytes)
	case AuthorizePreimageCall:
		return p.authorizePreimage(origin, c.ContentHash, c.MaxSize)
	case RefreshAccountAuthorizationCall:
		return p.refreshAccountAuthorization(origin, c.Who)
	case RefreshPreimageAuthorizationCall:
		return p.refreshPreimageAuthorization(origin, c.ContentHash)
	case RemoveExpiredAccountAuthorizationCall:
		return p.removeExpiredAccountAuthorization(c.Who)
	case RemoveExpiredPreimageAuthorizationCall:
		return p.removeExpiredPreimageAuthorization(c.ContentHash)
	default:
		return fmt.Errorf("unknown call %T", call)
	}
}

func (p *Pallet) storeData(origin Origin, data []byte, override *content.CidConfig) error {
	if uint64(len(data)) == 0 || uint64(len(data)) > p.cfg.MaxTransactionSize {
		return fmt.Errorf("%w: %d bytes", ErrBadDataSize, len(data))
	}
	if len(p.scratch) >= p.cfg.MaxBlockTransactions {
		return ErrTooManyTransactions
	}

	cfg := content.DefaultCidConfig()
	if override != nil {
		cfg = *override
	}
	c, err := content.Calculate(data, cfg)
	if err != nil {
		return err
	}

	// Unsigned calls are authorized against the blake2b preimage of the
	// data; signed calls prefer the preimage authorization for the entry's
	// own content hash.
	authKey := c.ContentHash
	if _, signed := origin.Account(); !signed {
		authKey = content.Blake2b(data)
	}
	if err := p.debit(origin, authKey, uint64(len(data))); err != nil {
		return err
	}

	info := TransactionInfo{
		ChunkRoot:   ChunkRoot(data),
		ContentHash: c.ContentHash,
		Size:        uint64(len(data)),
		BlockChunks: p.scratchChunks + ChunkCount(uint64(len(data))),
	}
	if !cfg.IsDefault() {
		cc := cfg
		info.CidConfig = &cc
	}

	if err := p.store.AddBlob(c.ContentHash, data); err != nil {
		return fmt.Errorf("failed to index blob: %w", err)
	}
	p.scratch = append(p.scratch, info)
	p.scratchChunks = info.BlockChunks

	p.emit(StoredEvent{Index: len(p.scratch) - 1, ContentHash: c.ContentHash, Cid: c.Cid.Bytes()})
	p.log.Debug("stored transaction",
		zap.Int("index", len(p.scratch)-1),
		zap.Uint64("size", info.Size),
		zap.Uint64("blockChunks", info.BlockChunks))
	return nil
}

func (p *Pallet) renew(origin Origin, block uint64, index int) error {
	txs, err := p.store.BlockTransactions(block)
	if errors.Is(err, ErrNotFound) {
		return ErrRenewedNotFound
	} else if err != nil {
		return fmt.Errorf("failed to read transactions: %w", err)
	}
	if index < 0 || index >= len(txs) {
		return ErrRenewedNotFound
	}
	if len(p.scratch) >= p.cfg.MaxBlockTransactions {
		return ErrTooManyTransactions
	}

	src := txs[index]
	if err := p.debit(origin, src.ContentHash, src.Size); err != nil {
		return err
	}

	info := src
	info.BlockChunks = p.scratchChunks + src.Chunks()
	if err := p.store.AddBlobRef(src.ContentHash); err != nil {
		return fmt.Errorf("failed to add blob reference: %w", err)
	}
	p.scratch = append(p.scratch, info)
	p.scratchChunks = info.BlockChunks

	p.emit(RenewedEvent{Index: len(p.scratch) - 1, ContentHash: src.ContentHash})
	return nil
}

// EndBlock finalizes the current block: it commits the per-block vector,
// prunes the block that fell out of retention, and fails the block when a
// required proof is missing. It returns the block's events.
func (p *Pallet) EndBlock() ([]Event, error) {
	if p.proofRequired && !p.proofChecked {
		return nil, ErrMissingProof
	}

	if len(p.scratch) > 0 {
		if err := p.store.PutBlockTransactions(p.height, p.scratch); err != nil {
			return nil, fmt.Errorf("failed to commit transactions: %w", err)
		}
	}

	if p.height >= p.cfg.RetentionPeriod {
		expired := p.height - p.cfg.RetentionPeriod
		txs, err := p.store.BlockTransactions(expired)
		if err == nil {
			for _, info := range txs {
				if err := p.store.ReleaseBlob(info.ContentHash); err != nil {
					return nil, fmt.Errorf("failed to release blob: %w", err)
				}
			}
			if err := p.store.DeleteBlockTransactions(expired); err != nil {
				return nil, fmt.Errorf("failed to prune transactions: %w", err)
			}
			p.log.Debug("pruned block", zap.Uint64("block", expired), zap.Int("transactions", len(txs)))
		} else if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to read expired transactions: %w", err)
		}
	}

	if err := p.store.SetTip(p.height); err != nil {
		return nil, fmt.Errorf("failed to set tip: %w", err)
	}

	events := append([]Event(nil), p.events...)
	p.events = p.events[:0]
	return events, nil
}

package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/bulletinlabs/bulletind/chain"
	"github.com/bulletinlabs/bulletind/content"
	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/multiformats/go-multicodec"
)

// txRow is the v2 on-disk layout of a TransactionInfo: CBOR with integer
// keys. Codec and Hashing are zero for the default CID config.
type txRow struct {
	ChunkRoot   []byte `cbor:"1,keyasint"`
	ContentHash []byte `cbor:"2,keyasint"`
	Size        uint64 `cbor:"3,keyasint"`
	BlockChunks uint64 `cbor:"4,keyasint"`
	Codec       uint64 `cbor:"5,keyasint,omitempty"`
	Hashing     uint64 `cbor:"6,keyasint,omitempty"`
}

func txKey(block uint64) []byte {
	key := append([]byte(nil), txPrefix...)
	return binary.BigEndian.AppendUint64(key, block)
}

func encodeRows(rows []txRow) ([]byte, error) {
	return cbor.Marshal(rows)
}

func encodeTransactions(txs []chain.TransactionInfo) ([]byte, error) {
	rows := make([]txRow, 0, len(txs))
	for _, info := range txs {
		row := txRow{
			ChunkRoot:   append([]byte(nil), info.ChunkRoot[:]...),
			ContentHash: append([]byte(nil), info.ContentHash[:]...),
			Size:        info.Size,
			BlockChunks: info.BlockChunks,
		}
		if info.CidConfig != nil {
			row.Codec = uint64(info.CidConfig.Codec)
			row.Hashing = uint64(info.CidConfig.Hashing)
		}
		rows = append(rows, row)
	}
	return encodeRows(rows)
}

func decodeTransactions(buf []byte) ([]chain.TransactionInfo, error) {
	var rows []txRow
	if err := cbor.Unmarshal(buf, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rows: %w", err)
	}
	txs := make([]chain.TransactionInfo, 0, len(rows))
	for i, row := range rows {
		if len(row.ChunkRoot) != content.HashSize || len(row.ContentHash) != content.HashSize {
			return nil, fmt.Errorf("row %d: bad digest length", i)
		}
		info := chain.TransactionInfo{
			Size:        row.Size,
			BlockChunks: row.BlockChunks,
		}
		copy(info.ChunkRoot[:], row.ChunkRoot)
		copy(info.ContentHash[:], row.ContentHash)
		if row.Codec != 0 || row.Hashing != 0 {
			info.CidConfig = &content.CidConfig{
				Codec:   multicodec.Code(row.Codec),
				Hashing: content.HashAlgorithm(row.Hashing),
			}
		}
		txs = append(txs, info)
	}
	return txs, nil
}

// PutBlockTransactions stores the finalized transaction vector of a block.
func (s *Store) PutBlockTransactions(block uint64, txs []chain.TransactionInfo) error {
	buf, err := encodeTransactions(txs)
	if err != nil {
		return fmt.Errorf("failed to encode transactions: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(txKey(block), buf)
	})
}

// BlockTransactions returns the transaction vector of a block.
func (s *Store) BlockTransactions(block uint64) (txs []chain.TransactionInfo, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(txKey(block))
		if err == badger.ErrKeyNotFound {
			return chain.ErrNotFound
		} else if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			txs, err = decodeTransactions(val)
			return err
		})
	})
	return
}

// DeleteBlockTransactions removes the transaction vector of a block.
func (s *Store) DeleteBlockTransactions(block uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(txKey(block))
	})
}

// Tip returns the persisted tip height, if any.
func (s *Store) Tip() (block uint64, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tipKey)
		if err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		ok = true
		return item.Value(func(val []byte) error {
			block = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	return
}

// SetTip persists the tip height.
func (s *Store) SetTip(block uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tipKey, binary.BigEndian.AppendUint64(nil, block))
	})
}

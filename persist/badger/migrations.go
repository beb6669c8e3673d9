package badger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const schemaVersion = 2

// txRowV1 is the legacy JSON layout of a transaction-log row. It predates
// per-call CID configs; every v1 row used the default config.
type txRowV1 struct {
	ChunkRoot   []byte `json:"chunkRoot"`
	ContentHash []byte `json:"contentHash"`
	Size        uint64 `json:"size"`
	BlockChunks uint64 `json:"blockChunks"`
}

// migrateV2 re-encodes every transaction-log row from the v1 JSON layout
// into the v2 CBOR layout. It runs once.
func migrateV2(s *Store) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = txPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var migrated int
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)

			var rows []txRowV1
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rows)
			})
			if err != nil {
				return fmt.Errorf("failed to decode v1 rows at %x: %w", key, err)
			}

			v2 := make([]txRow, 0, len(rows))
			for _, row := range rows {
				v2 = append(v2, txRow{
					ChunkRoot:   row.ChunkRoot,
					ContentHash: row.ContentHash,
					Size:        row.Size,
					BlockChunks: row.BlockChunks,
				})
			}
			buf, err := encodeRows(v2)
			if err != nil {
				return fmt.Errorf("failed to encode v2 rows at %x: %w", key, err)
			}
			if err := txn.Set(key, buf); err != nil {
				return err
			}
			migrated++
		}
		s.log.Info("migrated transaction log", zap.Int("blocks", migrated))
		return nil
	})
}

// migrations are run in order to update existing databases to the current
// schema.
var migrations = []func(*Store) error{
	migrateV2,
}

func (s *Store) version() (n uint32, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(versionKey)
		if err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			n = binary.LittleEndian.Uint32(val)
			return nil
		})
	})
	return
}

func (s *Store) setVersion(n uint32) error {
	return s.db.Update(func(txn *badger.Txn) error {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, n)
		return txn.Set(versionKey, buf)
	})
}

func (s *Store) migrate() error {
	version, err := s.version()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version == 0 {
		// fresh database; adopt the current schema directly
		return s.setVersion(schemaVersion)
	}
	for version < schemaVersion {
		if err := migrations[version-1](s); err != nil {
			return fmt.Errorf("failed to migrate to v%d: %w", version+1, err)
		}
		version++
		if err := s.setVersion(version); err != nil {
			return fmt.Errorf("failed to advance schema version: %w", err)
		}
		s.log.Info("database migrated", zap.Uint32("version", version))
	}
	return nil
}

package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/bulletinlabs/bulletind/chain"
	"github.com/bulletinlabs/bulletind/content"
	"github.com/dgraph-io/badger/v4"
)

func blobKey(h content.ContentHash) []byte {
	return append(append([]byte(nil), blobPrefix...), h[:]...)
}

func refcountKey(h content.ContentHash) []byte {
	return append(append([]byte(nil), refcountPrefix...), h[:]...)
}

// refcounts are stored as little-endian bytes in a companion row next to
// the blob bytes.
func encodeRefcount(n uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, n)
	return buf
}

func decodeRefcount(buf []byte) uint32 {
	if len(buf) < 4 {
		var b [4]byte
		copy(b[:], buf)
		return binary.LittleEndian.Uint32(b[:])
	}
	return binary.LittleEndian.Uint32(buf[:4])
}

func getRefcount(txn *badger.Txn, h content.ContentHash) (uint32, error) {
	item, err := txn.Get(refcountKey(h))
	if err == badger.ErrKeyNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	var n uint32
	err = item.Value(func(val []byte) error {
		n = decodeRefcount(val)
		return nil
	})
	return n, err
}

// AddBlob inserts a blob with refcount 1, or increments the refcount of an
// existing row. Bytes are stored once regardless of how many entries
// reference them.
func (s *Store) AddBlob(h content.ContentHash, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		n, err := getRefcount(txn, h)
		if err != nil {
			return err
		}
		if n == 0 {
			if err := txn.Set(blobKey(h), data); err != nil {
				return err
			}
		}
		return txn.Set(refcountKey(h), encodeRefcount(n+1))
	})
}

// AddBlobRef increments the refcount of an existing blob.
func (s *Store) AddBlobRef(h content.ContentHash) error {
	return s.db.Update(func(txn *badger.Txn) error {
		n, err := getRefcount(txn, h)
		if err != nil {
			return err
		} else if n == 0 {
			return chain.ErrNotFound
		}
		return txn.Set(refcountKey(h), encodeRefcount(n+1))
	})
}

// ReleaseBlob decrements a blob's refcount. At zero both the refcount row
// and the blob bytes are erased.
func (s *Store) ReleaseBlob(h content.ContentHash) error {
	return s.db.Update(func(txn *badger.Txn) error {
		n, err := getRefcount(txn, h)
		if err != nil {
			return err
		} else if n == 0 {
			return chain.ErrNotFound
		}
		if n == 1 {
			if err := txn.Delete(refcountKey(h)); err != nil {
				return err
			}
			return txn.Delete(blobKey(h))
		}
		return txn.Set(refcountKey(h), encodeRefcount(n-1))
	})
}

// Blob returns the bytes stored under h.
func (s *Store) Blob(h content.ContentHash) (data []byte, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(h))
		if err == badger.ErrKeyNotFound {
			return chain.ErrNotFound
		} else if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	return
}

// HasBlob returns whether a row exists for h.
func (s *Store) HasBlob(h content.ContentHash) (ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(blobKey(h))
		if err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		ok = true
		return nil
	})
	return
}

// BlobRefs returns the refcount of h, or zero if absent.
func (s *Store) BlobRefs(h content.ContentHash) (n uint32, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		var err error
		n, err = getRefcount(txn, h)
		return err
	})
	return
}

// BlobCount returns the number of blob rows in the column.
func (s *Store) BlobCount() (n int, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = blobPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count blobs: %w", err)
	}
	return
}

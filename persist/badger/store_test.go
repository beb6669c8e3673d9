package badger

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/bulletinlabs/bulletind/chain"
	"github.com/bulletinlabs/bulletind/content"
	"github.com/dgraph-io/badger/v4"
	"github.com/multiformats/go-multicodec"
	"go.uber.org/zap/zaptest"
	"lukechampine.com/frand"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenDatabase(t.TempDir(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBlobRefcounts(t *testing.T) {
	s := testStore(t)
	data := frand.Bytes(1000)
	h := content.Blake2b(data)

	if _, err := s.Blob(h); !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("expected chain.ErrNotFound, got %v", err)
	}
	if err := s.AddBlobRef(h); !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("expected chain.ErrNotFound, got %v", err)
	}
	if err := s.ReleaseBlob(h); !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("expected chain.ErrNotFound, got %v", err)
	}

	if err := s.AddBlob(h, data); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.BlobRefs(h); n != 1 {
		t.Fatalf("expected refcount 1, got %d", n)
	}

	// re-adding the same bytes stores one row and bumps the refcount
	if err := s.AddBlob(h, data); err != nil {
		t.Fatal(err)
	}
	if err := s.AddBlobRef(h); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.BlobRefs(h); n != 3 {
		t.Fatalf("expected refcount 3, got %d", n)
	}
	if n, _ := s.BlobCount(); n != 1 {
		t.Fatalf("expected 1 blob row, got %d", n)
	}

	got, err := s.Blob(h)
	if err != nil {
		t.Fatal(err)
	} else if !bytes.Equal(got, data) {
		t.Fatal("blob bytes mismatch")
	}

	for i := 0; i < 3; i++ {
		if err := s.ReleaseBlob(h); err != nil {
			t.Fatal(err)
		}
	}
	if ok, _ := s.HasBlob(h); ok {
		t.Fatal("expected blob bytes to be erased at refcount zero")
	}
	if n, _ := s.BlobRefs(h); n != 0 {
		t.Fatalf("expected refcount 0, got %d", n)
	}
	if err := s.ReleaseBlob(h); !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("expected chain.ErrNotFound, got %v", err)
	}
}

func TestBlockTransactions(t *testing.T) {
	s := testStore(t)

	txs := []chain.TransactionInfo{
		{
			ChunkRoot:   content.Blake2b([]byte("root a")),
			ContentHash: content.Blake2b([]byte("hash a")),
			Size:        2000,
			BlockChunks: 8,
		},
		{
			ChunkRoot:   content.Blake2b([]byte("root b")),
			ContentHash: content.Blake2b([]byte("hash b")),
			Size:        300,
			BlockChunks: 10,
			CidConfig:   &content.CidConfig{Codec: multicodec.DagCbor, Hashing: content.HashSha2256},
		},
	}
	if err := s.PutBlockTransactions(7, txs); err != nil {
		t.Fatal(err)
	}

	got, err := s.BlockTransactions(7)
	if err != nil {
		t.Fatal(err)
	} else if !reflect.DeepEqual(got, txs) {
		t.Fatalf("expected %+v, got %+v", txs, got)
	}

	if _, err := s.BlockTransactions(8); !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("expected chain.ErrNotFound, got %v", err)
	}

	if err := s.DeleteBlockTransactions(7); err != nil {
		t.Fatal(err)
	}
	if _, err := s.BlockTransactions(7); !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("expected chain.ErrNotFound, got %v", err)
	}
}

func TestTip(t *testing.T) {
	s := testStore(t)

	if _, ok, err := s.Tip(); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Fatal("expected no tip in a fresh database")
	}

	if err := s.SetTip(123); err != nil {
		t.Fatal(err)
	}
	tip, ok, err := s.Tip()
	if err != nil {
		t.Fatal(err)
	} else if !ok || tip != 123 {
		t.Fatalf("expected tip 123, got %d (ok %t)", tip, ok)
	}
}

func TestFreshSchemaVersion(t *testing.T) {
	s := testStore(t)
	version, err := s.version()
	if err != nil {
		t.Fatal(err)
	} else if version != schemaVersion {
		t.Fatalf("expected schema version %d, got %d", schemaVersion, version)
	}
}

func TestMigrateV2(t *testing.T) {
	dir := t.TempDir()

	// write a v1 database by hand: JSON rows, schema version 1
	rows := []txRowV1{
		{
			ChunkRoot:   frand.Bytes(content.HashSize),
			ContentHash: frand.Bytes(content.HashSize),
			Size:        4096,
			BlockChunks: 16,
		},
		{
			ChunkRoot:   frand.Bytes(content.HashSize),
			ContentHash: frand.Bytes(content.HashSize),
			Size:        100,
			BlockChunks: 17,
		},
	}
	buf, err := json.Marshal(rows)
	if err != nil {
		t.Fatal(err)
	}

	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	err = db.Update(func(txn *badger.Txn) error {
		version := make([]byte, 4)
		binary.LittleEndian.PutUint32(version, 1)
		if err := txn.Set(versionKey, version); err != nil {
			return err
		}
		return txn.Set(txKey(5), buf)
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	// reopening migrates the rows to the v2 layout
	s, err := OpenDatabase(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	version, err := s.version()
	if err != nil {
		t.Fatal(err)
	} else if version != schemaVersion {
		t.Fatalf("expected schema version %d, got %d", schemaVersion, version)
	}

	txs, err := s.BlockTransactions(5)
	if err != nil {
		t.Fatal(err)
	} else if len(txs) != len(rows) {
		t.Fatalf("expected %d entries, got %d", len(rows), len(txs))
	}
	for i, info := range txs {
		if !bytes.Equal(info.ChunkRoot[:], rows[i].ChunkRoot) || !bytes.Equal(info.ContentHash[:], rows[i].ContentHash) {
			t.Fatalf("entry %d: digest mismatch", i)
		}
		if info.Size != rows[i].Size || info.BlockChunks != rows[i].BlockChunks {
			t.Fatalf("entry %d: field mismatch", i)
		}
		// v1 rows predate per-call cid configs
		if info.CidConfig != nil {
			t.Fatalf("entry %d: unexpected cid config", i)
		}
	}
}

package badger

import (
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Key prefixes. Blob bytes and their refcount companions live in their own
// column; transaction-log rows in another.
var (
	blobPrefix     = []byte("b/")
	refcountPrefix = []byte("r/")
	txPrefix       = []byte("t/")
	tipKey         = []byte("tip")
	versionKey     = []byte("schema_version")
)

// A Store is a badger-backed chain store.
type Store struct {
	db  *badger.DB
	log *zap.Logger
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// OpenDatabase opens a badger database at the given path and migrates it
// to the current schema.
func OpenDatabase(path string, log *zap.Logger) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

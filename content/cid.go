package content

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-multihash"
	"golang.org/x/crypto/blake2b"
)

// HashSize is the size of every supported digest in bytes.
const HashSize = 32

// A ContentHash is the canonical identity of a blob: a 32-byte digest of
// its bytes.
type ContentHash [HashSize]byte

// A HashAlgorithm is a multihash code identifying the digest function used
// to derive a blob's content hash.
type HashAlgorithm uint64

// Supported hash algorithms.
const (
	HashBlake2b256 = HashAlgorithm(multihash.BLAKE2B_MIN + 31)
	HashSha2256    = HashAlgorithm(multihash.SHA2_256)
	HashKeccak256  = HashAlgorithm(multihash.KECCAK_256)
)

// ErrUnsupportedCidConfig is returned when a CID config names a codec or
// hash outside the supported set.
var ErrUnsupportedCidConfig = errors.New("unsupported cid config")

type (
	// A CidConfig selects the multicodec and multihash used to derive a
	// blob's CID.
	CidConfig struct {
		Codec   multicodec.Code `json:"codec"`
		Hashing HashAlgorithm   `json:"hashing"`
	}

	// A Cid pairs a blob's content hash with its serialized CIDv1.
	Cid struct {
		ContentHash ContentHash
		Cid         cid.Cid
	}
)

// DefaultCidConfig returns the config used when a store call does not
// choose one: raw codec, blake2b-256 hashing.
func DefaultCidConfig() CidConfig {
	return CidConfig{Codec: multicodec.Raw, Hashing: HashBlake2b256}
}

// IsDefault returns true if c is the default config.
func (c CidConfig) IsDefault() bool {
	return c == DefaultCidConfig()
}

// Validate checks that the codec and hash are in the supported set.
func (c CidConfig) Validate() error {
	switch c.Codec {
	case multicodec.Raw, multicodec.DagPb, multicodec.DagCbor:
	default:
		return fmt.Errorf("%w: codec %#x", ErrUnsupportedCidConfig, uint64(c.Codec))
	}
	switch c.Hashing {
	case HashBlake2b256, HashSha2256, HashKeccak256:
	default:
		return fmt.Errorf("%w: hash %#x", ErrUnsupportedCidConfig, uint64(c.Hashing))
	}
	return nil
}

// Calculate derives the content hash and CIDv1 of data under the given
// config.
func Calculate(data []byte, cfg CidConfig) (Cid, error) {
	if err := cfg.Validate(); err != nil {
		return Cid{}, err
	}
	mh, err := multihash.Sum(data, uint64(cfg.Hashing), HashSize)
	if err != nil {
		return Cid{}, fmt.Errorf("failed to compute multihash: %w", err)
	}
	dec, err := multihash.Decode(mh)
	if err != nil {
		return Cid{}, fmt.Errorf("failed to decode multihash: %w", err)
	}
	var h ContentHash
	copy(h[:], dec.Digest)
	return Cid{
		ContentHash: h,
		Cid:         cid.NewCidV1(uint64(cfg.Codec), mh),
	}, nil
}

// Parse casts raw bytes into a strict CIDv1 with a 32-byte digest and
// recovers the config and content hash that produced it.
func Parse(b []byte) (cid.Cid, CidConfig, ContentHash, error) {
	c, err := cid.Cast(b)
	if err != nil {
		return cid.Undef, CidConfig{}, ContentHash{}, fmt.Errorf("failed to cast cid: %w", err)
	} else if c.Version() != 1 {
		return cid.Undef, CidConfig{}, ContentHash{}, fmt.Errorf("unsupported cid version %d", c.Version())
	}
	prefix := c.Prefix()
	if prefix.MhLength != HashSize {
		return cid.Undef, CidConfig{}, ContentHash{}, fmt.Errorf("unsupported digest length %d", prefix.MhLength)
	}
	cfg := CidConfig{Codec: multicodec.Code(prefix.Codec), Hashing: HashAlgorithm(prefix.MhType)}
	if err := cfg.Validate(); err != nil {
		return cid.Undef, CidConfig{}, ContentHash{}, err
	}
	dec, err := multihash.Decode(c.Hash())
	if err != nil {
		return cid.Undef, CidConfig{}, ContentHash{}, fmt.Errorf("failed to decode multihash: %w", err)
	}
	var h ContentHash
	copy(h[:], dec.Digest)
	return c, cfg, h, nil
}

// Blake2b returns the blake2b-256 digest of data. It is the hash used for
// preimage authorizations and hand-off pool identities.
func Blake2b(data []byte) ContentHash {
	return blake2b.Sum256(data)
}

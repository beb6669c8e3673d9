package chain

import (
	"fmt"

	"github.com/bulletinlabs/bulletind/content"
	"golang.org/x/crypto/blake2b"
)

// ChunkSize is the wire-level chunk size used to build chunk roots. It is
// unrelated to the client-side splitter's chunk size.
const ChunkSize = 256

// ChunkCount returns the number of wire chunks covering size bytes.
func ChunkCount(size uint64) uint64 {
	return (size + ChunkSize - 1) / ChunkSize
}

// A Proof is a merkle inclusion proof for one wire chunk of a stored blob.
type Proof struct {
	// Chunk is the raw chunk at the selected offset. Every chunk except
	// possibly the last has exactly ChunkSize bytes.
	Chunk []byte
	// Path holds the sibling hashes from leaf to root. Levels whose node
	// has no sibling contribute nothing.
	Path []content.ContentHash
}

func leafHashes(data []byte) []content.ContentHash {
	n := ChunkCount(uint64(len(data)))
	leaves := make([]content.ContentHash, 0, n)
	for i := 0; i < len(data); i += ChunkSize {
		end := i + ChunkSize
		if end > len(data) {
			end = len(data)
		}
		leaves = append(leaves, blake2b.Sum256(data[i:end]))
	}
	return leaves
}

func hashPair(l, r content.ContentHash) content.ContentHash {
	buf := make([]byte, 0, 2*content.HashSize)
	buf = append(buf, l[:]...)
	buf = append(buf, r[:]...)
	return blake2b.Sum256(buf)
}

// nextLevel reduces a level of the tree. A lone trailing node is promoted
// unchanged.
func nextLevel(level []content.ContentHash) []content.ContentHash {
	next := make([]content.ContentHash, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		if i+1 < len(level) {
			next = append(next, hashPair(level[i], level[i+1]))
		} else {
			next = append(next, level[i])
		}
	}
	return next
}

// ChunkRoot computes the binary merkle root over the blob's wire chunks.
func ChunkRoot(data []byte) content.ContentHash {
	if len(data) == 0 {
		return content.ContentHash{}
	}
	level := leafHashes(data)
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0]
}

// BuildProof constructs the inclusion proof for the index-th wire chunk of
// data.
func BuildProof(data []byte, index uint64) (Proof, error) {
	total := ChunkCount(uint64(len(data)))
	if index >= total {
		return Proof{}, fmt.Errorf("chunk index %d out of range (%d chunks)", index, total)
	}

	start := index * ChunkSize
	end := start + ChunkSize
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	chunk := append([]byte(nil), data[start:end]...)

	var path []content.ContentHash
	level := leafHashes(data)
	idx := index
	for len(level) > 1 {
		sibling := idx ^ 1
		if sibling < uint64(len(level)) {
			path = append(path, level[sibling])
		}
		level = nextLevel(level)
		idx /= 2
	}
	return Proof{Chunk: chunk, Path: path}, nil
}

// VerifyProof checks an inclusion proof against a chunk root. leafCount is
// the number of wire chunks of the blob; index selects the chunk being
// proven.
func VerifyProof(root content.ContentHash, leafCount, index uint64, p Proof) bool {
	if leafCount == 0 || index >= leafCount {
		return false
	}
	if len(p.Chunk) == 0 || len(p.Chunk) > ChunkSize {
		return false
	}
	// only the last chunk may be short
	if index != leafCount-1 && len(p.Chunk) != ChunkSize {
		return false
	}

	h := blake2b.Sum256(p.Chunk)
	idx, width := index, leafCount
	path := p.Path
	for width > 1 {
		sibling := idx ^ 1
		if sibling < width {
			if len(path) == 0 {
				return false
			}
			if idx&1 == 0 {
				h = hashPair(h, path[0])
			} else {
				h = hashPair(path[0], h)
			}
			path = path[1:]
		}
		idx /= 2
		width = (width + 1) / 2
	}
	return len(path) == 0 && h == root
}

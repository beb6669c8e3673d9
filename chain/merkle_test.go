package chain

import (
	"testing"

	"github.com/bulletinlabs/bulletind/content"
	"golang.org/x/crypto/blake2b"
	"lukechampine.com/frand"
)

func TestChunkCount(t *testing.T) {
	tests := []struct {
		size, chunks uint64
	}{
		{0, 0},
		{1, 1},
		{ChunkSize - 1, 1},
		{ChunkSize, 1},
		{ChunkSize + 1, 2},
		{4 * ChunkSize, 4},
		{4*ChunkSize + 1, 5},
	}
	for _, tt := range tests {
		if n := ChunkCount(tt.size); n != tt.chunks {
			t.Fatalf("size %d: expected %d chunks, got %d", tt.size, tt.chunks, n)
		}
	}
}

func TestChunkRoot(t *testing.T) {
	// a single chunk hashes directly to the root
	data := frand.Bytes(100)
	if root := ChunkRoot(data); root != blake2b.Sum256(data) {
		t.Fatal("single chunk root mismatch")
	}

	// two chunks hash pairwise
	data = frand.Bytes(2 * ChunkSize)
	h0 := blake2b.Sum256(data[:ChunkSize])
	h1 := blake2b.Sum256(data[ChunkSize:])
	if root := ChunkRoot(data); root != hashPair(h0, h1) {
		t.Fatal("two chunk root mismatch")
	}

	// a lone trailing node is promoted unchanged
	data = frand.Bytes(2*ChunkSize + 10)
	h0 = blake2b.Sum256(data[:ChunkSize])
	h1 = blake2b.Sum256(data[ChunkSize : 2*ChunkSize])
	h2 := blake2b.Sum256(data[2*ChunkSize:])
	if root := ChunkRoot(data); root != hashPair(hashPair(h0, h1), h2) {
		t.Fatal("three chunk root mismatch")
	}
}

func TestBuildVerifyProof(t *testing.T) {
	sizes := []int{1, ChunkSize - 1, ChunkSize, ChunkSize + 1, 2 * ChunkSize, 3*ChunkSize + 7, 16 * ChunkSize, 17*ChunkSize + 1}
	for _, size := range sizes {
		data := frand.Bytes(size)
		root := ChunkRoot(data)
		total := ChunkCount(uint64(size))

		for index := uint64(0); index < total; index++ {
			proof, err := BuildProof(data, index)
			if err != nil {
				t.Fatalf("size %d index %d: %s", size, index, err)
			}
			if !VerifyProof(root, total, index, proof) {
				t.Fatalf("size %d index %d: proof rejected", size, index)
			}
			if total > 1 {
				wrong := (index + 1) % total
				if VerifyProof(root, total, wrong, proof) {
					t.Fatalf("size %d index %d: proof accepted at wrong index", size, index)
				}
			}
		}
	}
}

func TestVerifyProofRejects(t *testing.T) {
	data := frand.Bytes(5 * ChunkSize)
	root := ChunkRoot(data)
	total := ChunkCount(uint64(len(data)))

	proof, err := BuildProof(data, 2)
	if err != nil {
		t.Fatal(err)
	}

	// tampered chunk
	tampered := proof
	tampered.Chunk = append([]byte(nil), proof.Chunk...)
	tampered.Chunk[0] ^= 0xff
	if VerifyProof(root, total, 2, tampered) {
		t.Fatal("tampered chunk accepted")
	}

	// truncated path
	tampered = proof
	tampered.Path = proof.Path[:len(proof.Path)-1]
	if VerifyProof(root, total, 2, tampered) {
		t.Fatal("truncated path accepted")
	}

	// extra path element
	tampered = proof
	tampered.Path = append(append([]content.ContentHash(nil), proof.Path...), content.ContentHash{})
	if VerifyProof(root, total, 2, tampered) {
		t.Fatal("overlong path accepted")
	}

	// only the last chunk may be short
	short, err := BuildProof(data[:4*ChunkSize+10], 4)
	if err != nil {
		t.Fatal(err)
	}
	if VerifyProof(root, total, 2, Proof{Chunk: short.Chunk, Path: proof.Path}) {
		t.Fatal("short interior chunk accepted")
	}

	// out of range
	if VerifyProof(root, total, total, proof) {
		t.Fatal("out-of-range index accepted")
	}
	if VerifyProof(root, 0, 0, proof) {
		t.Fatal("empty blob accepted")
	}

	// wrong root
	if VerifyProof(content.ContentHash{}, total, 2, proof) {
		t.Fatal("wrong root accepted")
	}
}

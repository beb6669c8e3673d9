package chain

import (
	"errors"
	"testing"

	"lukechampine.com/frand"
)

func TestSelectChunk(t *testing.T) {
	txs := []TransactionInfo{
		{BlockChunks: 4},
		{BlockChunks: 6},
		{BlockChunks: 7},
	}
	tests := []struct {
		seed   uint64
		entry  int
		offset uint64
	}{
		{0, 0, 0},
		{3, 0, 3},
		{4, 1, 0},
		{5, 1, 1},
		{6, 2, 0},
		{7, 0, 0},  // wraps mod 7
		{13, 2, 0}, // 13 mod 7 = 6
	}
	for _, tt := range tests {
		var seed [32]byte
		seed[31] = byte(tt.seed)
		entry, offset := selectChunk(seed, txs)
		if entry != tt.entry || offset != tt.offset {
			t.Fatalf("seed %d: expected entry %d offset %d, got %d/%d", tt.seed, tt.entry, tt.offset, entry, offset)
		}
	}
}

// proofPallet sets up a pallet with 16 stored blobs of 4 wire chunks each
// in block 1 and advances to the start of block 11, where the retention
// window closes over block 1.
func proofPallet(t *testing.T, seed [32]byte) (*Pallet, [][]byte) {
	t.Helper()
	p, _, _ := testPallet(t, Config{
		RetentionPeriod:      10,
		AuthorizationPeriod:  1000,
		MaxTransactionSize:   1 << 20,
		MaxBlockTransactions: 16,
	})
	alice := AccountID{1}

	blobs := make([][]byte, 16)
	runBlock(t, p, 1, func() {
		mustApply(t, p, Authorizer(), AuthorizeAccountCall{Who: alice, Transactions: 16, Bytes: 1 << 20})
		for i := range blobs {
			blobs[i] = frand.Bytes(4 * ChunkSize)
			mustApply(t, p, Signed(alice), StoreCall{Data: blobs[i]})
		}
	})
	for n := uint64(2); n <= 10; n++ {
		runBlock(t, p, n, nil)
	}

	if err := p.BeginBlock(11, seed); err != nil {
		t.Fatal(err)
	}
	if !p.ProofRequired() {
		t.Fatal("expected block 11 to require a proof")
	}
	return p, blobs
}

func TestCheckProof(t *testing.T) {
	// seed 5 selects chunk 5 of 64: entry 1, offset 1
	var seed [32]byte
	seed[31] = 5
	p, blobs := proofPallet(t, seed)

	proof, err := BuildProof(blobs[1], 1)
	if err != nil {
		t.Fatal(err)
	}
	mustApply(t, p, Unsigned(), CheckProofCall{Proof: proof})

	// at most one proof per block
	if err := p.Apply(Unsigned(), CheckProofCall{Proof: proof}); !errors.Is(err, ErrDoubleCheck) {
		t.Fatalf("expected ErrDoubleCheck, got %v", err)
	}

	events, err := p.EndBlock()
	if err != nil {
		t.Fatal(err)
	}
	var checked bool
	for _, e := range events {
		if _, ok := e.(ProofCheckedEvent); ok {
			checked = true
		}
	}
	if !checked {
		t.Fatal("expected a ProofCheckedEvent")
	}
}

func TestCheckProofInvalid(t *testing.T) {
	var seed [32]byte
	seed[31] = 5
	p, blobs := proofPallet(t, seed)

	// a proof for the wrong chunk of the right blob
	proof, err := BuildProof(blobs[1], 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Apply(Unsigned(), CheckProofCall{Proof: proof}); !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof, got %v", err)
	}

	// a proof for the right chunk of the wrong blob
	proof, err = BuildProof(blobs[2], 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Apply(Unsigned(), CheckProofCall{Proof: proof}); !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof, got %v", err)
	}

	// proofs are unsigned inherents
	good, err := BuildProof(blobs[1], 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Apply(Signed(AccountID{1}), CheckProofCall{Proof: good}); !errors.Is(err, ErrBadOrigin) {
		t.Fatalf("expected ErrBadOrigin, got %v", err)
	}
}

func TestMissingProof(t *testing.T) {
	var seed [32]byte
	seed[31] = 5
	p, _ := proofPallet(t, seed)

	// finalizing without the inherent fails the block
	if _, err := p.EndBlock(); !errors.Is(err, ErrMissingProof) {
		t.Fatalf("expected ErrMissingProof, got %v", err)
	}
}

func TestUnexpectedProof(t *testing.T) {
	p, _, _ := testPallet(t, Config{
		RetentionPeriod:      10,
		AuthorizationPeriod:  1000,
		MaxTransactionSize:   1 << 20,
		MaxBlockTransactions: 16,
	})
	runBlock(t, p, 1, func() {
		if err := p.Apply(Unsigned(), CheckProofCall{}); !errors.Is(err, ErrUnexpectedProof) {
			t.Fatalf("expected ErrUnexpectedProof, got %v", err)
		}
	})
}

func TestBuildStorageProof(t *testing.T) {
	var seed [32]byte
	frand.Read(seed[:])
	p, _ := proofPallet(t, seed)

	// the node's own prover must satisfy the pallet for any seed
	proof, err := p.BuildStorageProof()
	if err != nil {
		t.Fatal(err)
	}
	mustApply(t, p, Unsigned(), CheckProofCall{Proof: proof})
	if _, err := p.EndBlock(); err != nil {
		t.Fatal(err)
	}
}

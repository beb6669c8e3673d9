package hop

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/bulletinlabs/bulletind/content"
	"go.uber.org/zap/zaptest"
	"lukechampine.com/frand"
)

func testPool(t *testing.T, maxSize, retentionBlocks uint64) *Pool {
	t.Helper()
	return NewPool(maxSize, retentionBlocks, zaptest.NewLogger(t))
}

func genKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	return pub, priv
}

func TestInsertClaim(t *testing.T) {
	p := testPool(t, 1<<20, 100)
	pub1, priv1 := genKey(t)
	pub2, priv2 := genKey(t)
	data := frand.Bytes(1000)

	h, err := p.Insert(data, 5, []ed25519.PublicKey{pub1, pub2})
	if err != nil {
		t.Fatal(err)
	}
	if h != content.Blake2b(data) {
		t.Fatal("expected entry to be keyed by the blake2b hash of its bytes")
	}
	if status := p.Status(); status.EntryCount != 1 || status.TotalBytes != 1000 {
		t.Fatalf("unexpected status %+v", status)
	}

	// the first recipient claims; the entry stays for the second
	got, err := p.Claim(h, ed25519.Sign(priv1, h[:]))
	if err != nil {
		t.Fatal(err)
	} else if !bytes.Equal(got, data) {
		t.Fatal("claimed bytes mismatch")
	}
	if !p.Has(h) {
		t.Fatal("expected entry to remain until every recipient claims")
	}

	// the last claim removes the entry and frees its bytes
	if _, err := p.Claim(h, ed25519.Sign(priv2, h[:])); err != nil {
		t.Fatal(err)
	}
	if p.Has(h) {
		t.Fatal("expected entry to be removed after the final claim")
	}
	if status := p.Status(); status.EntryCount != 0 || status.TotalBytes != 0 {
		t.Fatalf("unexpected status %+v", status)
	}
	if _, err := p.Get(h); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimReplay(t *testing.T) {
	p := testPool(t, 1<<20, 100)
	pub1, priv1 := genKey(t)
	pub2, _ := genKey(t)
	data := frand.Bytes(500)

	h, err := p.Insert(data, 1, []ed25519.PublicKey{pub1, pub2})
	if err != nil {
		t.Fatal(err)
	}

	sig := ed25519.Sign(priv1, h[:])
	if _, err := p.Claim(h, sig); err != nil {
		t.Fatal(err)
	}

	// replaying the same signature matches no unclaimed recipient
	if _, err := p.Claim(h, sig); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("expected ErrNotRecipient, got %v", err)
	}

	// with a single recipient the entry vanishes instead
	h2, err := p.Insert(frand.Bytes(500), 1, []ed25519.PublicKey{pub1})
	if err != nil {
		t.Fatal(err)
	}
	sig2 := ed25519.Sign(priv1, h2[:])
	if _, err := p.Claim(h2, sig2); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Claim(h2, sig2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertDuplicate(t *testing.T) {
	p := testPool(t, 1<<20, 100)
	pub, _ := genKey(t)
	data := frand.Bytes(800)

	if _, err := p.Insert(data, 1, []ed25519.PublicKey{pub}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Insert(data, 1, []ed25519.PublicKey{pub}); !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
	// the duplicate must not count against capacity
	if status := p.Status(); status.EntryCount != 1 || status.TotalBytes != 800 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestInsertErrors(t *testing.T) {
	p := testPool(t, 1000, 100)
	pub, _ := genKey(t)

	if _, err := p.Insert(frand.Bytes(10), 1, nil); !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
	if _, err := p.Insert(nil, 1, []ed25519.PublicKey{pub}); !errors.Is(err, ErrEmptyData) {
		t.Fatalf("expected ErrEmptyData, got %v", err)
	}
	if _, err := p.Insert(frand.Bytes(10), 1, []ed25519.PublicKey{pub[:16]}); !errors.Is(err, ErrInvalidRecipientKey) {
		t.Fatalf("expected ErrInvalidRecipientKey, got %v", err)
	}
	if _, err := p.Insert(frand.Bytes(1001), 1, []ed25519.PublicKey{pub}); !errors.Is(err, ErrPoolFull) {
		t.Fatalf("expected ErrPoolFull, got %v", err)
	}

	// capacity is cumulative across entries
	if _, err := p.Insert(frand.Bytes(600), 1, []ed25519.PublicKey{pub}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Insert(frand.Bytes(500), 1, []ed25519.PublicKey{pub}); !errors.Is(err, ErrPoolFull) {
		t.Fatalf("expected ErrPoolFull, got %v", err)
	}
	if _, err := p.Insert(frand.Bytes(400), 1, []ed25519.PublicKey{pub}); err != nil {
		t.Fatal(err)
	}
}

func TestInsertTooLarge(t *testing.T) {
	p := testPool(t, MaxDataSize*2, 100)
	pub, _ := genKey(t)
	if _, err := p.Insert(make([]byte, MaxDataSize+1), 1, []ed25519.PublicKey{pub}); !errors.Is(err, ErrDataTooLarge) {
		t.Fatalf("expected ErrDataTooLarge, got %v", err)
	}
}

func TestClaimErrors(t *testing.T) {
	p := testPool(t, 1<<20, 100)
	pub, priv := genKey(t)
	_, intruder := genKey(t)

	h, err := p.Insert(frand.Bytes(100), 1, []ed25519.PublicKey{pub})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Claim(content.ContentHash{0xff}, ed25519.Sign(priv, h[:])); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := p.Claim(h, []byte("short")); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if _, err := p.Claim(h, ed25519.Sign(intruder, h[:])); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("expected ErrNotRecipient, got %v", err)
	}
	// signatures cover the content hash, nothing else
	if _, err := p.Claim(h, ed25519.Sign(priv, []byte("other message"))); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("expected ErrNotRecipient, got %v", err)
	}

	// the entry is still claimable after the failed attempts
	if _, err := p.Claim(h, ed25519.Sign(priv, h[:])); err != nil {
		t.Fatal(err)
	}
}

func TestSweep(t *testing.T) {
	p := testPool(t, 1<<20, 10)
	pub, _ := genKey(t)

	h1, err := p.Insert(frand.Bytes(100), 5, []ed25519.PublicKey{pub})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := p.Insert(frand.Bytes(200), 8, []ed25519.PublicKey{pub})
	if err != nil {
		t.Fatal(err)
	}

	if removed := p.Sweep(14); removed != 0 {
		t.Fatalf("expected no entries removed at block 14, got %d", removed)
	}
	if removed := p.Sweep(15); removed != 1 {
		t.Fatalf("expected 1 entry removed at block 15, got %d", removed)
	}
	if p.Has(h1) {
		t.Fatal("expected the older entry to be swept")
	}
	if !p.Has(h2) {
		t.Fatal("expected the newer entry to survive")
	}
	if status := p.Status(); status.EntryCount != 1 || status.TotalBytes != 200 {
		t.Fatalf("unexpected status %+v", status)
	}

	if removed := p.Sweep(100); removed != 1 {
		t.Fatalf("expected 1 entry removed at block 100, got %d", removed)
	}
	if status := p.Status(); status.EntryCount != 0 || status.TotalBytes != 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

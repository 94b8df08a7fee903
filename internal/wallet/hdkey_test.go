package wallet

import (
	"bytes"
	"testing"

	"github.com/tyler-smith/go-bip32"
)

// testSeed returns the seed of the "abandon ... about" vector without passphrase.
func testSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	return seed
}

func TestNewMasterKey(t *testing.T) {
	master, err := NewMasterKey(testSeed(t))
	if err != nil {
		t.Fatalf("NewMasterKey() error: %v", err)
	}
	if priv := master.PrivateKeyBytes(); len(priv) != 32 {
		t.Errorf("private key length = %d, want 32", len(priv))
	}
}

func TestNewMasterKey_InvalidSeedLength(t *testing.T) {
	for _, n := range []int{0, 16, 32, 65} {
		if _, err := NewMasterKey(make([]byte, n)); err == nil {
			t.Errorf("NewMasterKey(%d bytes) should fail", n)
		}
	}
}

func TestDerivePath_MatchesSequential(t *testing.T) {
	master, _ := NewMasterKey(testSeed(t))

	c1, _ := master.DeriveChild(PurposeBIP44)
	c2, _ := c1.DeriveChild(CoinTypeEVM)

	combined, err := master.DerivePath(PurposeBIP44, CoinTypeEVM)
	if err != nil {
		t.Fatalf("DerivePath() error: %v", err)
	}
	if !bytes.Equal(c2.PrivateKeyBytes(), combined.PrivateKeyBytes()) {
		t.Error("DerivePath should equal sequential DeriveChild")
	}
}

func TestDeriveAccountKey(t *testing.T) {
	master, _ := NewMasterKey(testSeed(t))

	evm, err := master.DeriveAccountKey(CoinTypeEVM, 0)
	if err != nil {
		t.Fatalf("DeriveAccountKey() error: %v", err)
	}

	tron, _ := master.DeriveAccountKey(CoinTypeTron, 0)
	if bytes.Equal(evm.PrivateKeyBytes(), tron.PrivateKeyBytes()) {
		t.Error("EVM and TRON coin types should produce different keys")
	}

	next, _ := master.DeriveAccountKey(CoinTypeEVM, 1)
	if bytes.Equal(evm.PrivateKeyBytes(), next.PrivateKeyBytes()) {
		t.Error("different indices should produce different keys")
	}

	if _, err := master.DeriveAccountKey(CoinTypeEVM, bip32.FirstHardenedChild); err == nil {
		t.Error("hardened-range index should be rejected")
	}
}

func TestDeriveAccountKey_MatchesPath(t *testing.T) {
	master, _ := NewMasterKey(testSeed(t))
	h := bip32.FirstHardenedChild

	viaPath, err := master.DerivePath(h+44, h+195, h, 0, 7)
	if err != nil {
		t.Fatalf("DerivePath() error: %v", err)
	}
	direct, _ := master.DeriveAccountKey(CoinTypeTron, 7)

	if !bytes.Equal(viaPath.PrivateKeyBytes(), direct.PrivateKeyBytes()) {
		t.Error("explicit path and DeriveAccountKey disagree")
	}
}

func TestFormatPath(t *testing.T) {
	h := bip32.FirstHardenedChild
	if got := FormatPath([]uint32{h + 44, h + 60, h, 0, 12}); got != "m/44'/60'/0'/0/12" {
		t.Errorf("FormatPath() = %s", got)
	}
	if got := FormatPath(nil); got != "m" {
		t.Errorf("FormatPath(nil) = %s", got)
	}
	if got := EVMPath(0); got != "m/44'/60'/0'/0/0" {
		t.Errorf("EVMPath(0) = %s", got)
	}
	if got := TronPath(3); got != "m/44'/195'/0'/0/3" {
		t.Errorf("TronPath(3) = %s", got)
	}
}

func TestHDKey_Zero(t *testing.T) {
	master, _ := NewMasterKey(testSeed(t))
	key, _ := master.DeriveAccountKey(CoinTypeEVM, 0)
	key.Zero()
	if !bytes.Equal(key.PrivateKeyBytes(), make([]byte, 32)) {
		t.Error("private key should be zero after Zero()")
	}

	var nilKey *HDKey
	nilKey.Zero()
}

func TestSigner(t *testing.T) {
	master, _ := NewMasterKey(testSeed(t))
	key, _ := master.DeriveAccountKey(CoinTypeEVM, 0)

	signer, err := key.Signer()
	if err != nil {
		t.Fatalf("Signer() error: %v", err)
	}
	if !bytes.Equal(signer.Serialize(), key.PrivateKeyBytes()) {
		t.Error("signer scalar should match derived key")
	}
	if len(signer.PublicKey()) != 33 {
		t.Errorf("compressed public key length = %d, want 33", len(signer.PublicKey()))
	}
}

package wallet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Klingon-tech/nova-wallet/pkg/crypto"
	"github.com/tyler-smith/go-bip32"
)

// BIP-44 derivation path constants.
// Full path: m/44'/CoinType'/account'/change/index
const (
	// PurposeBIP44 is the BIP-44 purpose field (hardened).
	PurposeBIP44 = bip32.FirstHardenedChild + 44

	// CoinTypeEVM is SLIP-44 coin type 60, shared by every EVM network.
	CoinTypeEVM = bip32.FirstHardenedChild + 60

	// CoinTypeTron is SLIP-44 coin type 195.
	CoinTypeTron = bip32.FirstHardenedChild + 195

	// AccountDefault is the single BIP-44 account the wallet uses (hardened).
	AccountDefault = bip32.FirstHardenedChild + 0

	// ChangeExternal is for receiving addresses.
	ChangeExternal = 0
)

// HDKey represents a hierarchical deterministic key (BIP-32).
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master HD key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DeriveChild derives a child key at the given index.
// For hardened derivation, add bip32.FirstHardenedChild to the index.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &HDKey{key: child}, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// DeriveAccountKey derives the key at m/44'/coinType'/0'/0/index.
func (k *HDKey) DeriveAccountKey(coinType, index uint32) (*HDKey, error) {
	if index >= bip32.FirstHardenedChild {
		return nil, fmt.Errorf("address index %d out of range", index)
	}
	return k.DerivePath(PurposeBIP44, coinType, AccountDefault, ChangeExternal, index)
}

// PrivateKeyBytes returns the raw private key left-padded to 32 bytes.
// Returns nil if this is a public-only key.
func (k *HDKey) PrivateKeyBytes() []byte {
	if !k.key.IsPrivate {
		return nil
	}
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	out := make([]byte, crypto.PrivateKeySize)
	copy(out[crypto.PrivateKeySize-len(raw):], raw)
	return out
}

// Signer returns the secp256k1 private key for this node.
func (k *HDKey) Signer() (*crypto.PrivateKey, error) {
	priv := k.PrivateKeyBytes()
	if priv == nil {
		return nil, fmt.Errorf("cannot create signer from public key")
	}
	defer zeroBytes(priv)
	return crypto.PrivateKeyFromBytes(priv)
}

// Zero clears the private key material held by this node.
func (k *HDKey) Zero() {
	if k == nil || k.key == nil {
		return
	}
	zeroBytes(k.key.Key)
	zeroBytes(k.key.ChainCode)
}

// FormatPath renders indices in m/44'/60'/0'/0/0 form.
func FormatPath(indices []uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range indices {
		b.WriteString("/")
		if idx >= bip32.FirstHardenedChild {
			b.WriteString(strconv.FormatUint(uint64(idx-bip32.FirstHardenedChild), 10))
			b.WriteString("'")
			continue
		}
		b.WriteString(strconv.FormatUint(uint64(idx), 10))
	}
	return b.String()
}

// EVMPath returns the derivation path of the EVM key for index.
func EVMPath(index uint32) string {
	return FormatPath([]uint32{PurposeBIP44, CoinTypeEVM, AccountDefault, ChangeExternal, index})
}

// TronPath returns the derivation path of the TRON key for index.
func TronPath(index uint32) string {
	return FormatPath([]uint32{PurposeBIP44, CoinTypeTron, AccountDefault, ChangeExternal, index})
}

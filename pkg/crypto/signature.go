package crypto

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	decredecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PrivateKeySize is the length of a raw secp256k1 scalar.
const PrivateKeySize = 32

// RecoverableSignatureSize is the length of an r||s||v signature.
const RecoverableSignatureSize = 65

// PrivateKey wraps a secp256k1 private key. Both supported chain families
// sign with secp256k1; the EVM path hands the scalar to go-ethereum, the TRON
// path signs with SignRecoverable.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", PrivateKeySize, len(b))
	}
	key := secp256k1.PrivKeyFromBytes(b)
	if key.Key.IsZero() {
		return nil, fmt.Errorf("private key is zero")
	}
	return &PrivateKey{key: key}, nil
}

// SignRecoverable signs a 32-byte hash and returns r||s||v where
// v = 27 + recovery id.
func (pk *PrivateKey) SignRecoverable(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	// SignCompact lays out header||r||s with header = 27 + recid.
	compact := decredecdsa.SignCompact(pk.key, hash, false)
	out := make([]byte, 0, RecoverableSignatureSize)
	out = append(out, compact[1:]...)
	out = append(out, compact[0])
	return out, nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// UncompressedPublicKey returns the 65-byte 0x04-prefixed public key.
func (pk *PrivateKey) UncompressedPublicKey() []byte {
	return pk.key.PubKey().SerializeUncompressed()
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// ToECDSA converts the key for use with go-ethereum signers.
// The returned key shares no memory with pk.
func (pk *PrivateKey) ToECDSA() (*ecdsa.PrivateKey, error) {
	raw := pk.key.Serialize()
	defer zero(raw)
	return ethcrypto.ToECDSA(raw)
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	if pk == nil || pk.key == nil {
		return
	}
	pk.key.Zero()
}

// RecoverPublicKey returns the uncompressed public key that produced an
// r||s||v signature over hash.
func RecoverPublicKey(hash, signature []byte) ([]byte, error) {
	if len(signature) != RecoverableSignatureSize {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", RecoverableSignatureSize, len(signature))
	}
	compact := make([]byte, 0, RecoverableSignatureSize)
	compact = append(compact, signature[64])
	compact = append(compact, signature[:64]...)
	pub, _, err := decredecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, fmt.Errorf("recover: %w", err)
	}
	return pub.SerializeUncompressed(), nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

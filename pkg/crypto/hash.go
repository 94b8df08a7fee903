// Package crypto provides the hashing and secp256k1 primitives shared by
// the EVM and TRON chain families.
package crypto

import (
	"crypto/sha256"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Keccak256 computes the legacy Keccak-256 hash used by EVM and TRON addresses.
func Keccak256(data ...[]byte) []byte {
	return ethcrypto.Keccak256(data...)
}

// SHA256 computes a SHA-256 hash.
func SHA256(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// DoubleSHA256 computes SHA256(SHA256(data)). Used for Base58Check checksums.
func DoubleSHA256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// PubKeyHash returns the last 20 bytes of Keccak-256 over an uncompressed
// public key without its 0x04 prefix. This is the account identifier shared
// by EVM and TRON; the two families differ only in how it is encoded.
func PubKeyHash(uncompressed []byte) [20]byte {
	var out [20]byte
	if len(uncompressed) == 65 {
		uncompressed = uncompressed[1:]
	}
	h := Keccak256(uncompressed)
	copy(out[:], h[12:])
	return out
}

// Package wallet implements the secret-handling core: BIP-39 mnemonics,
// password-encrypted vaults, BIP-32/44 key derivation for the EVM and TRON
// chain families, and persistence of the wallet's durable records.
package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// Supported mnemonic entropy sizes.
const (
	EntropyBits128 = 128 // 12 words
	EntropyBits256 = 256 // 24 words

	DefaultEntropyBits = EntropyBits128
)

var (
	// ErrInvalidStrength is returned for entropy sizes other than 128 or 256.
	ErrInvalidStrength = errors.New("mnemonic strength must be 128 or 256 bits")

	// ErrInvalidMnemonic is returned when a mnemonic fails wordlist or checksum validation.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
)

// GenerateMnemonic creates a new BIP-39 mnemonic from bits of entropy read
// from crypto/rand.
func GenerateMnemonic(bits int) (string, error) {
	if bits != EntropyBits128 && bits != EntropyBits256 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidStrength, bits)
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	defer zeroBytes(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic is valid per BIP-39
// (correct word count, valid words, valid checksum).
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// NormalizeMnemonic lowercases the phrase and collapses runs of whitespace
// so pasted input validates the same as typed input.
func NormalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// Vault format constants.
const (
	VaultVersion = 1

	SaltSize = 16
	IVSize   = 16 // AES-GCM with a 128-bit nonce
	KeySize  = 32 // AES-256
)

// Key-derivation functions.
const (
	KDFPBKDF2   = "pbkdf2-sha256"
	KDFArgon2id = "argon2id"
)

// Work-factor bounds. The maximums stop a tampered vault from making
// Decrypt allocate or spin without limit.
const (
	DefaultPBKDF2Iterations = 210_000
	MinPBKDF2Iterations     = 100_000
	MaxPBKDF2Iterations     = 10_000_000

	MinArgon2Memory = 8 * 1024    // KiB
	MaxArgon2Memory = 1024 * 1024 // KiB (1 GiB)
)

// ErrAuthFailed is the only error Decrypt returns. Wrong password, corrupted
// ciphertext, and malformed vaults are indistinguishable to the caller.
var ErrAuthFailed = errors.New("authentication failed")

// ErrWeakParams is returned by Encrypt when the work factor is below the minimum.
var ErrWeakParams = errors.New("key derivation parameters below minimum work factor")

// EncryptionParams selects the KDF and its work factor.
type EncryptionParams struct {
	KDF         string
	Iterations  uint32 // PBKDF2 rounds or Argon2 passes
	Memory      uint32 // Argon2 only, in KiB
	Parallelism uint8  // Argon2 only
}

// DefaultParams returns PBKDF2-HMAC-SHA256 with 210,000 iterations.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		KDF:        KDFPBKDF2,
		Iterations: DefaultPBKDF2Iterations,
	}
}

// Argon2Params returns recommended Argon2id parameters.
func Argon2Params() EncryptionParams {
	return EncryptionParams{
		KDF:         KDFArgon2id,
		Iterations:  3,
		Memory:      64 * 1024, // 64 MB
		Parallelism: 4,
	}
}

// Validate checks the parameters meet the minimum work factor.
func (p EncryptionParams) Validate() error {
	switch p.KDF {
	case KDFPBKDF2:
		if p.Iterations < MinPBKDF2Iterations {
			return fmt.Errorf("%w: pbkdf2 iterations %d < %d", ErrWeakParams, p.Iterations, MinPBKDF2Iterations)
		}
		if p.Iterations > MaxPBKDF2Iterations {
			return fmt.Errorf("pbkdf2 iterations %d exceed %d", p.Iterations, MaxPBKDF2Iterations)
		}
	case KDFArgon2id:
		if p.Iterations == 0 || p.Parallelism == 0 {
			return fmt.Errorf("%w: argon2id passes and parallelism must be positive", ErrWeakParams)
		}
		if p.Memory < MinArgon2Memory {
			return fmt.Errorf("%w: argon2id memory %d KiB < %d KiB", ErrWeakParams, p.Memory, MinArgon2Memory)
		}
		if p.Memory > MaxArgon2Memory {
			return fmt.Errorf("argon2id memory %d KiB exceeds %d KiB", p.Memory, MaxArgon2Memory)
		}
	default:
		return fmt.Errorf("unknown kdf %q", p.KDF)
	}
	return nil
}

// Vault is the persisted, encrypted form of a mnemonic.
type Vault struct {
	Version     int    `json:"version"`
	ID          string `json:"id"`
	KDF         string `json:"kdf"`
	Iterations  uint32 `json:"iterations"`
	Memory      uint32 `json:"memory,omitempty"`
	Parallelism uint8  `json:"parallelism,omitempty"`
	Salt        []byte `json:"salt"`
	IV          []byte `json:"iv"`
	Ciphertext  []byte `json:"ciphertext"`
}

// Params returns the KDF parameters recorded in the vault.
func (v *Vault) Params() EncryptionParams {
	return EncryptionParams{
		KDF:         v.KDF,
		Iterations:  v.Iterations,
		Memory:      v.Memory,
		Parallelism: v.Parallelism,
	}
}

// Marshal encodes the vault as JSON.
func (v *Vault) Marshal() ([]byte, error) {
	return json.Marshal(v)
}

// UnmarshalVault decodes a vault and checks its version.
func UnmarshalVault(data []byte) (*Vault, error) {
	var v Vault
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vault: %w", err)
	}
	if v.Version != VaultVersion {
		return nil, fmt.Errorf("unsupported vault version: %d", v.Version)
	}
	return &v, nil
}

func deriveKey(password, salt []byte, params EncryptionParams) []byte {
	if params.KDF == KDFArgon2id {
		return argon2.IDKey(password, salt, params.Iterations, params.Memory, params.Parallelism, KeySize)
	}
	return pbkdf2.Key(password, salt, int(params.Iterations), KeySize, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, IVSize)
}

// Encrypt seals mnemonic under a key derived from password. A fresh salt and
// IV are drawn for every call. The vault ID is bound as additional data.
func Encrypt(mnemonic string, password []byte, params EncryptionParams) (*Vault, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	key := deriveKey(password, salt, params)
	defer zeroBytes(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	id := uuid.New().String()
	plaintext := []byte(mnemonic)
	defer zeroBytes(plaintext)

	return &Vault{
		Version:     VaultVersion,
		ID:          id,
		KDF:         params.KDF,
		Iterations:  params.Iterations,
		Memory:      params.Memory,
		Parallelism: params.Parallelism,
		Salt:        salt,
		IV:          iv,
		Ciphertext:  aead.Seal(nil, iv, plaintext, []byte(id)),
	}, nil
}

// Decrypt opens the vault with password. It returns the mnemonic only when
// authentication succeeds and the plaintext is non-empty UTF-8; every other
// outcome is ErrAuthFailed.
func Decrypt(v *Vault, password []byte) (string, error) {
	if v == nil || v.Version != VaultVersion ||
		len(v.Salt) != SaltSize || len(v.IV) != IVSize {
		return "", ErrAuthFailed
	}
	params := v.Params()
	if err := params.Validate(); err != nil {
		return "", ErrAuthFailed
	}

	key := deriveKey(password, v.Salt, params)
	defer zeroBytes(key)

	aead, err := newGCM(key)
	if err != nil {
		return "", ErrAuthFailed
	}
	plaintext, err := aead.Open(nil, v.IV, v.Ciphertext, []byte(v.ID))
	if err != nil {
		return "", ErrAuthFailed
	}
	defer zeroBytes(plaintext)

	if len(plaintext) == 0 || !utf8.Valid(plaintext) {
		return "", ErrAuthFailed
	}
	return string(plaintext), nil
}

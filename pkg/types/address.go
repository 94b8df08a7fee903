package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Klingon-tech/nova-wallet/pkg/crypto"
	"github.com/mr-tron/base58"
)

// TronAddressSize is the length of a TRON address in bytes (prefix + hash).
const TronAddressSize = 21

// TronAddressPrefix is the mainnet version byte of every TRON address.
const TronAddressPrefix = 0x41

// tronChecksumSize is the Base58Check checksum length.
const tronChecksumSize = 4

// TronAddress is a 0x41-prefixed TRON account identifier.
// Its canonical text form is Base58Check ("T...").
type TronAddress [TronAddressSize]byte

// TronAddressFromHash builds a TRON address from the 20-byte Keccak
// public-key hash shared with EVM.
func TronAddressFromHash(hash [20]byte) TronAddress {
	var a TronAddress
	a[0] = TronAddressPrefix
	copy(a[1:], hash[:])
	return a
}

// IsZero returns true if the address has no payload.
func (a TronAddress) IsZero() bool {
	return a == TronAddress{}
}

// String returns the Base58Check encoding.
func (a TronAddress) String() string {
	payload := make([]byte, 0, TronAddressSize+tronChecksumSize)
	payload = append(payload, a[:]...)
	payload = append(payload, crypto.DoubleSHA256(a[:])[:tronChecksumSize]...)
	return base58.Encode(payload)
}

// Hex returns the 42-character hex form including the 41 prefix.
func (a TronAddress) Hex() string {
	return hex.EncodeToString(a[:])
}

// MarshalJSON encodes the address as Base58Check.
func (a TronAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts Base58Check or 41-prefixed hex.
func (a *TronAddress) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = TronAddress{}
		return nil
	}
	parsed, err := ParseTronAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseTronAddress parses a Base58Check ("T...") or 41-prefixed hex address.
func ParseTronAddress(s string) (TronAddress, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TronAddress{}, fmt.Errorf("empty address")
	}
	if len(s) == 2*TronAddressSize && strings.HasPrefix(s, "41") {
		return TronHexToAddress(s)
	}
	return decodeTronBase58(s)
}

// TronHexToAddress converts a 41-prefixed hex string to a TronAddress.
func TronHexToAddress(s string) (TronAddress, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return TronAddress{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != TronAddressSize {
		return TronAddress{}, fmt.Errorf("address must be %d bytes, got %d", TronAddressSize, len(b))
	}
	if b[0] != TronAddressPrefix {
		return TronAddress{}, fmt.Errorf("address prefix 0x%02x, want 0x%02x", b[0], TronAddressPrefix)
	}
	var a TronAddress
	copy(a[:], b)
	return a, nil
}

// IsTronAddress reports whether s is a well-formed Base58Check TRON address.
// Hex forms are rejected: user input is always the "T..." form.
func IsTronAddress(s string) bool {
	_, err := decodeTronBase58(s)
	return err == nil
}

func decodeTronBase58(s string) (TronAddress, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return TronAddress{}, fmt.Errorf("invalid base58: %w", err)
	}
	if len(raw) != TronAddressSize+tronChecksumSize {
		return TronAddress{}, fmt.Errorf("decoded address must be %d bytes, got %d", TronAddressSize+tronChecksumSize, len(raw))
	}
	payload, checksum := raw[:TronAddressSize], raw[TronAddressSize:]
	if !bytes.Equal(crypto.DoubleSHA256(payload)[:tronChecksumSize], checksum) {
		return TronAddress{}, fmt.Errorf("checksum mismatch")
	}
	if payload[0] != TronAddressPrefix {
		return TronAddress{}, fmt.Errorf("address prefix 0x%02x, want 0x%02x", payload[0], TronAddressPrefix)
	}
	var a TronAddress
	copy(a[:], payload)
	return a, nil
}

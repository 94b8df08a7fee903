package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Klingon-tech/nova-wallet/pkg/crypto"
	"github.com/mr-tron/base58"
)

func TestTronAddress_IsZero(t *testing.T) {
	var zero TronAddress
	if !zero.IsZero() {
		t.Error("zero-value TronAddress should be zero")
	}

	a := TronAddressFromHash([20]byte{})
	if a.IsZero() {
		t.Error("prefixed address should not be zero")
	}
}

func TestTronAddress_KnownVectors(t *testing.T) {
	tests := []struct {
		hex    string
		base58 string
	}{
		{"410000000000000000000000000000000000000000", "T9yD14Nj9j7xAB4dbGeiX9h8unkKHxuWwb"},
		{"41a614f803b6fd780986a42c78ec9c7f77e6ded13c", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"},
	}

	for _, tt := range tests {
		t.Run(tt.base58, func(t *testing.T) {
			a, err := TronHexToAddress(tt.hex)
			if err != nil {
				t.Fatalf("TronHexToAddress() error: %v", err)
			}
			if got := a.String(); got != tt.base58 {
				t.Errorf("String() = %s, want %s", got, tt.base58)
			}

			parsed, err := ParseTronAddress(tt.base58)
			if err != nil {
				t.Fatalf("ParseTronAddress() error: %v", err)
			}
			if parsed.Hex() != tt.hex {
				t.Errorf("Hex() = %s, want %s", parsed.Hex(), tt.hex)
			}
		})
	}
}

func TestTronAddress_RoundTrip(t *testing.T) {
	var hash [20]byte
	for i := range hash {
		hash[i] = byte(i * 7)
	}
	a := TronAddressFromHash(hash)
	s := a.String()

	if !strings.HasPrefix(s, "T") || len(s) != 34 {
		t.Errorf("String() = %s, want 34 chars starting with T", s)
	}
	if !IsTronAddress(s) {
		t.Error("IsTronAddress should accept encoded address")
	}

	parsed, err := ParseTronAddress(s)
	if err != nil {
		t.Fatalf("ParseTronAddress() error: %v", err)
	}
	if parsed != a {
		t.Errorf("round trip mismatch: got %x, want %x", parsed, a)
	}
}

func TestParseTronAddress_Hex(t *testing.T) {
	a := TronAddressFromHash([20]byte{0xab})
	parsed, err := ParseTronAddress(a.Hex())
	if err != nil {
		t.Fatalf("ParseTronAddress(hex) error: %v", err)
	}
	if parsed != a {
		t.Error("hex parse mismatch")
	}
	if _, err := TronHexToAddress("0x" + a.Hex()); err != nil {
		t.Errorf("TronHexToAddress with 0x prefix error: %v", err)
	}
}

func TestParseTronAddress_Invalid(t *testing.T) {
	valid := TronAddressFromHash([20]byte{1, 2, 3}).String()

	// Flip the last character to break the checksum.
	last := valid[len(valid)-1]
	flipped := byte('2')
	if last == '2' {
		flipped = '3'
	}
	badChecksum := valid[:len(valid)-1] + string(flipped)

	// Correct checksum over a non-TRON version byte.
	payload := make([]byte, 21)
	payload[0] = 0x00
	raw := append(payload, crypto.DoubleSHA256(payload)[:4]...)
	wrongPrefix := base58.Encode(raw)

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"garbage", "not-an-address"},
		{"evm", "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"},
		{"bad checksum", badChecksum},
		{"wrong prefix", wrongPrefix},
		{"truncated", valid[:20]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTronAddress(tt.input); err == nil {
				t.Errorf("ParseTronAddress(%q) should fail", tt.input)
			}
			if IsTronAddress(tt.input) {
				t.Errorf("IsTronAddress(%q) should be false", tt.input)
			}
		})
	}
}

func TestIsTronAddress_RejectsHex(t *testing.T) {
	a := TronAddressFromHash([20]byte{9})
	if IsTronAddress(a.Hex()) {
		t.Error("IsTronAddress should reject hex form")
	}
}

func TestTronAddress_JSON(t *testing.T) {
	a := TronAddressFromHash([20]byte{0xde, 0xad})
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(data) != `"`+a.String()+`"` {
		t.Errorf("Marshal = %s, want quoted base58", data)
	}

	var decoded TronAddress
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if decoded != a {
		t.Error("JSON round trip mismatch")
	}

	var fromHex TronAddress
	if err := json.Unmarshal([]byte(`"`+a.Hex()+`"`), &fromHex); err != nil {
		t.Fatalf("Unmarshal hex error: %v", err)
	}
	if fromHex != a {
		t.Error("hex JSON mismatch")
	}
}

package wallet

import (
	"errors"
	"strings"
	"testing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateMnemonic(t *testing.T) {
	tests := []struct {
		bits  int
		words int
	}{
		{EntropyBits128, 12},
		{EntropyBits256, 24},
	}

	for _, tt := range tests {
		mnemonic, err := GenerateMnemonic(tt.bits)
		if err != nil {
			t.Fatalf("GenerateMnemonic(%d) error: %v", tt.bits, err)
		}
		if n := len(strings.Fields(mnemonic)); n != tt.words {
			t.Errorf("GenerateMnemonic(%d) word count = %d, want %d", tt.bits, n, tt.words)
		}
		if !ValidateMnemonic(mnemonic) {
			t.Errorf("GenerateMnemonic(%d) output should validate", tt.bits)
		}
	}
}

func TestGenerateMnemonic_InvalidStrength(t *testing.T) {
	for _, bits := range []int{0, 64, 160, 192, 512} {
		if _, err := GenerateMnemonic(bits); !errors.Is(err, ErrInvalidStrength) {
			t.Errorf("GenerateMnemonic(%d) error = %v, want ErrInvalidStrength", bits, err)
		}
	}
}

func TestGenerateMnemonic_Unique(t *testing.T) {
	m1, err := GenerateMnemonic(DefaultEntropyBits)
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	m2, err := GenerateMnemonic(DefaultEntropyBits)
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	if m1 == m2 {
		t.Error("two generated mnemonics should not be identical")
	}
}

func TestValidateMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
		valid    bool
	}{
		{
			name:     "valid 24-word BIP-39",
			mnemonic: "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art",
			valid:    true,
		},
		{
			name:     "valid 12-word BIP-39",
			mnemonic: testMnemonic,
			valid:    true,
		},
		{
			name:     "empty string",
			mnemonic: "",
			valid:    false,
		},
		{
			name:     "random words",
			mnemonic: "not a valid mnemonic phrase at all",
			valid:    false,
		},
		{
			name:     "altered final word",
			mnemonic: "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon",
			valid:    false,
		},
		{
			name:     "wrong word count",
			mnemonic: "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
			valid:    false,
		},
		{
			name:     "single word",
			mnemonic: "abandon",
			valid:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMnemonic(tt.mnemonic); got != tt.valid {
				t.Errorf("ValidateMnemonic() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestValidateMnemonic_AlteredGenerated(t *testing.T) {
	mnemonic, err := GenerateMnemonic(EntropyBits128)
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	words := strings.Fields(mnemonic)

	// A replacement word keeps the 4-bit checksum valid 1 time in 16.
	rejected := false
	for _, w := range []string{"zoo", "abandon", "ability", "able", "about", "above"} {
		if w == words[len(words)-1] {
			continue
		}
		altered := strings.Join(append(words[:len(words)-1:len(words)-1], w), " ")
		if !ValidateMnemonic(altered) {
			rejected = true
			break
		}
	}
	if !rejected {
		t.Error("no altered final word was rejected")
	}
}

func TestNormalizeMnemonic(t *testing.T) {
	in := "  Abandon  abandon\tabandon abandon abandon abandon abandon abandon abandon abandon abandon ABOUT \n"
	if got := NormalizeMnemonic(in); got != testMnemonic {
		t.Errorf("NormalizeMnemonic() = %q, want %q", got, testMnemonic)
	}
}

package wallet

import (
	"errors"
	"strings"
	"testing"

	"github.com/Klingon-tech/nova-wallet/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestDeriveAccount_KnownEVMVector(t *testing.T) {
	acct, err := DeriveAccount(testMnemonic, 0)
	if err != nil {
		t.Fatalf("DeriveAccount() error: %v", err)
	}

	want := "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	if acct.EVMAddress != want {
		t.Errorf("EVMAddress = %s, want %s", acct.EVMAddress, want)
	}
	if acct.Name != "Account 1" {
		t.Errorf("Name = %q, want Account 1", acct.Name)
	}
	if acct.Index != 0 {
		t.Errorf("Index = %d, want 0", acct.Index)
	}
}

func TestDeriveAccount_TronAddressForm(t *testing.T) {
	acct, err := DeriveAccount(testMnemonic, 0)
	if err != nil {
		t.Fatalf("DeriveAccount() error: %v", err)
	}

	if !strings.HasPrefix(acct.TronAddress, "T") || len(acct.TronAddress) != 34 {
		t.Errorf("TronAddress = %s, want 34 chars starting with T", acct.TronAddress)
	}
	if !types.IsTronAddress(acct.TronAddress) {
		t.Error("TronAddress should pass Base58Check validation")
	}
	if common.IsHexAddress(acct.TronAddress) {
		t.Error("TRON address must not look like an EVM address")
	}
}

func TestDeriveAccount_Deterministic(t *testing.T) {
	for _, idx := range []uint32{0, 1, 5} {
		a, err := DeriveAccount(testMnemonic, idx)
		if err != nil {
			t.Fatalf("DeriveAccount(%d) error: %v", idx, err)
		}
		b, err := DeriveAccount(testMnemonic, idx)
		if err != nil {
			t.Fatalf("DeriveAccount(%d) error: %v", idx, err)
		}
		if a.EVMAddress != b.EVMAddress || a.TronAddress != b.TronAddress {
			t.Errorf("index %d: derivation not deterministic", idx)
		}
	}
}

func TestDeriveAccount_DistinctIndices(t *testing.T) {
	seen := map[string]uint32{}
	for idx := uint32(0); idx < 5; idx++ {
		a, err := DeriveAccount(testMnemonic, idx)
		if err != nil {
			t.Fatalf("DeriveAccount(%d) error: %v", idx, err)
		}
		for _, addr := range []string{a.EVMAddress, a.TronAddress} {
			if prev, dup := seen[addr]; dup {
				t.Fatalf("address %s repeated for indices %d and %d", addr, prev, idx)
			}
			seen[addr] = idx
		}
	}
}

func TestDeriveAccount_InvalidMnemonic(t *testing.T) {
	if _, err := DeriveAccount("abandon abandon", 0); !errors.Is(err, ErrInvalidMnemonic) {
		t.Errorf("DeriveAccount() error = %v, want ErrInvalidMnemonic", err)
	}
}

func TestDeriveKeys_MatchAddresses(t *testing.T) {
	seed := testSeed(t)
	before := append([]byte(nil), seed...)

	keys, err := DeriveKeys(seed, 2)
	if err != nil {
		t.Fatalf("DeriveKeys() error: %v", err)
	}
	defer keys.Zero()

	if string(seed) != string(before) {
		t.Error("DeriveKeys must not modify the seed")
	}

	ek, err := keys.EVM.ToECDSA()
	if err != nil {
		t.Fatalf("ToECDSA() error: %v", err)
	}
	if got := ethcrypto.PubkeyToAddress(ek.PublicKey); got != keys.EVMAddress {
		t.Errorf("go-ethereum address %s != derived %s", got.Hex(), keys.EVMAddress.Hex())
	}
	if keys.Key(types.FamilyTron) != keys.Tron || keys.Key(types.FamilyEVM) != keys.EVM {
		t.Error("Key(family) returned the wrong key")
	}

	acct := keys.Account()
	if acct.Name != "Account 3" {
		t.Errorf("Name = %q, want Account 3", acct.Name)
	}
	if acct.Address(types.FamilyTron) != keys.TronAddress.String() {
		t.Error("Address(tron) mismatch")
	}
}

func TestAccountKeys_Zero(t *testing.T) {
	keys, err := DeriveAccountKeys(testMnemonic, 0)
	if err != nil {
		t.Fatalf("DeriveAccountKeys() error: %v", err)
	}
	keys.Zero()
	zero := make([]byte, 32)
	if string(keys.EVM.Serialize()) != string(zero) || string(keys.Tron.Serialize()) != string(zero) {
		t.Error("keys should be zero after Zero()")
	}

	var nilKeys *AccountKeys
	nilKeys.Zero()
}

func TestAccount_CloneAndBalance(t *testing.T) {
	a := Account{Index: 0, Balances: map[string]string{"ethereum": "1.5"}}
	if a.Balance("ethereum") != "1.5" || a.Balance("tron") != "0" {
		t.Error("Balance() lookup mismatch")
	}

	c := a.Clone()
	c.Balances["ethereum"] = "9"
	if a.Balances["ethereum"] != "1.5" {
		t.Error("Clone should not share the balance map")
	}

	empty := Account{}.Clone()
	if empty.Balances == nil {
		t.Error("Clone should allocate a balance map")
	}
}

package wallet

import (
	"errors"
	"fmt"
	"maps"

	"github.com/Klingon-tech/nova-wallet/pkg/crypto"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// ErrDerivation reports an internal failure deriving keys from a valid seed.
var ErrDerivation = errors.New("key derivation failed")

// Account is a derived identity: one address per chain family plus a
// per-network balance cache. It holds no secret material.
type Account struct {
	Index       uint32            `json:"index"`
	Name        string            `json:"name"`
	EVMAddress  string            `json:"evm_address"`  // EIP-55 checksummed hex
	TronAddress string            `json:"tron_address"` // Base58Check
	Balances    map[string]string `json:"balances"`     // network ID -> decimal amount
}

// AccountName returns the display name for index ("Account 1" for index 0).
func AccountName(index uint32) string {
	return fmt.Sprintf("Account %d", index+1)
}

// Address returns the account's address for a chain family.
func (a Account) Address(family types.Family) string {
	if family == types.FamilyTron {
		return a.TronAddress
	}
	return a.EVMAddress
}

// Balance returns the cached balance for a network, "0" if unknown.
func (a Account) Balance(networkID string) string {
	if b, ok := a.Balances[networkID]; ok {
		return b
	}
	return "0"
}

// Clone returns a copy whose balance map is not shared.
func (a Account) Clone() Account {
	out := a
	out.Balances = maps.Clone(a.Balances)
	if out.Balances == nil {
		out.Balances = map[string]string{}
	}
	return out
}

// AccountKeys holds the signing keys derived for one account index.
// Call Zero as soon as the keys are no longer needed.
type AccountKeys struct {
	Index       uint32
	EVM         *crypto.PrivateKey
	Tron        *crypto.PrivateKey
	EVMAddress  common.Address
	TronAddress types.TronAddress
}

// Key returns the signing key for a chain family.
func (k *AccountKeys) Key(family types.Family) *crypto.PrivateKey {
	if family == types.FamilyTron {
		return k.Tron
	}
	return k.EVM
}

// Account returns the public view of the keys.
func (k *AccountKeys) Account() Account {
	return Account{
		Index:       k.Index,
		Name:        AccountName(k.Index),
		EVMAddress:  k.EVMAddress.Hex(),
		TronAddress: k.TronAddress.String(),
		Balances:    map[string]string{},
	}
}

// Zero clears both private keys.
func (k *AccountKeys) Zero() {
	if k == nil {
		return
	}
	k.EVM.Zero()
	k.Tron.Zero()
}

// EVMAddress computes the EVM address of a key: the last 20 bytes of the
// Keccak-256 hash of the uncompressed public key.
func EVMAddress(key *crypto.PrivateKey) common.Address {
	hash := crypto.PubKeyHash(key.UncompressedPublicKey())
	return common.BytesToAddress(hash[:])
}

// TronAddress computes the TRON address of a key: the EVM hash with the
// 0x41 network prefix.
func TronAddress(key *crypto.PrivateKey) types.TronAddress {
	return types.TronAddressFromHash(crypto.PubKeyHash(key.UncompressedPublicKey()))
}

// DeriveKeys derives both chain-family keys for index from a BIP-39 seed.
// The seed is not modified or retained.
func DeriveKeys(seed []byte, index uint32) (*AccountKeys, error) {
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivation, err)
	}
	defer master.Zero()

	evm, err := deriveSigner(master, CoinTypeEVM, index)
	if err != nil {
		return nil, err
	}
	tron, err := deriveSigner(master, CoinTypeTron, index)
	if err != nil {
		evm.Zero()
		return nil, err
	}

	return &AccountKeys{
		Index:       index,
		EVM:         evm,
		Tron:        tron,
		EVMAddress:  EVMAddress(evm),
		TronAddress: TronAddress(tron),
	}, nil
}

func deriveSigner(master *HDKey, coinType, index uint32) (*crypto.PrivateKey, error) {
	node, err := master.DeriveAccountKey(coinType, index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivation, err)
	}
	defer node.Zero()

	key, err := node.Signer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivation, err)
	}
	return key, nil
}

// DeriveAccountKeys derives the keys for index straight from a mnemonic.
func DeriveAccountKeys(mnemonic string, index uint32) (*AccountKeys, error) {
	seed, err := SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, err
	}
	defer zeroBytes(seed)
	return DeriveKeys(seed, index)
}

// DeriveAccount derives the public Account for index. No key outlives the call.
func DeriveAccount(mnemonic string, index uint32) (Account, error) {
	keys, err := DeriveAccountKeys(mnemonic, index)
	if err != nil {
		return Account{}, err
	}
	defer keys.Zero()
	return keys.Account(), nil
}

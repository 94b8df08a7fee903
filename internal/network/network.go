// Package network is the static catalog of supported chains.
//
// The table is fixed at build time. Lookups never fail with an error:
// absence is reported through the ok result and callers handle it.
package network

import (
	"strings"

	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// Network describes one chain the wallet can talk to.
type Network struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Symbol      string       `json:"symbol"`
	Family      types.Family `json:"family"`
	RPCURL      string       `json:"rpc_url"`
	ChainID     uint64       `json:"chain_id,omitempty"` // Zero for TRON.
	ExplorerURL string       `json:"explorer_url"`
	ExplorerAPI string       `json:"explorer_api,omitempty"`
	Decimals    int32        `json:"decimals"`
	Testnet     bool         `json:"testnet,omitempty"`
}

// IsEVM reports whether the network uses EVM signing and hex addresses.
func (n Network) IsEVM() bool {
	return n.Family == types.FamilyEVM
}

// IsTron reports whether the network is a TRON chain.
func (n Network) IsTron() bool {
	return n.Family == types.FamilyTron
}

// TxURL returns the explorer page of a transaction.
func (n Network) TxURL(hash string) string {
	if n.IsTron() {
		return strings.TrimRight(n.ExplorerURL, "/") + "/#/transaction/" + strings.TrimPrefix(hash, "0x")
	}
	return strings.TrimRight(n.ExplorerURL, "/") + "/tx/" + hash
}

// AddressURL returns the explorer page of an address.
func (n Network) AddressURL(address string) string {
	if n.IsTron() {
		return strings.TrimRight(n.ExplorerURL, "/") + "/#/address/" + address
	}
	return strings.TrimRight(n.ExplorerURL, "/") + "/address/" + address
}

func evm(id, name, symbol, rpc string, chainID uint64, explorer, api string) Network {
	return Network{
		ID:          id,
		Name:        name,
		Symbol:      symbol,
		Family:      types.FamilyEVM,
		RPCURL:      rpc,
		ChainID:     chainID,
		ExplorerURL: explorer,
		ExplorerAPI: api,
		Decimals:    18,
	}
}

func testnet(n Network) Network {
	n.Testnet = true
	return n
}

// builtin is the supported chain table, mainnets first.
var builtin = []Network{
	evm("ethereum", "Ethereum", "ETH", "https://eth.llamarpc.com", 1,
		"https://etherscan.io", "https://api.etherscan.io/api"),
	evm("bsc", "BNB Smart Chain", "BNB", "https://bsc-dataseed1.binance.org", 56,
		"https://bscscan.com", "https://api.bscscan.com/api"),
	evm("polygon", "Polygon", "MATIC", "https://polygon-rpc.com", 137,
		"https://polygonscan.com", "https://api.polygonscan.com/api"),
	evm("arbitrum", "Arbitrum One", "ETH", "https://arb1.arbitrum.io/rpc", 42161,
		"https://arbiscan.io", "https://api.arbiscan.io/api"),
	evm("optimism", "Optimism", "ETH", "https://mainnet.optimism.io", 10,
		"https://optimistic.etherscan.io", "https://api-optimistic.etherscan.io/api"),
	evm("avalanche", "Avalanche C-Chain", "AVAX", "https://api.avax.network/ext/bc/C/rpc", 43114,
		"https://snowtrace.io", "https://api.snowtrace.io/api"),
	evm("fantom", "Fantom Opera", "FTM", "https://rpc.ftm.tools", 250,
		"https://ftmscan.com", "https://api.ftmscan.com/api"),
	evm("base", "Base", "ETH", "https://mainnet.base.org", 8453,
		"https://basescan.org", "https://api.basescan.org/api"),
	// zkSync Era has no etherscan-compatible txlist endpoint.
	evm("zksync", "zkSync Era", "ETH", "https://mainnet.era.zksync.io", 324,
		"https://explorer.zksync.io", ""),
	evm("linea", "Linea", "ETH", "https://rpc.linea.build", 59144,
		"https://lineascan.build", "https://api.lineascan.build/api"),
	{
		ID:          "tron",
		Name:        "TRON",
		Symbol:      "TRX",
		Family:      types.FamilyTron,
		RPCURL:      "https://api.trongrid.io",
		ExplorerURL: "https://tronscan.org",
		ExplorerAPI: "https://api.trongrid.io",
		Decimals:    6,
	},

	testnet(evm("sepolia", "Sepolia Testnet", "ETH", "https://rpc.sepolia.org", 11155111,
		"https://sepolia.etherscan.io", "https://api-sepolia.etherscan.io/api")),
	testnet(evm("bsc-testnet", "BSC Testnet", "tBNB", "https://data-seed-prebsc-1-s1.binance.org:8545", 97,
		"https://testnet.bscscan.com", "https://api-testnet.bscscan.com/api")),
	{
		ID:          "tron-nile",
		Name:        "TRON Nile Testnet",
		Symbol:      "TRX",
		Family:      types.FamilyTron,
		RPCURL:      "https://nile.trongrid.io",
		ExplorerURL: "https://nile.tronscan.org",
		ExplorerAPI: "https://nile.trongrid.io",
		Decimals:    6,
		Testnet:     true,
	},
}

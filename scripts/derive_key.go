// derive_key.go prints the EVM and TRON addresses of the first accounts of
// a recovery phrase stored in a file.
// Usage: go run scripts/derive_key.go <mnemonic-file> [count]
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Klingon-tech/nova-wallet/internal/wallet"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <mnemonic-file> [count]")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	count := 1
	if len(os.Args) > 2 {
		count, err = strconv.Atoi(os.Args[2])
		if err != nil || count < 1 {
			fmt.Fprintln(os.Stderr, "count must be a positive number")
			os.Exit(1)
		}
	}

	mnemonic := wallet.NormalizeMnemonic(string(data))
	if !wallet.ValidateMnemonic(mnemonic) {
		fmt.Fprintln(os.Stderr, wallet.ErrInvalidMnemonic)
		os.Exit(1)
	}

	for i := 0; i < count; i++ {
		acct, err := wallet.DeriveAccount(mnemonic, uint32(i))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("index=%d\n  %-18s evm=%s\n  %-18s tron=%s\n",
			acct.Index, wallet.EVMPath(acct.Index), acct.EVMAddress, wallet.TronPath(acct.Index), acct.TronAddress)
	}
}

// nova-cli is a command-line client for a running novad daemon.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Klingon-tech/nova-wallet/config"
	"github.com/Klingon-tech/nova-wallet/internal/network"
	"github.com/Klingon-tech/nova-wallet/internal/rpc"
	"github.com/Klingon-tech/nova-wallet/internal/rpcclient"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// callTimeout bounds a single daemon call. Unlock runs the KDF and sends
// wait for the broadcast, so it is generous.
const callTimeout = 2 * time.Minute

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := fmt.Sprintf("http://%s:%d", config.DefaultRPCAddr, config.DefaultRPCPort)

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.NewWithTimeout(rpcURL, callTimeout)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "networks":
		cmdNetworks(client, cmdArgs)
	case "create":
		cmdCreate(client)
	case "import":
		cmdImport(client, cmdArgs)
	case "unlock":
		cmdUnlock(client)
	case "lock":
		cmdLock(client)
	case "reset":
		cmdReset(client, cmdArgs)
	case "account":
		cmdAccount(client, cmdArgs)
	case "network":
		cmdNetwork(client, cmdArgs)
	case "refresh":
		cmdRefresh(client, cmdArgs)
	case "history":
		cmdHistory(client, cmdArgs)
	case "send":
		cmdSend(client, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: nova-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         Daemon RPC endpoint (default: http://127.0.0.1:8547)

Commands:
  status                          Show wallet state, accounts and balances
  networks [--testnets]           List supported networks

  create                          Create a new wallet (prompts for password)
  import [--mnemonic "..."]       Import a wallet from a recovery phrase
  unlock                          Unlock the wallet
  lock                            Lock the wallet
  reset --yes                     Erase the wallet from this device

  account add                     Derive the next account
  account select <n>              Make account n (1-based) active
  network <id>                    Select a network (e.g. ethereum, bsc, tron)
  refresh [--all] [--txs]         Refresh balances and history

  history [--network <id>] [--limit <n>]
                                  Show transaction history
  send --to <addr> --amount <amt> [--yes]
                                  Send the native asset
`)
}

func call(client *rpcclient.Client, method string, params, result interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := client.Call(ctx, method, params, result); err != nil {
		fatal("%s: %v", method, err)
	}
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(client *rpcclient.Client) {
	var st rpc.StateResult
	call(client, "wallet_getState", nil, &st)

	fmt.Printf("State:    %s\n", st.State)
	fmt.Printf("Network:  %s (%s)\n", st.Network.Name, st.Network.ID)
	if st.LastError != "" {
		fmt.Printf("Error:    %s\n", st.LastError)
	}
	if len(st.Accounts) == 0 {
		return
	}
	fmt.Println()
	for i, a := range st.Accounts {
		marker := " "
		if i == st.Current {
			marker = "*"
		}
		fmt.Printf("%s %-10s  %s  %s %s\n", marker, a.Name, a.CurrentAddress,
			types.FormatBalance(a.CurrentBalance, 4), st.Network.Symbol)
	}
}

func cmdNetworks(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("networks", flag.ExitOnError)
	testnets := fs.Bool("testnets", false, "Include testnets")
	fs.Parse(args)

	var nets []network.Network
	call(client, "network_list", rpc.NetworkListParam{Testnets: *testnets}, &nets)
	for _, n := range nets {
		kind := string(n.Family)
		if n.Testnet {
			kind += ", testnet"
		}
		fmt.Printf("%-16s %-6s %s (%s)\n", n.ID, n.Symbol, n.Name, kind)
	}
}

// ── lifecycle ───────────────────────────────────────────────────────────

func cmdCreate(client *rpcclient.Client) {
	password := readNewPassword()

	var res rpc.CreateResult
	call(client, "wallet_create", rpc.PasswordParam{Password: password}, &res)

	fmt.Println("Recovery phrase (write this down!):")
	fmt.Printf("  %s\n\n", res.Mnemonic)

	// Confirm the backup before showing the address.
	in := bufio.NewReader(os.Stdin)
	answers := make(map[int]string, len(res.Verify))
	for _, v := range res.Verify {
		fmt.Fprintf(os.Stderr, "Word #%d: ", v.Position+1)
		line, _ := in.ReadString('\n')
		answers[v.Position] = strings.TrimSpace(line)
	}
	var ok rpc.VerifyResult
	call(client, "wallet_verifyWords", rpc.VerifyWordsParam{Mnemonic: res.Mnemonic, Answers: answers}, &ok)
	if !ok.Valid {
		fmt.Fprintln(os.Stderr, "Warning: the words did not match. Check your backup before funding this wallet.")
	}

	fmt.Printf("\nWallet created.\n")
	fmt.Printf("EVM address:  %s\n", res.Account.EVMAddress)
	fmt.Printf("TRON address: %s\n", res.Account.TronAddress)
}

func cmdImport(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	mnemonic := fs.String("mnemonic", "", "BIP-39 recovery phrase (prompted when omitted)")
	fs.Parse(args)

	phrase := *mnemonic
	if phrase == "" {
		raw, err := readPassword("Recovery phrase: ")
		if err != nil {
			fatal("read phrase: %v", err)
		}
		phrase = string(raw)
	}
	password := readNewPassword()

	var st rpc.StateResult
	call(client, "wallet_import", rpc.ImportParam{Mnemonic: phrase, Password: password}, &st)
	fmt.Println("Wallet imported.")
	if len(st.Accounts) > 0 {
		fmt.Printf("Address: %s\n", st.Accounts[0].CurrentAddress)
	}
}

func cmdUnlock(client *rpcclient.Client) {
	password, err := readPassword("Password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	var res rpc.UnlockResult
	call(client, "wallet_unlock", rpc.PasswordParam{Password: string(password)}, &res)
	if !res.Unlocked {
		fatal("%s", res.Error)
	}
	fmt.Println("Wallet unlocked.")
}

func cmdLock(client *rpcclient.Client) {
	var res rpc.StatusResult
	call(client, "wallet_lock", nil, &res)
	fmt.Printf("Wallet %s.\n", res.State)
}

func cmdReset(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Confirm erasing the wallet")
	fs.Parse(args)

	if !*yes {
		fatal("reset erases the wallet from this device; re-run with --yes")
	}
	var res rpc.StatusResult
	call(client, "wallet_reset", rpc.ResetParam{Confirm: true}, &res)
	fmt.Println("Wallet erased.")
}

// ── accounts and networks ───────────────────────────────────────────────

func cmdAccount(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: nova-cli account <add|select> [n]")
	}
	switch args[0] {
	case "add":
		var acct rpc.AccountResult
		call(client, "wallet_addAccount", nil, &acct)
		fmt.Printf("%s: %s\n", acct.Name, acct.CurrentAddress)
	case "select":
		if len(args) < 2 {
			fatal("Usage: nova-cli account select <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			fatal("account number must be 1 or more")
		}
		var st rpc.StateResult
		call(client, "wallet_selectAccount", rpc.IndexParam{Index: n - 1}, &st)
		fmt.Printf("Active account: %s\n", st.Accounts[st.Current].Name)
	default:
		fatal("Unknown account command: %s", args[0])
	}
}

func cmdNetwork(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: nova-cli network <id>")
	}
	var st rpc.StateResult
	call(client, "wallet_selectNetwork", rpc.NetworkParam{Network: args[0]}, &st)
	fmt.Printf("Network: %s\n", st.Network.Name)
}

func cmdRefresh(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	all := fs.Bool("all", false, "Refresh every mainnet")
	txs := fs.Bool("txs", false, "Also reconcile transaction history")
	fs.Parse(args)

	var st rpc.StateResult
	call(client, "wallet_refresh", rpc.RefreshParam{All: *all, Transactions: *txs}, &st)
	if a := st.Accounts; len(a) > st.Current {
		fmt.Printf("%s %s\n", types.FormatBalance(a[st.Current].CurrentBalance, 4), st.Network.Symbol)
	}
}

// ── history and sending ─────────────────────────────────────────────────

func cmdHistory(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	networkID := fs.String("network", "", "Network ID (default: selected)")
	limit := fs.Int("limit", 20, "Maximum entries")
	fs.Parse(args)

	var res rpc.HistoryResult
	call(client, "wallet_getHistory", rpc.HistoryParam{Network: *networkID, Limit: *limit}, &res)
	if len(res.Transactions) == 0 {
		fmt.Println("No transactions.")
		return
	}
	for _, tx := range res.Transactions {
		when := time.UnixMilli(tx.Timestamp).Format("2006-01-02 15:04")
		peer := tx.To
		if tx.Direction == types.DirectionReceive {
			peer = tx.From
		}
		fmt.Printf("%s  %-7s  %-9s  %s %s  %s\n", when, tx.Direction, tx.Status,
			tx.Value, tx.Symbol, types.FormatAddress(peer, 6))
		fmt.Printf("    %s\n", tx.ExplorerURL)
	}
}

func cmdSend(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	to := fs.String("to", "", "Recipient address")
	amount := fs.String("amount", "", "Amount in native units")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	fs.Parse(args)

	if *to == "" || *amount == "" {
		fatal("Usage: nova-cli send --to <addr> --amount <amt>")
	}

	var plan rpc.PlanResult
	call(client, "wallet_prepareSend", rpc.SendParam{To: *to, Amount: *amount}, &plan)

	fmt.Printf("From:    %s\n", plan.From)
	fmt.Printf("To:      %s\n", plan.To)
	fmt.Printf("Amount:  %s %s\n", plan.Amount, plan.Symbol)
	fmt.Printf("Fee:     %s %s\n", plan.Fee, plan.Symbol)
	fmt.Printf("Total:   %s %s\n", plan.Total, plan.Symbol)

	if !*yes {
		fmt.Fprint(os.Stderr, "Send? [y/N] ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(line), "y") {
			fmt.Println("Cancelled.")
			return
		}
	}

	var tx rpc.TxResult
	call(client, "wallet_confirmSend", rpc.PlanParam{PlanID: plan.PlanID}, &tx)
	fmt.Printf("Sent: %s (%s)\n", tx.Hash, tx.Status)
	fmt.Printf("      %s\n", tx.ExplorerURL)
	if !tx.Status.Terminal() {
		fmt.Println("Waiting for confirmation; check with 'nova-cli history'.")
	}
}

// ── Password helpers ────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func readNewPassword() string {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	return string(password)
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

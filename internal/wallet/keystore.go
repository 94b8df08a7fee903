package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/nova-wallet/internal/storage"
	"github.com/Klingon-tech/nova-wallet/pkg/types"
)

// Namespace is the key prefix of every wallet record in the store.
const Namespace = "nova/"

// DefaultNetworkID is the network selected when none was persisted.
const DefaultNetworkID = "ethereum"

// MaxStoredTransactions caps the persisted transaction log.
const MaxStoredTransactions = 100

var (
	keyVault       = []byte("vault")
	keyNetwork     = []byte("selected_network")
	keyTxLog       = []byte("transactions")
	keyInitialized = []byte("initialized")
)

// ErrNoVault is returned by LoadVault when no wallet has been created.
var ErrNoVault = errors.New("no vault stored")

// Keystore persists the wallet's durable records: the vault, the selected
// network, the transaction log and the initialized flag. Nothing else is
// written.
type Keystore struct {
	db *storage.PrefixDB

	// txMu serializes read-modify-write cycles on the transaction log.
	txMu sync.Mutex
}

// NewKeystore creates a keystore on top of db, isolated under Namespace.
func NewKeystore(db storage.DB) *Keystore {
	return &Keystore{db: storage.NewPrefixDB(db, []byte(Namespace))}
}

// SaveVault stores the vault and sets the initialized flag in one batch.
func (ks *Keystore) SaveVault(v *Vault) error {
	data, err := v.Marshal()
	if err != nil {
		return fmt.Errorf("marshal vault: %w", err)
	}
	batch := ks.db.NewBatch()
	if err := batch.Put(keyVault, data); err != nil {
		return err
	}
	if err := batch.Put(keyInitialized, []byte("true")); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("write vault: %w", err)
	}
	return nil
}

// LoadVault reads the stored vault.
func (ks *Keystore) LoadVault() (*Vault, error) {
	data, err := ks.db.Get(keyVault)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoVault
	}
	if err != nil {
		return nil, fmt.Errorf("read vault: %w", err)
	}
	return UnmarshalVault(data)
}

// HasVault reports whether a vault is stored.
func (ks *Keystore) HasVault() (bool, error) {
	return ks.db.Has(keyVault)
}

// SavedNetwork returns the persisted network ID and whether one was saved.
func (ks *Keystore) SavedNetwork() (string, bool, error) {
	data, err := ks.db.Get(keyNetwork)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && len(data) == 0) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read selected network: %w", err)
	}
	return string(data), true, nil
}

// SaveSelectedNetwork persists the active network ID.
func (ks *Keystore) SaveSelectedNetwork(id string) error {
	if err := ks.db.Put(keyNetwork, []byte(id)); err != nil {
		return fmt.Errorf("write selected network: %w", err)
	}
	return nil
}

// Transactions returns the persisted log, newest first.
func (ks *Keystore) Transactions() ([]types.Transaction, error) {
	data, err := ks.db.Get(keyTxLog)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	var txs []types.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("parse transactions: %w", err)
	}
	return txs, nil
}

// SaveTransactions replaces the log with txs, keeping the newest
// MaxStoredTransactions.
func (ks *Keystore) SaveTransactions(txs []types.Transaction) error {
	ks.txMu.Lock()
	defer ks.txMu.Unlock()
	return ks.writeTransactions(txs)
}

// AppendTransaction records tx at the head of the log. An existing entry
// with the same key is replaced.
func (ks *Keystore) AppendTransaction(tx types.Transaction) error {
	ks.txMu.Lock()
	defer ks.txMu.Unlock()

	txs, err := ks.Transactions()
	if err != nil {
		return err
	}
	out := make([]types.Transaction, 0, len(txs)+1)
	out = append(out, tx)
	for _, existing := range txs {
		if existing.Key() != tx.Key() {
			out = append(out, existing)
		}
	}
	return ks.writeTransactions(out)
}

// UpdateTransaction replaces the stored entry with tx's key in place.
// It reports whether an entry was changed. Status never moves backwards.
func (ks *Keystore) UpdateTransaction(tx types.Transaction) (bool, error) {
	ks.txMu.Lock()
	defer ks.txMu.Unlock()

	txs, err := ks.Transactions()
	if err != nil {
		return false, err
	}
	for i, existing := range txs {
		if existing.Key() != tx.Key() {
			continue
		}
		if !existing.Status.CanTransition(tx.Status) {
			return false, nil
		}
		out := make([]types.Transaction, len(txs))
		copy(out, txs)
		out[i] = tx
		return true, ks.writeTransactions(out)
	}
	return false, nil
}

func (ks *Keystore) writeTransactions(txs []types.Transaction) error {
	if len(txs) > MaxStoredTransactions {
		txs = txs[:MaxStoredTransactions]
	}
	if txs == nil {
		txs = []types.Transaction{}
	}
	data, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("marshal transactions: %w", err)
	}
	if err := ks.db.Put(keyTxLog, data); err != nil {
		return fmt.Errorf("write transactions: %w", err)
	}
	return nil
}

// Initialized reports whether a wallet was ever set up on this store.
func (ks *Keystore) Initialized() (bool, error) {
	data, err := ks.db.Get(keyInitialized)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read initialized flag: %w", err)
	}
	return string(data) == "true", nil
}

// SetInitialized writes the initialized flag.
func (ks *Keystore) SetInitialized(v bool) error {
	val := []byte("false")
	if v {
		val = []byte("true")
	}
	if err := ks.db.Put(keyInitialized, val); err != nil {
		return fmt.Errorf("write initialized flag: %w", err)
	}
	return nil
}

// Clear deletes every wallet record. It is irreversible.
func (ks *Keystore) Clear() error {
	ks.txMu.Lock()
	defer ks.txMu.Unlock()
	if err := ks.db.DeleteAll(); err != nil {
		return fmt.Errorf("clear wallet data: %w", err)
	}
	return nil
}

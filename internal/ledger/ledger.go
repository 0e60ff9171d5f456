// Package ledger holds the host-side account state: native-currency
// balances and persisted record images keyed by derived address. It supplies
// the atomic value-transfer primitive and the snapshot/rollback mechanism
// that makes every instruction all-or-nothing.
package ledger

import (
	"bytes"
	"sort"

	"go.uber.org/zap"

	"github.com/chainchat/chainchat/internal/address"
	cerrors "github.com/chainchat/chainchat/internal/errors"
	"github.com/chainchat/chainchat/internal/state"
)

// Ledger is not safe for concurrent use: the host serializes all
// instructions into one global order before touching it.
type Ledger struct {
	logger   *zap.Logger
	balances map[address.Address]uint64
	records  map[address.Address]state.Record
}

// New returns an empty ledger.
func New(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		logger:   logger,
		balances: make(map[address.Address]uint64),
		records:  make(map[address.Address]state.Record),
	}
}

// Balance returns the native-currency balance of an account. Unknown
// accounts hold zero.
func (l *Ledger) Balance(addr address.Address) uint64 {
	return l.balances[addr]
}

// Credit adds amount to an account, failing on wrap.
func (l *Ledger) Credit(addr address.Address, amount uint64) error {
	current := l.balances[addr]
	if current+amount < current {
		return cerrors.ErrOverflow
	}
	l.balances[addr] = current + amount
	return nil
}

// Debit removes amount from an account.
func (l *Ledger) Debit(addr address.Address, amount uint64) error {
	current := l.balances[addr]
	if current < amount {
		return cerrors.ErrInsufficientFunds
	}
	l.balances[addr] = current - amount
	return nil
}

// Transfer moves amount between accounts atomically. A zero amount is a
// no-op so callers can skip the degenerate fee legs without branching.
func (l *Ledger) Transfer(from, to address.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := l.Debit(from, amount); err != nil {
		return cerrors.Wrap("transfer", err)
	}
	if err := l.Credit(to, amount); err != nil {
		// Undo the debit so a failed transfer has no effect even before
		// the instruction-level rollback runs.
		l.balances[from] += amount
		return cerrors.Wrap("transfer", err)
	}
	l.logger.Debug("transfer applied",
		zap.String("from", from.Short()),
		zap.String("to", to.Short()),
		zap.Uint64("amount", amount),
	)
	return nil
}

// CreateRecord inserts a record at its derived address, enforcing
// uniqueness on insert.
func (l *Ledger) CreateRecord(addr address.Address, rec state.Record) error {
	if _, exists := l.records[addr]; exists {
		return cerrors.ErrRecordExists
	}
	l.records[addr] = rec
	return nil
}

// Record loads the record image at addr.
func (l *Ledger) Record(addr address.Address) (state.Record, bool) {
	rec, ok := l.records[addr]
	return rec, ok
}

// PutRecord stores a (possibly mutated) record image at addr.
func (l *Ledger) PutRecord(addr address.Address, rec state.Record) {
	l.records[addr] = rec
}

// DeleteRecord reclaims the record at addr.
func (l *Ledger) DeleteRecord(addr address.Address) {
	delete(l.records, addr)
}

// Snapshot captures the full ledger state. Record images are deep-copied so
// later mutations cannot leak into the snapshot.
type Snapshot struct {
	balances map[address.Address]uint64
	records  map[address.Address]state.Record
}

// Snapshot returns a point-in-time copy of the ledger.
func (l *Ledger) Snapshot() *Snapshot {
	snap := &Snapshot{
		balances: make(map[address.Address]uint64, len(l.balances)),
		records:  make(map[address.Address]state.Record, len(l.records)),
	}
	for addr, bal := range l.balances {
		snap.balances[addr] = bal
	}
	for addr, rec := range l.records {
		snap.records[addr] = rec.Clone()
	}
	return snap
}

// Restore rewinds the ledger to a snapshot, leaving every record
// bit-for-bit as it was captured.
func (l *Ledger) Restore(snap *Snapshot) {
	l.balances = make(map[address.Address]uint64, len(snap.balances))
	l.records = make(map[address.Address]state.Record, len(snap.records))
	for addr, bal := range snap.balances {
		l.balances[addr] = bal
	}
	for addr, rec := range snap.records {
		l.records[addr] = rec.Clone()
	}
}

// BalanceEntry is one account balance in a dump.
type BalanceEntry struct {
	Address address.Address
	Balance uint64
}

// RecordEntry is one encoded record image in a dump.
type RecordEntry struct {
	Address address.Address
	Kind    state.RecordKind
	Data    []byte
}

// Dump exports the ledger in deterministic (address-sorted) order for
// checkpointing.
func (l *Ledger) Dump() ([]BalanceEntry, []RecordEntry) {
	balances := make([]BalanceEntry, 0, len(l.balances))
	for addr, bal := range l.balances {
		balances = append(balances, BalanceEntry{Address: addr, Balance: bal})
	}
	sort.Slice(balances, func(i, j int) bool {
		return bytes.Compare(balances[i].Address[:], balances[j].Address[:]) < 0
	})

	records := make([]RecordEntry, 0, len(l.records))
	for addr, rec := range l.records {
		records = append(records, RecordEntry{Address: addr, Kind: rec.Kind(), Data: rec.Encode()})
	}
	sort.Slice(records, func(i, j int) bool {
		return bytes.Compare(records[i].Address[:], records[j].Address[:]) < 0
	})
	return balances, records
}

// Load replaces the ledger contents with a previously dumped checkpoint.
func (l *Ledger) Load(balances []BalanceEntry, records []RecordEntry) error {
	newBalances := make(map[address.Address]uint64, len(balances))
	for _, entry := range balances {
		newBalances[entry.Address] = entry.Balance
	}
	newRecords := make(map[address.Address]state.Record, len(records))
	for _, entry := range records {
		rec, err := state.Decode(entry.Kind, entry.Data)
		if err != nil {
			return cerrors.Wrap("load record "+entry.Address.Short(), err)
		}
		newRecords[entry.Address] = rec
	}
	l.balances = newBalances
	l.records = newRecords
	return nil
}

// Accounts returns the number of balance-holding accounts.
func (l *Ledger) Accounts() int {
	return len(l.balances)
}

// Records returns the number of stored record images.
func (l *Ledger) Records() int {
	return len(l.records)
}

package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/dgraph-io/badger/v2"
	"github.com/ethereum/go-ethereum/common"
)

const (
	codeStatus   byte = 1
	codeApproval byte = 2
)

// BadgerStore persists state in a badger database. A delta is written in a
// single badger transaction.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// OpenBadgerStore opens (or creates) a badger store at dir. An empty dir
// opens an in-memory database.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	return OpenBadgerStoreWithOptions(opts)
}

// OpenBadgerStoreWithOptions opens a badger store with caller supplied options
func OpenBadgerStoreWithOptions(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open badger store: %w", err)
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an already opened database
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func statusDBKey(k statusKey) []byte {
	key := make([]byte, 0, 1+common.AddressLength+common.HashLength)
	key = append(key, codeStatus)
	key = append(key, k.maker.Bytes()...)
	return append(key, k.id.Bytes()...)
}

func approvalDBKey(k approvalKey) []byte {
	key := make([]byte, 0, 1+2*common.AddressLength)
	key = append(key, codeApproval)
	key = append(key, k.approver.Bytes()...)
	return append(key, k.delegate.Bytes()...)
}

func (b *BadgerStore) Status(maker common.Address, id *big.Int) (Status, error) {
	status := StatusOpen
	err := b.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(statusDBKey(newStatusKey(maker, id)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not load status: %w", err)
		}
		return item.Value(func(val []byte) error {
			if len(val) != 1 {
				return fmt.Errorf("corrupt status value of length %d", len(val))
			}
			status = Status(val[0])
			return nil
		})
	})
	return status, err
}

func (b *BadgerStore) Approval(approver, delegate common.Address) (*big.Int, error) {
	var expiry *big.Int
	err := b.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(approvalDBKey(approvalKey{approver, delegate}))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not load approval: %w", err)
		}
		return item.Value(func(val []byte) error {
			expiry = new(big.Int).SetBytes(val)
			return nil
		})
	})
	return expiry, err
}

// MaxDeltaLen bounds the changed keys of one Apply; a delta must stay below it
func (b *BadgerStore) MaxDeltaLen() int {
	return int(b.db.MaxBatchCount())
}

// Apply writes the delta in one transaction. Deltas with MaxDeltaLen or more
// keys, or whose encoded size badger rejects, fail with ErrDeltaTooLarge.
func (b *BadgerStore) Apply(d *Delta) error {
	if n := d.Len(); n >= b.MaxDeltaLen() {
		return fmt.Errorf("%w: %d keys, limit %d", ErrDeltaTooLarge, n, b.MaxDeltaLen())
	}
	err := b.db.Update(func(tx *badger.Txn) error {
		for k, s := range d.statuses {
			if err := tx.Set(statusDBKey(k), []byte{byte(s)}); err != nil {
				return fmt.Errorf("could not store status: %w", err)
			}
		}
		for k, expiry := range d.approvals {
			key := approvalDBKey(k)
			if expiry == nil {
				if err := tx.Delete(key); err != nil {
					return fmt.Errorf("could not delete approval: %w", err)
				}
				continue
			}
			if err := tx.Set(key, common.LeftPadBytes(expiry.Bytes(), 32)); err != nil {
				return fmt.Errorf("could not store approval: %w", err)
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("%w: %v", ErrDeltaTooLarge, err)
	}
	return err
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

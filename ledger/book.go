// Package ledger is an in-process asset book: native balances, fungible
// token balances and non-fungible token ownership, with journaled
// snapshots so a failed settlement can be rolled back.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/swap-sdk-go/chain"
)

var (
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrNotOwner            = errors.New("ledger: sender does not own token")
	ErrUnknownToken        = errors.New("ledger: unknown token")
	ErrInvalidAmount       = errors.New("ledger: invalid amount")
	ErrTransferRejected    = errors.New("ledger: transfer rejected by recipient")
)

// Kind is the token standard a contract follows
type Kind int

const (
	KindFungible Kind = iota
	KindNonFungible
)

// ReceiverHook is invoked after a safe token transfer to the hooked
// address. A returned error rejects the transfer.
type ReceiverHook func(ctx context.Context, token, from common.Address, param *big.Int) error

// Book is safe for concurrent use. Receiver hooks run without the book
// lock held, so they may call back into the book.
type Book struct {
	mu       sync.Mutex
	native   map[common.Address]*big.Int
	fungible map[common.Address]map[common.Address]*big.Int
	owners   map[common.Address]map[common.Hash]common.Address
	kinds    map[common.Address]Kind
	hooks    map[common.Address]ReceiverHook
	journal  []func()
}

func NewBook() *Book {
	return &Book{
		native:   make(map[common.Address]*big.Int),
		fungible: make(map[common.Address]map[common.Address]*big.Int),
		owners:   make(map[common.Address]map[common.Hash]common.Address),
		kinds:    make(map[common.Address]Kind),
		hooks:    make(map[common.Address]ReceiverHook),
	}
}

// RegisterToken declares token as following the given standard
func (b *Book) RegisterToken(token common.Address, kind Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kinds[token] = kind
	switch kind {
	case KindFungible:
		if b.fungible[token] == nil {
			b.fungible[token] = make(map[common.Address]*big.Int)
		}
	case KindNonFungible:
		if b.owners[token] == nil {
			b.owners[token] = make(map[common.Hash]common.Address)
		}
	}
}

// SetReceiverHook installs (or with nil, removes) the hook of addr
func (b *Book) SetReceiverHook(addr common.Address, hook ReceiverHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if hook == nil {
		delete(b.hooks, addr)
		return
	}
	b.hooks[addr] = hook
}

// Deposit credits native currency to holder
func (b *Book) Deposit(holder common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.native[holder] = new(big.Int).Add(balanceOf(b.native, holder), amount)
}

// Mint credits fungible token units to holder
func (b *Book) Mint(token, holder common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	balances, ok := b.fungible[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}
	balances[holder] = new(big.Int).Add(balanceOf(balances, holder), amount)
	return nil
}

// MintNonFungible assigns token id to owner
func (b *Book) MintNonFungible(token, owner common.Address, id *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	owners, ok := b.owners[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}
	owners[common.BigToHash(id)] = owner
	return nil
}

// Balance returns the native balance of holder
func (b *Book) Balance(holder common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(balanceOf(b.native, holder))
}

// TokenBalance returns the fungible balance of holder
func (b *Book) TokenBalance(token, holder common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(balanceOf(b.fungible[token], holder))
}

// OwnerOf returns the owner of a non-fungible token id
func (b *Book) OwnerOf(token common.Address, id *big.Int) common.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.owners[token][common.BigToHash(id)]
}

// TransferNative moves native currency between accounts
func (b *Book) TransferNative(_ context.Context, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.move(b.native, from, to, amount)
}

// TransferToken moves a fungible amount or a non-fungible id. In safe mode a
// receiver hook registered for the recipient is consulted afterwards.
func (b *Book) TransferToken(ctx context.Context, token, from, to common.Address, param *big.Int, mode chain.TransferMode) error {
	if param == nil || param.Sign() < 0 {
		return ErrInvalidAmount
	}

	b.mu.Lock()
	kind, ok := b.kinds[token]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}

	var err error
	switch kind {
	case KindFungible:
		err = b.move(b.fungible[token], from, to, param)
	case KindNonFungible:
		err = b.reassign(token, from, to, param)
	}
	hook := b.hooks[to]
	b.mu.Unlock()

	if err != nil {
		return err
	}
	if mode == chain.TransferSafe && hook != nil {
		if err := hook(ctx, token, from, param); err != nil {
			return fmt.Errorf("%w: %w", ErrTransferRejected, err)
		}
	}
	return nil
}

// Snapshot returns an identifier of the current journal position
func (b *Book) Snapshot() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.journal)
}

// RevertToSnapshot undoes every change made after the snapshot was taken
func (b *Book) RevertToSnapshot(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.journal) > id {
		last := len(b.journal) - 1
		b.journal[last]()
		b.journal = b.journal[:last]
	}
}

// Finalize drops the journal once a settlement is committed
func (b *Book) Finalize(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.journal = nil
	return nil
}

// move must be called with the lock held
func (b *Book) move(balances map[common.Address]*big.Int, from, to common.Address, amount *big.Int) error {
	fromBalance := balanceOf(balances, from)
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBalance, amount)
	}
	if from == to || amount.Sign() == 0 {
		return nil
	}

	prevFrom, hadFrom := balances[from]
	prevTo, hadTo := balances[to]
	b.journal = append(b.journal, func() {
		restore(balances, from, prevFrom, hadFrom)
		restore(balances, to, prevTo, hadTo)
	})

	balances[from] = new(big.Int).Sub(fromBalance, amount)
	balances[to] = new(big.Int).Add(balanceOf(balances, to), amount)
	return nil
}

// reassign must be called with the lock held
func (b *Book) reassign(token, from, to common.Address, id *big.Int) error {
	owners := b.owners[token]
	key := common.BigToHash(id)
	if owners[key] != from {
		return fmt.Errorf("%w: %s id %s", ErrNotOwner, token.Hex(), id)
	}

	b.journal = append(b.journal, func() {
		owners[key] = from
	})
	owners[key] = to
	return nil
}

func balanceOf(balances map[common.Address]*big.Int, holder common.Address) *big.Int {
	if v, ok := balances[holder]; ok {
		return v
	}
	return new(big.Int)
}

func restore(balances map[common.Address]*big.Int, holder common.Address, prev *big.Int, had bool) {
	if had {
		balances[holder] = prev
		return
	}
	delete(balances, holder)
}

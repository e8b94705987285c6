package ledger_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/kaifufi/swap-sdk-go/chain"
	"github.com/kaifufi/swap-sdk-go/ledger"
)

var (
	alice = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	usd   = common.HexToAddress("0x00000000000000000000000000000000000000d5")
	art   = common.HexToAddress("0x0000000000000000000000000000000000000721")
)

func newBook(t *testing.T) *ledger.Book {
	book := ledger.NewBook()
	book.RegisterToken(usd, ledger.KindFungible)
	book.RegisterToken(art, ledger.KindNonFungible)
	require.NoError(t, book.Mint(usd, alice, big.NewInt(100)))
	require.NoError(t, book.MintNonFungible(art, alice, big.NewInt(42)))
	book.Deposit(bob, big.NewInt(10))
	return book
}

func TestTransfers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("fungible", func(t *testing.T) {
		book := newBook(t)
		require.NoError(t, book.TransferToken(ctx, usd, alice, bob, big.NewInt(30), chain.TransferSafe))
		require.Equal(t, big.NewInt(70), book.TokenBalance(usd, alice))
		require.Equal(t, big.NewInt(30), book.TokenBalance(usd, bob))

		err := book.TransferToken(ctx, usd, bob, alice, big.NewInt(31), chain.TransferSafe)
		require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	})

	t.Run("non-fungible", func(t *testing.T) {
		book := newBook(t)
		require.NoError(t, book.TransferToken(ctx, art, alice, bob, big.NewInt(42), chain.TransferUnchecked))
		require.Equal(t, bob, book.OwnerOf(art, big.NewInt(42)))

		err := book.TransferToken(ctx, art, alice, bob, big.NewInt(42), chain.TransferUnchecked)
		require.ErrorIs(t, err, ledger.ErrNotOwner)
	})

	t.Run("native", func(t *testing.T) {
		book := newBook(t)
		require.NoError(t, book.TransferNative(ctx, bob, alice, big.NewInt(4)))
		require.Equal(t, big.NewInt(6), book.Balance(bob))
		require.Equal(t, big.NewInt(4), book.Balance(alice))
	})

	t.Run("unknown token", func(t *testing.T) {
		book := newBook(t)
		err := book.TransferToken(ctx, common.HexToAddress("0x01"), alice, bob, big.NewInt(1), chain.TransferSafe)
		require.ErrorIs(t, err, ledger.ErrUnknownToken)
	})
}

func TestSnapshots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	book := newBook(t)

	snap := book.Snapshot()
	require.NoError(t, book.TransferToken(ctx, usd, alice, bob, big.NewInt(10), chain.TransferSafe))

	inner := book.Snapshot()
	require.NoError(t, book.TransferToken(ctx, art, alice, bob, big.NewInt(42), chain.TransferSafe))
	require.NoError(t, book.TransferNative(ctx, bob, alice, big.NewInt(10)))

	book.RevertToSnapshot(inner)
	require.Equal(t, alice, book.OwnerOf(art, big.NewInt(42)))
	require.Equal(t, big.NewInt(10), book.Balance(bob))
	require.Equal(t, big.NewInt(0), book.Balance(alice))
	require.Equal(t, big.NewInt(10), book.TokenBalance(usd, bob))

	book.RevertToSnapshot(snap)
	require.Equal(t, big.NewInt(100), book.TokenBalance(usd, alice))
	require.Equal(t, big.NewInt(0), book.TokenBalance(usd, bob))
}

func TestReceiverHook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	refusal := errors.New("not accepting")

	book := newBook(t)
	book.SetReceiverHook(bob, func(context.Context, common.Address, common.Address, *big.Int) error {
		return refusal
	})

	t.Run("safe transfer is rejected", func(t *testing.T) {
		snap := book.Snapshot()
		err := book.TransferToken(ctx, usd, alice, bob, big.NewInt(5), chain.TransferSafe)
		require.ErrorIs(t, err, ledger.ErrTransferRejected)
		require.ErrorIs(t, err, refusal)

		// the caller reverts the moved balance
		book.RevertToSnapshot(snap)
		require.Equal(t, big.NewInt(100), book.TokenBalance(usd, alice))
	})

	t.Run("unchecked transfer skips the hook", func(t *testing.T) {
		require.NoError(t, book.TransferToken(ctx, usd, alice, bob, big.NewInt(5), chain.TransferUnchecked))
		require.Equal(t, big.NewInt(5), book.TokenBalance(usd, bob))
	})
}

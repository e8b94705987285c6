package swap_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	swap "github.com/kaifufi/swap-sdk-go"
	"github.com/kaifufi/swap-sdk-go/chain"
	"github.com/kaifufi/swap-sdk-go/events"
	"github.com/kaifufi/swap-sdk-go/ledger"
	"github.com/kaifufi/swap-sdk-go/notify"
)

func newTestClient(t *testing.T, storePath string) (*swap.Client, *notify.Recorder) {
	t.Helper()

	cfg := swap.DefaultConfig()
	cfg.Engine.VerifyingContract = verifyingContract.Hex()
	cfg.Store.Path = storePath

	logger, _ := logtest.NewNullLogger()
	recorder := &notify.Recorder{}
	client, err := swap.NewClient(cfg, swap.WithLogger(logger), swap.WithSinks(recorder))
	require.NoError(t, err)
	return client, recorder
}

func TestClient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	makerKey := mustKey(t, makerKeyHex)
	maker := crypto.PubkeyToAddress(makerKey.PublicKey)
	taker := crypto.PubkeyToAddress(mustKey(t, takerKeyHex).PublicKey)
	builder := chain.NewOrderBuilder(verifyingContract, makerKey)

	fund := func(t *testing.T, book *ledger.Book) {
		book.RegisterToken(makerToken, ledger.KindFungible)
		book.RegisterToken(takerToken, ledger.KindFungible)
		require.NoError(t, book.Mint(makerToken, maker, big.NewInt(1_000)))
		require.NoError(t, book.Mint(takerToken, taker, big.NewInt(1_000)))
	}
	signedOrder := func(t *testing.T, takeID int64) *chain.SignedOrder {
		signed, err := builder.BuildSignedOrder(&chain.OrderData{
			TakeID: big.NewInt(takeID),
			Expiry: big.NewInt(time.Now().Add(time.Hour).Unix()),
			Maker:  chain.Party{Wallet: maker, Token: makerToken, Param: big.NewInt(100)},
			Taker:  chain.Party{Wallet: taker, Token: takerToken, Param: big.NewInt(50)},
		}, chain.VersionStructured)
		require.NoError(t, err)
		return signed
	}

	t.Run("settles on the in-process ledger", func(t *testing.T) {
		client, recorder := newTestClient(t, "")
		defer client.Close()

		require.Equal(t, swap.BackendLedger, client.Backend())
		fund(t, client.Ledger())

		signed := signedOrder(t, 1)
		require.NoError(t, client.Swap(ctx, swap.Call{Sender: taker}, signed))

		status, err := client.GetStatus(maker, big.NewInt(1))
		require.NoError(t, err)
		assert.Equal(t, "TAKEN", status.Status)
		assert.Equal(t, "1", status.ID)
		assert.Equal(t, maker.Hex(), status.Maker)

		require.Len(t, recorder.Events(), 1)
		assert.Equal(t, events.Swap, recorder.Events()[0].Name())
	})

	t.Run("replayed order is rejected", func(t *testing.T) {
		client, recorder := newTestClient(t, "")
		defer client.Close()
		fund(t, client.Ledger())

		signed := signedOrder(t, 10)
		require.NoError(t, client.Swap(ctx, swap.Call{Sender: taker}, signed))
		err := client.Swap(ctx, swap.Call{Sender: taker}, signed)
		require.ErrorIs(t, err, swap.ErrOrderAlreadyTaken)
		assert.Len(t, recorder.Events(), 1)

		require.NoError(t, client.Cancel(ctx, swap.Call{Sender: maker}, nil))
		assert.Len(t, recorder.Events(), 1)
	})

	t.Run("state survives a restart on disk", func(t *testing.T) {
		dir := t.TempDir()

		client, _ := newTestClient(t, dir)
		require.NoError(t, client.Cancel(ctx, swap.Call{Sender: maker}, []*big.Int{big.NewInt(7)}))
		expiry := big.NewInt(time.Now().Add(time.Hour).Unix())
		delegate := common.HexToAddress("0x00000000000000000000000000000000000000d1")
		require.NoError(t, client.Authorize(ctx, swap.Call{Sender: maker}, delegate, expiry))
		require.NoError(t, client.Close())

		reopened, _ := newTestClient(t, dir)
		defer reopened.Close()

		status, err := reopened.GetStatus(maker, big.NewInt(7))
		require.NoError(t, err)
		assert.Equal(t, "CANCELED", status.Status)

		ok, err := reopened.IsAuthorized(maker, delegate)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("argument validation", func(t *testing.T) {
		client, _ := newTestClient(t, "")
		defer client.Close()

		require.ErrorIs(t, client.Swap(ctx, swap.Call{Sender: taker}, nil), swap.ErrInvalidParam)
		require.ErrorIs(t, client.Cancel(ctx, swap.Call{Sender: maker}, nil), swap.ErrInvalidParam)
		_, err := client.GetStatus(maker, nil)
		require.ErrorIs(t, err, swap.ErrInvalidParam)

		_, err = swap.NewClient(nil)
		require.ErrorIs(t, err, swap.ErrInvalidParam)
	})
}

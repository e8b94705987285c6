package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOrder(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t)
	data := &OrderData{
		Expiry: big.NewInt(1_700_003_600),
		Maker:  Party{Wallet: testMaker, Token: testToken, Param: big.NewInt(100)},
		Taker:  Party{Wallet: testTaker, Token: NativeToken, Param: big.NewInt(5)},
	}

	t.Run("generates ids and defaults the kill id", func(t *testing.T) {
		order, err := builder.BuildOrder(data)
		require.NoError(t, err)
		require.NotNil(t, order.TakeID)
		assert.Equal(t, 0, order.TakeID.Cmp(order.KillID))
		assert.Equal(t, 0, order.Affiliate.Param.Sign())
		assert.False(t, order.HasAffiliate())

		again, err := builder.BuildOrder(data)
		require.NoError(t, err)
		assert.NotEqual(t, 0, order.TakeID.Cmp(again.TakeID))
	})

	t.Run("keeps explicit ids", func(t *testing.T) {
		explicit := *data
		explicit.TakeID = big.NewInt(11)
		explicit.KillID = big.NewInt(12)

		signed, err := builder.BuildSignedOrder(&explicit, VersionStructured)
		require.NoError(t, err)
		assert.Equal(t, "11", signed.Order.TakeID.String())
		assert.Equal(t, "12", signed.Order.KillID.String())
		assert.True(t, NewVerifier(NewEIP712Domain(testContract)).IsValid(signed.Order, signed.Signature))

		// the built order does not alias the input
		explicit.TakeID.SetInt64(99)
		assert.Equal(t, "11", signed.Order.TakeID.String())
	})

	t.Run("rejects incomplete input", func(t *testing.T) {
		invalid := []func(d *OrderData){
			func(d *OrderData) { d.Maker.Wallet = common.Address{} },
			func(d *OrderData) { d.Expiry = nil },
			func(d *OrderData) { d.Maker.Param = nil },
			func(d *OrderData) { d.Taker.Param = big.NewInt(-1) },
			func(d *OrderData) { d.Affiliate.Param = big.NewInt(-1) },
		}
		for i, mutate := range invalid {
			d := *data
			mutate(&d)
			_, err := builder.BuildOrder(&d)
			assert.Error(t, err, "case %d", i)
		}
	})
}

package swap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	swap "github.com/kaifufi/swap-sdk-go"
)

func TestSafeAmountToWei(t *testing.T) {
	t.Parallel()

	cases := []struct {
		amount   string
		decimals int
		want     string
	}{
		{"1", 18, "1000000000000000000"},
		{"1.5", 6, "1500000"},
		{"0.000001", 6, "1"},
		{".25", 2, "25"},
		{"12.3456789", 2, "1234"},
		{"42", 0, "42"},
	}
	for _, tc := range cases {
		got, err := swap.SafeAmountToWei(tc.amount, tc.decimals)
		require.NoError(t, err, tc.amount)
		assert.Equal(t, tc.want, got.String(), tc.amount)
	}

	for _, bad := range []string{"", "-1", "1.2.3", "abc", "0", "0.0000001"} {
		_, err := swap.SafeAmountToWei(bad, 6)
		assert.ErrorIs(t, err, swap.ErrInvalidParam, bad)
	}

	_, err := swap.SafeAmountToWei("1", 19)
	assert.ErrorIs(t, err, swap.ErrInvalidParam)
}

func TestParseUint256(t *testing.T) {
	t.Parallel()

	v, err := swap.ParseUint256("010")
	require.NoError(t, err)
	assert.Equal(t, "10", v.String())

	v, err = swap.ParseUint256("0xff")
	require.NoError(t, err)
	assert.Equal(t, "255", v.String())

	_, err = swap.ParseUint256("-1")
	assert.ErrorIs(t, err, swap.ErrInvalidParam)

	_, err = swap.ParseUint256("0x10000000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, swap.ErrInvalidParam)

	ids, err := swap.ParseUint256List("5, 6,0x7,")
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, "7", ids[2].String())

	_, err = swap.ParseUint256List(" , ")
	assert.ErrorIs(t, err, swap.ErrInvalidParam)
}

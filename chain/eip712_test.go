package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testContract = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	testMaker    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testTaker    = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	testToken    = common.HexToAddress("0x0000000000000000000000000000000000000a01")
)

func testOrder() *Order {
	return &Order{
		TakeID:    big.NewInt(1),
		KillID:    big.NewInt(2),
		Expiry:    big.NewInt(1_700_003_600),
		Maker:     Party{Wallet: testMaker, Token: testToken, Param: big.NewInt(100)},
		Taker:     Party{Wallet: testTaker, Token: NativeToken, Param: big.NewInt(5)},
		Affiliate: Party{Param: new(big.Int)},
	}
}

func partyMessage(p Party) map[string]interface{} {
	return map[string]interface{}{
		"wallet": p.Wallet.Hex(),
		"token":  p.Token.Hex(),
		"param":  orZero(p.Param).String(),
	}
}

// typedData describes the order the way a wallet receives it for signing
func typedData(contract common.Address, o *Order) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Party": {
				{Name: "wallet", Type: "address"},
				{Name: "token", Type: "address"},
				{Name: "param", Type: "uint256"},
			},
			"Order": {
				{Name: "takeId", Type: "uint256"},
				{Name: "killId", Type: "uint256"},
				{Name: "expiry", Type: "uint256"},
				{Name: "maker", Type: "Party"},
				{Name: "taker", Type: "Party"},
				{Name: "affiliate", Type: "Party"},
			},
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              EIP712DomainName,
			Version:           EIP712DomainVersion,
			VerifyingContract: contract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"takeId":    o.TakeID.String(),
			"killId":    o.KillID.String(),
			"expiry":    o.Expiry.String(),
			"maker":     partyMessage(o.Maker),
			"taker":     partyMessage(o.Taker),
			"affiliate": partyMessage(o.Affiliate),
		},
	}
}

func TestTypeStrings(t *testing.T) {
	t.Parallel()

	data := typedData(testContract, testOrder())
	assert.Equal(t, OrderTypeString, string(data.EncodeType("Order")))
	assert.Equal(t, PartyTypeString, string(data.EncodeType("Party")))
	assert.Equal(t, DomainTypeString, string(data.EncodeType("EIP712Domain")))
}

func TestOrderDigestMatchesWalletEncoding(t *testing.T) {
	t.Parallel()

	order := testOrder()
	data := typedData(testContract, order)

	want, _, err := apitypes.TypedDataAndHash(data)
	require.NoError(t, err)
	assert.Equal(t, common.BytesToHash(want), CreateOrderSignHash(NewEIP712Domain(testContract), order))

	separator, err := data.HashStruct("EIP712Domain", data.Domain.Map())
	require.NoError(t, err)
	assert.Equal(t, common.BytesToHash(separator), NewEIP712Domain(testContract).Hash())

	structHash, err := data.HashStruct("Order", data.Message)
	require.NoError(t, err)
	assert.Equal(t, common.BytesToHash(structHash), order.Hash())
}

func TestOrderDigestSensitivity(t *testing.T) {
	t.Parallel()

	domain := NewEIP712Domain(testContract)
	base := CreateOrderSignHash(domain, testOrder())

	mutations := map[string]func(o *Order){
		"take id":         func(o *Order) { o.TakeID = big.NewInt(9) },
		"kill id":         func(o *Order) { o.KillID = big.NewInt(9) },
		"expiry":          func(o *Order) { o.Expiry = big.NewInt(9) },
		"maker wallet":    func(o *Order) { o.Maker.Wallet = testTaker },
		"maker token":     func(o *Order) { o.Maker.Token = NativeToken },
		"maker param":     func(o *Order) { o.Maker.Param = big.NewInt(101) },
		"taker param":     func(o *Order) { o.Taker.Param = big.NewInt(6) },
		"affiliate party": func(o *Order) { o.Affiliate.Wallet = testMaker },
		"swapped parties": func(o *Order) { o.Maker, o.Taker = o.Taker, o.Maker },
	}
	for name, mutate := range mutations {
		order := testOrder()
		mutate(order)
		assert.NotEqual(t, base, CreateOrderSignHash(domain, order), name)
	}

	// nil and zero params encode the same
	order := testOrder()
	order.Affiliate.Param = nil
	assert.Equal(t, base, CreateOrderSignHash(domain, order))
}

func TestDomainIsolation(t *testing.T) {
	t.Parallel()

	order := testOrder()
	base := CreateOrderSignHash(NewEIP712Domain(testContract), order)

	other := NewEIP712Domain(testMaker)
	assert.NotEqual(t, base, CreateOrderSignHash(other, order))

	renamed := NewEIP712Domain(testContract)
	renamed.Name = "SWAP2"
	assert.NotEqual(t, base, CreateOrderSignHash(renamed, order))

	versioned := NewEIP712Domain(testContract)
	versioned.Version = "1"
	assert.NotEqual(t, base, CreateOrderSignHash(versioned, order))
}

func TestPersonalMessageHash(t *testing.T) {
	t.Parallel()

	digest := crypto.Keccak256Hash([]byte("order"))
	prefixed := append([]byte("\x19Ethereum Signed Message:\n32"), digest.Bytes()...)
	assert.Equal(t, crypto.Keccak256Hash(prefixed), PersonalMessageHash(digest))
	assert.Equal(t, common.BytesToHash(accounts.TextHash(digest.Bytes())), PersonalMessageHash(digest))
}

func TestSimpleOrderHash(t *testing.T) {
	t.Parallel()

	order := &SimpleOrder{
		ID:          big.NewInt(7),
		Expiry:      big.NewInt(1_700_003_600),
		MakerWallet: testMaker,
		MakerParam:  big.NewInt(100),
		MakerToken:  testToken,
		TakerWallet: testTaker,
		TakerParam:  big.NewInt(5),
		TakerToken:  NativeToken,
	}

	var packed []byte
	packed = append(packed, 0x00)
	packed = append(packed, testContract.Bytes()...)
	packed = append(packed, common.LeftPadBytes(big.NewInt(7).Bytes(), 32)...)
	packed = append(packed, testMaker.Bytes()...)
	packed = append(packed, common.LeftPadBytes(big.NewInt(100).Bytes(), 32)...)
	packed = append(packed, testToken.Bytes()...)
	packed = append(packed, testTaker.Bytes()...)
	packed = append(packed, common.LeftPadBytes(big.NewInt(5).Bytes(), 32)...)
	packed = append(packed, NativeToken.Bytes()...)
	packed = append(packed, common.LeftPadBytes(big.NewInt(1_700_003_600).Bytes(), 32)...)
	require.Len(t, packed, 229)

	assert.Equal(t, crypto.Keccak256Hash(packed), SimpleOrderHash(testContract, order))
	assert.NotEqual(t, SimpleOrderHash(testContract, order), SimpleOrderHash(testMaker, order))
}

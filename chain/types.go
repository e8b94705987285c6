package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// NativeToken is the token sentinel denoting native currency.
var NativeToken = common.Address{}

// SignatureVersion selects how the signed digest was assembled
type SignatureVersion uint8

const (
	// VersionStructured signs the typed-data digest directly
	VersionStructured SignatureVersion = 0x01
	// VersionPersonalSign wraps the typed-data digest in the personal message prefix
	VersionPersonalSign SignatureVersion = 0x45
)

// TransferMode selects the asset transfer variant used for a leg
type TransferMode int

const (
	// TransferSafe notifies contract recipients and lets them reject the transfer
	TransferSafe TransferMode = iota
	// TransferUnchecked moves the asset without notifying the recipient
	TransferUnchecked
)

// Party represents one side of an order
type Party struct {
	Wallet common.Address `json:"wallet"`
	Token  common.Address `json:"token"`
	Param  *big.Int       `json:"param"`
}

// IsNative reports whether the party trades native currency
func (p Party) IsNative() bool {
	return p.Token == NativeToken
}

// Order represents a signed two (or three) party swap
type Order struct {
	TakeID    *big.Int `json:"takeId"`
	KillID    *big.Int `json:"killId"`
	Expiry    *big.Int `json:"expiry"`
	Maker     Party    `json:"maker"`
	Taker     Party    `json:"taker"`
	Affiliate Party    `json:"affiliate"`
}

// HasAffiliate reports whether the order carries an affiliate leg
func (o *Order) HasAffiliate() bool {
	return o.Affiliate.Wallet != (common.Address{})
}

// SimpleOrder is the flat single-identifier legacy order form
type SimpleOrder struct {
	ID          *big.Int       `json:"id"`
	Expiry      *big.Int       `json:"expiry"`
	MakerWallet common.Address `json:"makerWallet"`
	MakerParam  *big.Int       `json:"makerParam"`
	MakerToken  common.Address `json:"makerToken"`
	TakerWallet common.Address `json:"takerWallet"`
	TakerParam  *big.Int       `json:"takerParam"`
	TakerToken  common.Address `json:"takerToken"`
}

// Signature carries the signer and the secp256k1 signature components
type Signature struct {
	Signer  common.Address   `json:"signer"`
	R       [32]byte         `json:"r"`
	S       [32]byte         `json:"s"`
	V       uint8            `json:"v"`
	Version SignatureVersion `json:"version"`
}

// ERC20 ABI JSON for the calls made while settling a fungible leg
const erc20ABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// ERC721 ABI JSON for non-fungible legs and interface detection
const erc721ABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "interfaceId", "type": "bytes4"}],
		"name": "supportsInterface",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "tokenId", "type": "uint256"}],
		"name": "ownerOf",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "tokenId", "type": "uint256"}
		],
		"name": "safeTransferFrom",
		"outputs": [],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "tokenId", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [],
		"type": "function"
	}
]`

// Multisend ABI JSON
const multisendABIJSON = `[
	{
		"constant": false,
		"inputs": [
			{"name": "transactions", "type": "bytes"}
		],
		"name": "multiSend",
		"outputs": [],
		"type": "function"
	}
]`

// ERC721InterfaceID is the ERC165 identifier of ERC721
var ERC721InterfaceID = [4]byte{0x80, 0xac, 0x58, 0xcd}

var (
	erc20ABI     = mustParseABI(erc20ABIJSON)
	erc721ABI    = mustParseABI(erc721ABIJSON)
	multisendABI = mustParseABI(multisendABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("failed to parse ABI: " + err.Error())
	}
	return parsed
}

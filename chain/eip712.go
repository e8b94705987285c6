package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EIP712 Domain constants of the swap protocol
const (
	EIP712DomainName    = "SWAP"
	EIP712DomainVersion = "2"
)

// Type strings are part of the wire contract. Changing any of them is a
// protocol version change.
const (
	DomainTypeString = "EIP712Domain(string name,string version,address verifyingContract)"
	PartyTypeString  = "Party(address wallet,address token,uint256 param)"
	OrderTypeString  = "Order(uint256 takeId,uint256 killId,uint256 expiry,Party maker,Party taker,Party affiliate)" + PartyTypeString
)

// Pre-computed type hashes using keccak256
var (
	EIP712DomainTypeHash = crypto.Keccak256Hash([]byte(DomainTypeString))
	PartyTypeHash        = crypto.Keccak256Hash([]byte(PartyTypeString))
	OrderTypeHash        = crypto.Keccak256Hash([]byte(OrderTypeString))
)

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	addressType, _ = abi.NewType("address", "", nil)
)

// EIP712Domain represents the EIP712 domain separator data
type EIP712Domain struct {
	Name              string
	Version           string
	VerifyingContract common.Address
}

// NewEIP712Domain creates a new EIP712Domain with the standard values
func NewEIP712Domain(verifyingContract common.Address) *EIP712Domain {
	return &EIP712Domain{
		Name:              EIP712DomainName,
		Version:           EIP712DomainVersion,
		VerifyingContract: verifyingContract,
	}
}

// Hash computes the EIP712 domain separator hash
func (d *EIP712Domain) Hash() common.Hash {
	// typeHash ++ keccak256(name) ++ keccak256(version) ++ verifyingContract
	arguments := abi.Arguments{
		{Type: bytes32Type},
		{Type: bytes32Type},
		{Type: bytes32Type},
		{Type: addressType},
	}

	encoded, err := arguments.Pack(
		EIP712DomainTypeHash,
		crypto.Keccak256Hash([]byte(d.Name)),
		crypto.Keccak256Hash([]byte(d.Version)),
		d.VerifyingContract,
	)
	if err != nil {
		panic("failed to encode domain separator: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// Hash computes the struct hash for the party
func (p Party) Hash() common.Hash {
	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: addressType}, // wallet
		{Type: addressType}, // token
		{Type: uint256Type}, // param
	}

	encoded, err := arguments.Pack(
		PartyTypeHash,
		p.Wallet,
		p.Token,
		orZero(p.Param),
	)
	if err != nil {
		panic("failed to encode party struct: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// Hash computes the struct hash for the order
func (o *Order) Hash() common.Hash {
	arguments := abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: uint256Type}, // takeId
		{Type: uint256Type}, // killId
		{Type: uint256Type}, // expiry
		{Type: bytes32Type}, // maker
		{Type: bytes32Type}, // taker
		{Type: bytes32Type}, // affiliate
	}

	encoded, err := arguments.Pack(
		OrderTypeHash,
		orZero(o.TakeID),
		orZero(o.KillID),
		orZero(o.Expiry),
		o.Maker.Hash(),
		o.Taker.Hash(),
		o.Affiliate.Hash(),
	)
	if err != nil {
		panic("failed to encode order struct: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// CreateOrderSignHash creates the final EIP712 hash to be signed
// This follows the EIP712 specification: keccak256("\x19\x01" ++ domainSeparator ++ structHash)
func CreateOrderSignHash(domain *EIP712Domain, order *Order) common.Hash {
	return typedDataHash(domain.Hash(), order.Hash())
}

func typedDataHash(domainSeparator, structHash common.Hash) common.Hash {
	data := make([]byte, 0, 2+32+32)
	data = append(data, 0x19, 0x01)
	data = append(data, domainSeparator.Bytes()...)
	data = append(data, structHash.Bytes()...)

	return crypto.Keccak256Hash(data)
}

// PersonalMessageHash wraps a digest in the "\x19Ethereum Signed Message:\n32" prefix
func PersonalMessageHash(digest common.Hash) common.Hash {
	return common.BytesToHash(accounts.TextHash(digest.Bytes()))
}

// SimpleOrderHash computes the packed legacy digest of a flat order, before
// the personal message prefix is applied.
func SimpleOrderHash(verifyingContract common.Address, o *SimpleOrder) common.Hash {
	// Encode: 0x00 (1 byte) + contract (20) + id (32) + maker (20+32+20) + taker (20+32+20) + expiry (32)
	packed := make([]byte, 0, 1+20+32+20+32+20+20+32+20+32)
	packed = append(packed, 0x00)
	packed = append(packed, verifyingContract.Bytes()...)
	packed = append(packed, common.LeftPadBytes(orZero(o.ID).Bytes(), 32)...)
	packed = append(packed, o.MakerWallet.Bytes()...)
	packed = append(packed, common.LeftPadBytes(orZero(o.MakerParam).Bytes(), 32)...)
	packed = append(packed, o.MakerToken.Bytes()...)
	packed = append(packed, o.TakerWallet.Bytes()...)
	packed = append(packed, common.LeftPadBytes(orZero(o.TakerParam).Bytes(), 32)...)
	packed = append(packed, o.TakerToken.Bytes()...)
	packed = append(packed, common.LeftPadBytes(orZero(o.Expiry).Bytes(), 32)...)

	return crypto.Keccak256Hash(packed)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

package chain

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// OrderData represents the data for building an order
type OrderData struct {
	TakeID    *big.Int // generated when nil
	KillID    *big.Int // defaults to TakeID
	Expiry    *big.Int
	Maker     Party
	Taker     Party
	Affiliate Party
}

// SignedOrder represents an order with its signature
type SignedOrder struct {
	Order     *Order
	Signature *Signature
}

// OrderBuilder builds and signs orders off-chain. The key may belong to the
// maker or to a delegate the maker has authorized.
type OrderBuilder struct {
	verifier *Verifier
	signer   *ecdsa.PrivateKey
}

// NewOrderBuilder creates a new OrderBuilder
func NewOrderBuilder(verifyingContract common.Address, signer *ecdsa.PrivateKey) *OrderBuilder {
	return &OrderBuilder{
		verifier: NewVerifier(NewEIP712Domain(verifyingContract)),
		signer:   signer,
	}
}

// Signer returns the address of the signing key
func (ob *OrderBuilder) Signer() common.Address {
	return crypto.PubkeyToAddress(ob.signer.PublicKey)
}

// BuildOrder builds an order from OrderData
func (ob *OrderBuilder) BuildOrder(data *OrderData) (*Order, error) {
	if err := ob.validateInputs(data); err != nil {
		return nil, err
	}

	takeID := data.TakeID
	if takeID == nil {
		id, err := generateID()
		if err != nil {
			return nil, err
		}
		takeID = id
	}

	killID := data.KillID
	if killID == nil {
		killID = takeID
	}

	affiliate := data.Affiliate
	if affiliate.Param == nil {
		affiliate.Param = new(big.Int)
	}

	return &Order{
		TakeID:    new(big.Int).Set(takeID),
		KillID:    new(big.Int).Set(killID),
		Expiry:    new(big.Int).Set(data.Expiry),
		Maker:     data.Maker,
		Taker:     data.Taker,
		Affiliate: affiliate,
	}, nil
}

// BuildSignedOrder builds and signs an order
func (ob *OrderBuilder) BuildSignedOrder(data *OrderData, version SignatureVersion) (*SignedOrder, error) {
	order, err := ob.BuildOrder(data)
	if err != nil {
		return nil, err
	}

	signature, err := ob.SignOrder(order, version)
	if err != nil {
		return nil, err
	}

	return &SignedOrder{
		Order:     order,
		Signature: signature,
	}, nil
}

// SignOrder signs an order under the given signature version
func (ob *OrderBuilder) SignOrder(order *Order, version SignatureVersion) (*Signature, error) {
	digest, err := ob.verifier.SignedDigest(order, version)
	if err != nil {
		return nil, err
	}

	v, r, s, err := ob.sign(digest)
	if err != nil {
		return nil, err
	}

	return &Signature{
		Signer:  ob.Signer(),
		R:       r,
		S:       s,
		V:       v,
		Version: version,
	}, nil
}

// SignSimpleOrder signs a flat legacy order. Only a key belonging to the
// maker wallet produces a signature the engine accepts.
func (ob *OrderBuilder) SignSimpleOrder(order *SimpleOrder) (uint8, [32]byte, [32]byte, error) {
	return ob.sign(ob.verifier.SimpleDigest(order))
}

func (ob *OrderBuilder) sign(digest common.Hash) (v uint8, r, s [32]byte, err error) {
	signature, err := crypto.Sign(digest.Bytes(), ob.signer)
	if err != nil {
		return 0, r, s, fmt.Errorf("failed to sign order: %w", err)
	}

	copy(r[:], signature[0:32])
	copy(s[:], signature[32:64])
	// Add recovery ID offset
	v = signature[64] + 27

	return v, r, s, nil
}

func (ob *OrderBuilder) validateInputs(data *OrderData) error {
	if data.Maker.Wallet == (common.Address{}) {
		return fmt.Errorf("maker wallet is required")
	}
	if data.Expiry == nil || data.Expiry.Sign() <= 0 {
		return fmt.Errorf("expiry is required")
	}
	if data.Maker.Param == nil || data.Maker.Param.Sign() < 0 {
		return fmt.Errorf("maker param is required")
	}
	if data.Taker.Param == nil || data.Taker.Param.Sign() < 0 {
		return fmt.Errorf("taker param is required")
	}
	if data.Affiliate.Param != nil && data.Affiliate.Param.Sign() < 0 {
		return fmt.Errorf("affiliate param must not be negative")
	}
	return nil
}

func generateID() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	id, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate order id: %w", err)
	}
	return id, nil
}

// Package events defines the lifecycle events emitted by committed settlement calls.
package events

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/swap-sdk-go/chain"
)

// Event names
const (
	Authorize = "Authorize"
	Revoke    = "Revoke"
	Swap      = "Swap"
	Cancel    = "Cancel"
)

// Event is a lifecycle event emitted by a committed call
type Event interface {
	Name() string
}

// Sink receives events after the call that produced them committed
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// AuthorizeEvent records an approver empowering a delegate until expiry
type AuthorizeEvent struct {
	Approver common.Address `json:"approver"`
	Delegate common.Address `json:"delegate"`
	Expiry   *big.Int       `json:"expiry"`
}

func (AuthorizeEvent) Name() string { return Authorize }

// RevokeEvent records an approver withdrawing a delegation
type RevokeEvent struct {
	Approver common.Address `json:"approver"`
	Delegate common.Address `json:"delegate"`
}

func (RevokeEvent) Name() string { return Revoke }

// SwapEvent records a settled order with every order field
type SwapEvent struct {
	TakeID         *big.Int       `json:"takeId"`
	Maker          common.Address `json:"maker"`
	MakerParam     *big.Int       `json:"makerParam"`
	MakerToken     common.Address `json:"makerToken"`
	Taker          common.Address `json:"taker"`
	TakerParam     *big.Int       `json:"takerParam"`
	TakerToken     common.Address `json:"takerToken"`
	Affiliate      common.Address `json:"affiliate"`
	AffiliateParam *big.Int       `json:"affiliateParam"`
	AffiliateToken common.Address `json:"affiliateToken"`
	KillID         *big.Int       `json:"killId"`
}

func (SwapEvent) Name() string { return Swap }

// NewSwapEvent builds the event of a settled structured order
func NewSwapEvent(o *chain.Order) *SwapEvent {
	return &SwapEvent{
		TakeID:         o.TakeID,
		Maker:          o.Maker.Wallet,
		MakerParam:     o.Maker.Param,
		MakerToken:     o.Maker.Token,
		Taker:          o.Taker.Wallet,
		TakerParam:     o.Taker.Param,
		TakerToken:     o.Taker.Token,
		Affiliate:      o.Affiliate.Wallet,
		AffiliateParam: o.Affiliate.Param,
		AffiliateToken: o.Affiliate.Token,
		KillID:         o.KillID,
	}
}

// CancelEvent records a maker canceling an identifier
type CancelEvent struct {
	ID    *big.Int       `json:"id"`
	Maker common.Address `json:"maker"`
}

func (CancelEvent) Name() string { return Cancel }

// Package state holds the two persisted maps of the settlement engine:
// order status keyed by (maker, id) and approval expiry keyed by
// (approver, delegate).
package state

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrStoreClosed is returned by stores used after Close
var ErrStoreClosed = errors.New("state: store closed")

// ErrDeltaTooLarge is returned when a delta exceeds what one store
// transaction can hold
var ErrDeltaTooLarge = errors.New("state: delta too large for one transaction")

// Status is the lifecycle status of an order identifier
type Status uint8

const (
	StatusOpen Status = iota
	StatusTaken
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusTaken:
		return "TAKEN"
	case StatusCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// Reader reads order status and approvals. Absent statuses read as
// StatusOpen, absent approvals as a nil expiry.
type Reader interface {
	Status(maker common.Address, id *big.Int) (Status, error)
	Approval(approver, delegate common.Address) (*big.Int, error)
}

// ReadWriter is a Reader that accepts mutations
type ReadWriter interface {
	Reader
	SetStatus(maker common.Address, id *big.Int, status Status)
	SetApproval(approver, delegate common.Address, expiry *big.Int)
	DeleteApproval(approver, delegate common.Address)
}

// Store is durable state. Apply must write every change of a delta or none.
type Store interface {
	Reader
	Apply(d *Delta) error
	Close() error
}

type statusKey struct {
	maker common.Address
	id    common.Hash
}

type approvalKey struct {
	approver common.Address
	delegate common.Address
}

func newStatusKey(maker common.Address, id *big.Int) statusKey {
	return statusKey{maker: maker, id: common.BigToHash(id)}
}

// Delta is a set of pending changes. A nil approval expiry marks a deletion.
type Delta struct {
	statuses  map[statusKey]Status
	approvals map[approvalKey]*big.Int
}

// NewDelta returns an empty delta
func NewDelta() *Delta {
	return &Delta{
		statuses:  make(map[statusKey]Status),
		approvals: make(map[approvalKey]*big.Int),
	}
}

// Len returns the number of changed keys
func (d *Delta) Len() int {
	return len(d.statuses) + len(d.approvals)
}

// merge copies every change of other over d
func (d *Delta) merge(other *Delta) {
	for k, v := range other.statuses {
		d.statuses[k] = v
	}
	for k, v := range other.approvals {
		d.approvals[k] = v
	}
}

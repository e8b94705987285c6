package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// View is a copy-on-write overlay over a parent Reader. Writes stay in the
// view until Commit; a view that is dropped leaves the parent untouched.
type View struct {
	parent Reader
	delta  *Delta
	commit func(*Delta) error
}

var _ ReadWriter = (*View)(nil)

// NewView opens a view whose Commit applies to the store
func NewView(s Store) *View {
	return &View{
		parent: s,
		delta:  NewDelta(),
		commit: s.Apply,
	}
}

// Child opens a nested view whose Commit merges into v
func (v *View) Child() *View {
	return &View{
		parent: v,
		delta:  NewDelta(),
		commit: func(d *Delta) error {
			v.delta.merge(d)
			return nil
		},
	}
}

// Status returns the status seen through the view
func (v *View) Status(maker common.Address, id *big.Int) (Status, error) {
	if s, ok := v.delta.statuses[newStatusKey(maker, id)]; ok {
		return s, nil
	}
	return v.parent.Status(maker, id)
}

// Approval returns the approval expiry seen through the view
func (v *View) Approval(approver, delegate common.Address) (*big.Int, error) {
	if expiry, ok := v.delta.approvals[approvalKey{approver, delegate}]; ok {
		return expiry, nil
	}
	return v.parent.Approval(approver, delegate)
}

func (v *View) SetStatus(maker common.Address, id *big.Int, status Status) {
	v.delta.statuses[newStatusKey(maker, id)] = status
}

func (v *View) SetApproval(approver, delegate common.Address, expiry *big.Int) {
	v.delta.approvals[approvalKey{approver, delegate}] = new(big.Int).Set(expiry)
}

func (v *View) DeleteApproval(approver, delegate common.Address) {
	v.delta.approvals[approvalKey{approver, delegate}] = nil
}

// Inverse returns a delta restoring the parent's current values of every
// key changed in v. Applied after Commit, it undoes the commit as long as
// nothing else wrote those keys in between.
func (v *View) Inverse() (*Delta, error) {
	undo := NewDelta()
	for k := range v.delta.statuses {
		s, err := v.parent.Status(k.maker, new(big.Int).SetBytes(k.id.Bytes()))
		if err != nil {
			return nil, err
		}
		undo.statuses[k] = s
	}
	for k := range v.delta.approvals {
		expiry, err := v.parent.Approval(k.approver, k.delegate)
		if err != nil {
			return nil, err
		}
		undo.approvals[k] = expiry
	}
	return undo, nil
}

// Commit hands the pending changes to the parent. The view must not be used afterwards.
func (v *View) Commit() error {
	if v.delta.Len() == 0 {
		return nil
	}
	return v.commit(v.delta)
}

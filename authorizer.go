package swap

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/swap-sdk-go/events"
	"github.com/kaifufi/swap-sdk-go/state"
)

// Registry tracks which delegates an approver has empowered and until when.
// It keeps no state of its own; approvals live in the store handed to each call.
type Registry struct {
	now func() time.Time
}

// NewRegistry creates a Registry reading time from now
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{now: now}
}

func (r *Registry) timestamp() *big.Int {
	return big.NewInt(r.now().Unix())
}

// Authorize empowers delegate to act for approver until expiry, replacing
// any earlier approval of the pair.
func (r *Registry) Authorize(rw state.ReadWriter, approver, delegate common.Address, expiry *big.Int) (*events.AuthorizeEvent, error) {
	if delegate == approver {
		return nil, ErrInvalidDelegate
	}
	if expiry == nil || expiry.Cmp(r.timestamp()) <= 0 {
		return nil, ErrInvalidExpiry
	}

	rw.SetApproval(approver, delegate, expiry)
	return &events.AuthorizeEvent{
		Approver: approver,
		Delegate: delegate,
		Expiry:   new(big.Int).Set(expiry),
	}, nil
}

// Revoke clears any approval of delegate by approver. It never fails.
func (r *Registry) Revoke(rw state.ReadWriter, approver, delegate common.Address) *events.RevokeEvent {
	rw.DeleteApproval(approver, delegate)
	return &events.RevokeEvent{
		Approver: approver,
		Delegate: delegate,
	}
}

// IsAuthorized reports whether delegate may act for approver now. An
// approver is always authorized for itself; expired approvals count as absent.
func (r *Registry) IsAuthorized(rd state.Reader, approver, delegate common.Address) (bool, error) {
	if approver == delegate {
		return true, nil
	}
	expiry, err := rd.Approval(approver, delegate)
	if err != nil {
		return false, fmt.Errorf("failed to read approval: %w", err)
	}
	return expiry != nil && expiry.Cmp(r.timestamp()) > 0, nil
}

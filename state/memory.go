package state

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemStore keeps state in process memory
type MemStore struct {
	mu        sync.RWMutex
	closed    bool
	statuses  map[statusKey]Status
	approvals map[approvalKey]*big.Int
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		statuses:  make(map[statusKey]Status),
		approvals: make(map[approvalKey]*big.Int),
	}
}

func (m *MemStore) Status(maker common.Address, id *big.Int) (Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return StatusOpen, ErrStoreClosed
	}
	return m.statuses[newStatusKey(maker, id)], nil
}

func (m *MemStore) Approval(approver, delegate common.Address) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	expiry, ok := m.approvals[approvalKey{approver, delegate}]
	if !ok {
		return nil, nil
	}
	return new(big.Int).Set(expiry), nil
}

func (m *MemStore) Apply(d *Delta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	for k, s := range d.statuses {
		m.statuses[k] = s
	}
	for k, expiry := range d.approvals {
		if expiry == nil {
			delete(m.approvals, k)
			continue
		}
		m.approvals[k] = new(big.Int).Set(expiry)
	}
	return nil
}

func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

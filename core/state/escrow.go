package state

import (
	"fmt"
	"math/big"

	"propchain/native/escrow"
)

type storedEscrow struct {
	ID         uint64
	PropertyID uint64
	Buyer      [20]byte
	Seller     [20]byte
	Amount     string
	Status     uint8
}

func toEscrow(stored *storedEscrow) (*escrow.Escrow, error) {
	amount := big.NewInt(0)
	if stored.Amount != "" {
		parsed, ok := new(big.Int).SetString(stored.Amount, 10)
		if !ok {
			return nil, fmt.Errorf("escrow: corrupt amount %q", stored.Amount)
		}
		amount = parsed
	}
	status := escrow.Status(stored.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("escrow: corrupt status %d", stored.Status)
	}
	return &escrow.Escrow{
		ID:         stored.ID,
		PropertyID: stored.PropertyID,
		Buyer:      stored.Buyer,
		Seller:     stored.Seller,
		Amount:     amount,
		Status:     status,
	}, nil
}

// EscrowNextID increments the durable escrow counter and returns the freshly
// assigned id. Ids start at 1 and are never reused.
func (m *Manager) EscrowNextID() (uint64, error) {
	if m == nil {
		return 0, fmt.Errorf("escrow: state manager not initialised")
	}
	var count uint64
	if _, err := m.KVGet(escrowCountKey, &count); err != nil {
		return 0, err
	}
	count++
	if err := m.KVPut(escrowCountKey, count); err != nil {
		return 0, err
	}
	return count, nil
}

// EscrowCount returns the number of escrows created so far.
func (m *Manager) EscrowCount() (uint64, error) {
	if m == nil {
		return 0, fmt.Errorf("escrow: state manager not initialised")
	}
	var count uint64
	if _, err := m.KVGet(escrowCountKey, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// EscrowPut persists the provided escrow record.
func (m *Manager) EscrowPut(e *escrow.Escrow) error {
	if m == nil {
		return fmt.Errorf("escrow: state manager not initialised")
	}
	if e == nil {
		return fmt.Errorf("escrow: record required")
	}
	if e.ID == 0 {
		return fmt.Errorf("escrow: id must not be zero")
	}
	if !e.Status.Valid() {
		return fmt.Errorf("escrow: invalid status %d", e.Status)
	}
	amount := "0"
	if e.Amount != nil {
		if e.Amount.Sign() < 0 {
			return fmt.Errorf("escrow: amount must be non-negative")
		}
		amount = e.Amount.String()
	}
	stored := &storedEscrow{
		ID:         e.ID,
		PropertyID: e.PropertyID,
		Buyer:      e.Buyer,
		Seller:     e.Seller,
		Amount:     amount,
		Status:     uint8(e.Status),
	}
	return m.KVPut(escrowKey(e.ID), stored)
}

// EscrowGet loads the escrow record for the supplied id. A missing record
// returns (nil, false, nil).
func (m *Manager) EscrowGet(id uint64) (*escrow.Escrow, bool, error) {
	if m == nil {
		return nil, false, fmt.Errorf("escrow: state manager not initialised")
	}
	var stored storedEscrow
	ok, err := m.KVGet(escrowKey(id), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	esc, err := toEscrow(&stored)
	if err != nil {
		return nil, false, err
	}
	return esc, true, nil
}

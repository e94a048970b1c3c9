package escrow

import "math/big"

// Status represents the lifecycle state of an escrow. Created is the only
// non-terminal state; Released and Refunded permit no further transition.
type Status uint8

const (
	StatusCreated Status = iota + 1
	StatusReleased
	StatusRefunded
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusReleased, StatusRefunded:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status permits no further transition.
func (s Status) Terminal() bool {
	return s == StatusReleased || s == StatusRefunded
}

// String returns the lowercase name used in events and RPC payloads.
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusReleased:
		return "released"
	case StatusRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// Escrow couples a pending property transfer to an advisory amount. The
// amount is metadata only; no native funds move through the registry. Seller
// is fixed to the property owner at creation time and may go stale if the
// property changes hands before resolution.
type Escrow struct {
	ID         uint64
	PropertyID uint64
	Buyer      [20]byte
	Seller     [20]byte
	Amount     *big.Int
	Status     Status
}

// Clone returns a deep copy of the escrow object so callers can safely mutate
// the copy without affecting the stored instance.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Amount != nil {
		clone.Amount = new(big.Int).Set(e.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

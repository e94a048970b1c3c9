package escrow

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"propchain/core/events"
	"propchain/core/types"
)

var (
	errNilState    = errors.New("escrow engine: state not configured")
	errNilRegistry = errors.New("escrow engine: registry not configured")

	// ErrNotFound is returned when the escrow id is unknown.
	ErrNotFound = errors.New("escrow: not found")
	// ErrAlreadyTerminal is returned when the escrow has already been
	// released or refunded. Terminal states permit no further transition,
	// regardless of caller.
	ErrAlreadyTerminal = errors.New("escrow: already released or refunded")
	// ErrUnauthorized is returned when the caller is not the party the
	// transition requires (buyer for release, seller for refund).
	ErrUnauthorized = errors.New("escrow: unauthorized")
)

type engineState interface {
	EscrowNextID() (uint64, error)
	EscrowPut(*Escrow) error
	EscrowGet(id uint64) (*Escrow, bool, error)
}

// PropertyRegistry is the slice of the registry the escrow engine needs:
// owner lookup at creation and the transfer that settles a release. Release
// calls Transfer directly within the enclosing operation so the settlement is
// atomic; a transfer failure leaves the escrow in Created.
type PropertyRegistry interface {
	Owner(id uint64) ([20]byte, error)
	Transfer(ctx context.Context, id uint64, to, caller [20]byte) error
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine drives the escrow state machine. Created is the only live state;
// Release settles by transferring the property, Refund cancels in place.
type Engine struct {
	state    engineState
	registry PropertyRegistry
	emitter  events.Emitter
}

// NewEngine creates an escrow engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistry configures the property registry the engine settles against.
func (e *Engine) SetRegistry(registry PropertyRegistry) { e.registry = registry }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) loadEscrow(id uint64) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	esc, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return esc, nil
}

// Create initialises and persists a new escrow for the property. Only the
// current owner may open one. The recorded buyer is the creator, which at
// creation time is also the seller. Release still runs the full transfer
// machinery against the recorded buyer, so the shape holds up if the buyer
// plumbing ever carries a distinct account.
func (e *Engine) Create(propertyID uint64, amount *big.Int, caller [20]byte) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.registry == nil {
		return nil, errNilRegistry
	}
	owner, err := e.registry.Owner(propertyID)
	if err != nil {
		return nil, err
	}
	if owner != caller {
		return nil, ErrUnauthorized
	}
	amt := big.NewInt(0)
	if amount != nil {
		if amount.Sign() < 0 {
			return nil, fmt.Errorf("escrow: amount must be non-negative")
		}
		amt = new(big.Int).Set(amount)
	}
	id, err := e.state.EscrowNextID()
	if err != nil {
		return nil, err
	}
	esc := &Escrow{
		ID:         id,
		PropertyID: propertyID,
		Buyer:      caller,
		Seller:     owner,
		Amount:     amt,
		Status:     StatusCreated,
	}
	if err := e.state.EscrowPut(esc); err != nil {
		return nil, err
	}
	e.emit(NewCreatedEvent(esc))
	return esc.Clone(), nil
}

// Release settles the escrow by transferring the property to the recorded
// buyer. Buyer only. The transfer runs first and any failure there (missing
// property, stale ownership, compliance rejection) is the release's failure:
// the escrow stays Created and the caller may retry the whole operation.
func (e *Engine) Release(ctx context.Context, id uint64, caller [20]byte) error {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if esc.Status.Terminal() {
		return ErrAlreadyTerminal
	}
	if esc.Buyer != caller {
		return ErrUnauthorized
	}
	if e.registry == nil {
		return errNilRegistry
	}
	if err := e.registry.Transfer(ctx, esc.PropertyID, esc.Buyer, caller); err != nil {
		return err
	}
	esc.Status = StatusReleased
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(NewReleasedEvent(esc))
	return nil
}

// Refund cancels the escrow. Seller only. No property or fund movement
// occurs; the amount is advisory metadata.
func (e *Engine) Refund(id uint64, caller [20]byte) error {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if esc.Status.Terminal() {
		return ErrAlreadyTerminal
	}
	if esc.Seller != caller {
		return ErrUnauthorized
	}
	esc.Status = StatusRefunded
	if err := e.state.EscrowPut(esc); err != nil {
		return err
	}
	e.emit(NewRefundedEvent(esc))
	return nil
}

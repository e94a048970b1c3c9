package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"propchain/core/events"
	"propchain/core/types"
	"propchain/native/compliance"
)

var errNilState = errors.New("registry engine: state not configured")

type engineState interface {
	RegistryNextPropertyID() (uint64, error)
	RegistryPutProperty(*Property) error
	RegistryGetProperty(id uint64) (*Property, bool, error)
	RegistryAddOwnership(addr [20]byte, id uint64) error
	RegistryRemoveOwnership(addr [20]byte, id uint64) error
	RegistryApproval(id uint64) ([20]byte, bool, error)
	RegistrySetApproval(id uint64, delegate [20]byte) error
	RegistryClearApproval(id uint64) error
}

type registryEvent struct {
	evt *types.Event
}

func (e registryEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e registryEvent) Event() *types.Event { return e.evt }

// Engine wires the registry business logic with external state, the
// compliance gate and event emitters. All mutations run inside the node
// facade's serialization; the engine itself holds no locks.
type Engine struct {
	state   engineState
	checker compliance.Checker
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a registry engine with a passthrough compliance gate and a
// no-op emitter. Callers can override both via the setters.
func NewEngine() *Engine {
	return &Engine{
		checker: compliance.Passthrough{},
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetChecker configures the compliance gate applied to transfer recipients.
// Passing nil resets the gate to the passthrough behaviour.
func (e *Engine) SetChecker(checker compliance.Checker) {
	if checker == nil {
		e.checker = compliance.Passthrough{}
		return
	}
	e.checker = checker
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(registryEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) loadProperty(id uint64) (*Property, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	property, ok, err := e.state.RegistryGetProperty(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPropertyNotFound
	}
	return property, nil
}

func (e *Engine) checkRecipient(ctx context.Context, account [20]byte) error {
	compliant, err := e.checker.IsCompliant(ctx, account)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrComplianceCheckFailed, err)
	}
	if !compliant {
		return ErrNotCompliant
	}
	return nil
}

// Register assigns the next property id and records the caller as the owner.
// Metadata is not validated here; the location check applies on updates only,
// keeping registration cheap. Registration is not compliance gated: the gate
// applies to transfer recipients.
func (e *Engine) Register(caller [20]byte, meta Metadata) (*Property, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	id, err := e.state.RegistryNextPropertyID()
	if err != nil {
		return nil, err
	}
	property := &Property{
		ID:           id,
		Owner:        caller,
		Metadata:     meta,
		RegisteredAt: e.now(),
	}
	if err := e.state.RegistryPutProperty(property); err != nil {
		return nil, err
	}
	if err := e.state.RegistryAddOwnership(caller, id); err != nil {
		return nil, err
	}
	e.emit(NewRegisteredEvent(property))
	return property.Clone(), nil
}

// Transfer moves the property to the recipient. The caller must be the owner
// or the approved delegate, and the recipient must pass the compliance gate.
// The record, the ownership index and the approval entry change together;
// any approval is cleared on every ownership change.
func (e *Engine) Transfer(ctx context.Context, id uint64, to, caller [20]byte) error {
	property, err := e.loadProperty(id)
	if err != nil {
		return err
	}
	if property.Owner != caller {
		approved, ok, err := e.state.RegistryApproval(id)
		if err != nil {
			return err
		}
		if !ok || approved != caller {
			return ErrUnauthorized
		}
	}
	if err := e.checkRecipient(ctx, to); err != nil {
		return err
	}
	from := property.Owner
	if err := e.state.RegistryRemoveOwnership(from, id); err != nil {
		return err
	}
	if err := e.state.RegistryAddOwnership(to, id); err != nil {
		return err
	}
	property.Owner = to
	if err := e.state.RegistryPutProperty(property); err != nil {
		return err
	}
	if err := e.state.RegistryClearApproval(id); err != nil {
		return err
	}
	e.emit(NewTransferredEvent(id, from, to))
	return nil
}

// UpdateMetadata overwrites the property metadata. Owner only; the approved
// delegate may transfer but not edit.
func (e *Engine) UpdateMetadata(id uint64, meta Metadata, caller [20]byte) error {
	property, err := e.loadProperty(id)
	if err != nil {
		return err
	}
	if property.Owner != caller {
		return ErrUnauthorized
	}
	if strings.TrimSpace(meta.Location) == "" {
		return ErrInvalidMetadata
	}
	property.Metadata = meta
	if err := e.state.RegistryPutProperty(property); err != nil {
		return err
	}
	e.emit(NewMetadataUpdatedEvent(id, meta))
	return nil
}

// Approve sets or clears the delegated account authorized to transfer the
// property on the owner's behalf. A nil delegate clears the entry and still
// emits the approval event with the zero address.
func (e *Engine) Approve(id uint64, delegate *[20]byte, caller [20]byte) error {
	property, err := e.loadProperty(id)
	if err != nil {
		return err
	}
	if property.Owner != caller {
		return ErrUnauthorized
	}
	if delegate != nil {
		if err := e.state.RegistrySetApproval(id, *delegate); err != nil {
			return err
		}
		e.emit(NewApprovalEvent(id, caller, *delegate))
		return nil
	}
	if err := e.state.RegistryClearApproval(id); err != nil {
		return err
	}
	e.emit(NewApprovalEvent(id, caller, ZeroAddress))
	return nil
}

// Owner returns the current owner of the property.
func (e *Engine) Owner(id uint64) ([20]byte, error) {
	property, err := e.loadProperty(id)
	if err != nil {
		return [20]byte{}, err
	}
	return property.Owner, nil
}

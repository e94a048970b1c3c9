package core

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"propchain/core/events"
	nhstate "propchain/core/state"
	"propchain/core/types"
	"propchain/native/compliance"
	"propchain/native/escrow"
	"propchain/native/registry"
	"propchain/observability"
	"propchain/storage"
)

// Node is the single-writer facade over the registry state. Every public
// operation takes stateMu, runs to completion against a fresh state manager
// and engine, and either commits all of its writes or none: no operation can
// observe another's intermediate state.
type Node struct {
	db    storage.Database
	admin [20]byte

	stateMu sync.Mutex

	eventMu  sync.RWMutex
	eventLog []types.Event
}

// NewNode creates a registry node over the provided database. The admin
// account is fixed at construction and is the only caller allowed to change
// the compliance registry.
func NewNode(db storage.Database, admin [20]byte) *Node {
	return &Node{db: db, admin: admin}
}

// Admin returns the administrator account configured at construction.
func (n *Node) Admin() [20]byte { return n.admin }

type eventWithPayload interface {
	Event() *types.Event
}

// eventBuffer collects the events emitted during a single operation. The node
// appends them to its log only after the operation's commit succeeds, so a
// failed operation publishes nothing.
type eventBuffer struct {
	events []*types.Event
}

func (b *eventBuffer) Emit(evt events.Event) {
	if b == nil || evt == nil {
		return
	}
	payload, ok := evt.(eventWithPayload)
	if !ok {
		return
	}
	event := payload.Event()
	if event == nil {
		return
	}
	b.events = append(b.events, event)
}

func (n *Node) publish(buf *eventBuffer) {
	if buf == nil || len(buf.events) == 0 {
		return
	}
	n.eventMu.Lock()
	defer n.eventMu.Unlock()
	for _, event := range buf.events {
		n.eventLog = append(n.eventLog, *event)
	}
}

// Events returns a copy of the recorded event log, oldest first. A non-empty
// prefix filters by event type prefix; limit > 0 caps the result from the
// tail.
func (n *Node) Events(prefix string, limit int) []types.Event {
	n.eventMu.RLock()
	defer n.eventMu.RUnlock()
	filtered := make([]types.Event, 0, len(n.eventLog))
	for _, evt := range n.eventLog {
		if prefix != "" && !strings.HasPrefix(evt.Type, prefix) {
			continue
		}
		filtered = append(filtered, evt)
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered
}

func (n *Node) newRegistryEngine(manager *nhstate.Manager, buf *eventBuffer) (*registry.Engine, error) {
	engine := registry.NewEngine()
	engine.SetState(manager)
	engine.SetEmitter(buf)
	oracle, ok, err := manager.ComplianceOracle()
	if err != nil {
		return nil, err
	}
	if ok && strings.TrimSpace(oracle) != "" {
		client, err := compliance.NewClient(compliance.Config{BaseURL: oracle})
		if err != nil {
			return nil, err
		}
		engine.SetChecker(client)
	}
	return engine, nil
}

func (n *Node) newEscrowEngine(manager *nhstate.Manager, buf *eventBuffer) (*escrow.Engine, error) {
	registryEngine, err := n.newRegistryEngine(manager, buf)
	if err != nil {
		return nil, err
	}
	engine := escrow.NewEngine()
	engine.SetState(manager)
	engine.SetRegistry(registryEngine)
	engine.SetEmitter(buf)
	return engine, nil
}

// RegisterProperty records a new property owned by the caller and returns the
// assigned id.
func (n *Node) RegisterProperty(caller [20]byte, meta registry.Metadata) (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := nhstate.NewManager(n.db)
	buf := &eventBuffer{}
	engine, err := n.newRegistryEngine(manager, buf)
	if err != nil {
		return 0, err
	}
	property, err := engine.Register(caller, meta)
	if err != nil {
		return 0, err
	}
	if err := manager.Commit(); err != nil {
		return 0, err
	}
	n.publish(buf)
	observability.Registry().RecordRegistration()
	return property.ID, nil
}

// TransferProperty moves the property to the recipient, subject to the
// owner-or-delegate rule and the compliance gate.
func (n *Node) TransferProperty(ctx context.Context, id uint64, to, caller [20]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := nhstate.NewManager(n.db)
	buf := &eventBuffer{}
	engine, err := n.newRegistryEngine(manager, buf)
	if err != nil {
		return err
	}
	if err := engine.Transfer(ctx, id, to, caller); err != nil {
		return err
	}
	if err := manager.Commit(); err != nil {
		return err
	}
	n.publish(buf)
	observability.Registry().RecordTransfer()
	return nil
}

// UpdateMetadata overwrites the property metadata. Owner only.
func (n *Node) UpdateMetadata(id uint64, meta registry.Metadata, caller [20]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := nhstate.NewManager(n.db)
	buf := &eventBuffer{}
	engine, err := n.newRegistryEngine(manager, buf)
	if err != nil {
		return err
	}
	if err := engine.UpdateMetadata(id, meta, caller); err != nil {
		return err
	}
	if err := manager.Commit(); err != nil {
		return err
	}
	n.publish(buf)
	return nil
}

// Approve sets or clears the delegate for the property. Owner only.
func (n *Node) Approve(id uint64, delegate *[20]byte, caller [20]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := nhstate.NewManager(n.db)
	buf := &eventBuffer{}
	engine, err := n.newRegistryEngine(manager, buf)
	if err != nil {
		return err
	}
	if err := engine.Approve(id, delegate, caller); err != nil {
		return err
	}
	if err := manager.Commit(); err != nil {
		return err
	}
	n.publish(buf)
	return nil
}

// Approved returns the delegate for the property, if any.
func (n *Node) Approved(id uint64) ([20]byte, bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := nhstate.NewManager(n.db)
	return manager.RegistryApproval(id)
}

// GetProperty returns the property record, if it exists.
func (n *Node) GetProperty(id uint64) (*registry.Property, bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := nhstate.NewManager(n.db)
	return manager.RegistryGetProperty(id)
}

// OwnerProperties returns the ids currently held by the account.
func (n *Node) OwnerProperties(addr [20]byte) ([]uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := nhstate.NewManager(n.db)
	return manager.RegistryOwnerProperties(addr)
}

// PropertyCount returns the number of successful registrations.
func (n *Node) PropertyCount() (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := nhstate.NewManager(n.db)
	return manager.RegistryPropertyCount()
}

// SetComplianceRegistry configures the compliance oracle base URL. Restricted
// to the admin account; an empty URL clears the configuration.
func (n *Node) SetComplianceRegistry(url string, caller [20]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	if caller != n.admin {
		return registry.ErrUnauthorized
	}
	manager := nhstate.NewManager(n.db)
	if err := manager.SetComplianceOracle(strings.TrimSpace(url)); err != nil {
		return err
	}
	return manager.Commit()
}

// ComplianceRegistry returns the configured oracle base URL, if any.
func (n *Node) ComplianceRegistry() (string, bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := nhstate.NewManager(n.db)
	return manager.ComplianceOracle()
}

// CreateEscrow opens an escrow for the property with an advisory amount and
// returns the assigned id. Owner only.
func (n *Node) CreateEscrow(propertyID uint64, amount *big.Int, caller [20]byte) (uint64, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := nhstate.NewManager(n.db)
	buf := &eventBuffer{}
	engine, err := n.newEscrowEngine(manager, buf)
	if err != nil {
		return 0, err
	}
	esc, err := engine.Create(propertyID, amount, caller)
	if err != nil {
		return 0, err
	}
	if err := manager.Commit(); err != nil {
		return 0, err
	}
	n.publish(buf)
	return esc.ID, nil
}

// ReleaseEscrow settles the escrow, transferring the property to the buyer.
// The embedded transfer and the state flip happen inside one locked
// operation; a transfer failure leaves the escrow in Created.
func (n *Node) ReleaseEscrow(ctx context.Context, id uint64, caller [20]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := nhstate.NewManager(n.db)
	buf := &eventBuffer{}
	engine, err := n.newEscrowEngine(manager, buf)
	if err != nil {
		return err
	}
	if err := engine.Release(ctx, id, caller); err != nil {
		return err
	}
	if err := manager.Commit(); err != nil {
		return err
	}
	n.publish(buf)
	observability.Registry().RecordSettlement("released")
	return nil
}

// RefundEscrow cancels the escrow. Seller only.
func (n *Node) RefundEscrow(id uint64, caller [20]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := nhstate.NewManager(n.db)
	buf := &eventBuffer{}
	engine, err := n.newEscrowEngine(manager, buf)
	if err != nil {
		return err
	}
	if err := engine.Refund(id, caller); err != nil {
		return err
	}
	if err := manager.Commit(); err != nil {
		return err
	}
	n.publish(buf)
	observability.Registry().RecordSettlement("refunded")
	return nil
}

// GetEscrow returns the escrow record, if it exists.
func (n *Node) GetEscrow(id uint64) (*escrow.Escrow, bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	manager := nhstate.NewManager(n.db)
	return manager.EscrowGet(id)
}

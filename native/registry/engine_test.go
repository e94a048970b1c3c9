package registry

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"propchain/core/events"
	"propchain/core/types"
)

type mockState struct {
	counter    uint64
	properties map[uint64]*Property
	owners     map[[20]byte][]uint64
	approvals  map[uint64][20]byte
}

func newMockState() *mockState {
	return &mockState{
		properties: make(map[uint64]*Property),
		owners:     make(map[[20]byte][]uint64),
		approvals:  make(map[uint64][20]byte),
	}
}

func (m *mockState) RegistryNextPropertyID() (uint64, error) {
	m.counter++
	return m.counter, nil
}

func (m *mockState) RegistryPutProperty(p *Property) error {
	m.properties[p.ID] = p.Clone()
	return nil
}

func (m *mockState) RegistryGetProperty(id uint64) (*Property, bool, error) {
	p, ok := m.properties[id]
	if !ok {
		return nil, false, nil
	}
	return p.Clone(), true, nil
}

func (m *mockState) RegistryAddOwnership(addr [20]byte, id uint64) error {
	for _, existing := range m.owners[addr] {
		if existing == id {
			return nil
		}
	}
	m.owners[addr] = append(m.owners[addr], id)
	return nil
}

func (m *mockState) RegistryRemoveOwnership(addr [20]byte, id uint64) error {
	filtered := m.owners[addr][:0]
	for _, existing := range m.owners[addr] {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	m.owners[addr] = filtered
	return nil
}

func (m *mockState) RegistryApproval(id uint64) ([20]byte, bool, error) {
	delegate, ok := m.approvals[id]
	return delegate, ok, nil
}

func (m *mockState) RegistrySetApproval(id uint64, delegate [20]byte) error {
	m.approvals[id] = delegate
	return nil
}

func (m *mockState) RegistryClearApproval(id uint64) error {
	delete(m.approvals, id)
	return nil
}

type recordingEmitter struct {
	events []*types.Event
}

func (r *recordingEmitter) Emit(evt events.Event) {
	payload, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	r.events = append(r.events, payload.Event())
}

type stubChecker struct {
	compliant bool
	err       error
}

func (s stubChecker) IsCompliant(context.Context, [20]byte) (bool, error) {
	return s.compliant, s.err
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func testMetadata() Metadata {
	return Metadata{
		Location:         "123 Main St",
		Size:             1000,
		LegalDescription: "Test property",
		Valuation:        1000000,
		DocumentsURL:     "https://example.com/docs",
	}
}

func newTestEngine(state *mockState) (*Engine, *recordingEmitter) {
	engine := NewEngine()
	engine.SetState(state)
	emitter := &recordingEmitter{}
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() int64 { return 1700000000 })
	return engine, emitter
}

func (m *mockState) owns(addr [20]byte, id uint64) bool {
	for _, existing := range m.owners[addr] {
		if existing == id {
			return true
		}
	}
	return false
}

func TestRegisterAssignsMonotonicIDs(t *testing.T) {
	state := newMockState()
	engine, emitter := newTestEngine(state)
	alice := newTestAddress(0x01)

	first, err := engine.Register(alice, testMetadata())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if first.ID != 1 {
		t.Fatalf("expected first id 1, got %d", first.ID)
	}
	second, err := engine.Register(alice, testMetadata())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if second.ID != 2 {
		t.Fatalf("expected second id 2, got %d", second.ID)
	}
	if first.Owner != alice {
		t.Fatalf("unexpected owner")
	}
	if first.RegisteredAt != 1700000000 {
		t.Fatalf("unexpected timestamp %d", first.RegisteredAt)
	}
	if !state.owns(alice, 1) || !state.owns(alice, 2) {
		t.Fatalf("ownership index not updated: %v", state.owners[alice])
	}
	if len(emitter.events) != 2 || emitter.events[0].Type != EventTypePropertyRegistered {
		t.Fatalf("unexpected events: %+v", emitter.events)
	}
}

func TestRegisterSkipsMetadataValidation(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)

	// Registration is deliberately cheap; the location check applies on
	// updates only.
	property, err := engine.Register(newTestAddress(0x01), Metadata{})
	if err != nil {
		t.Fatalf("register with empty metadata: %v", err)
	}
	if property.ID != 1 {
		t.Fatalf("unexpected id %d", property.ID)
	}
}

func TestTransferByOwner(t *testing.T) {
	state := newMockState()
	engine, emitter := newTestEngine(state)
	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)

	property, err := engine.Register(alice, testMetadata())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.Transfer(context.Background(), property.ID, bob, alice); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	stored, _, _ := state.RegistryGetProperty(property.ID)
	if stored.Owner != bob {
		t.Fatalf("expected owner bob, got %x", stored.Owner)
	}
	if state.owns(alice, property.ID) {
		t.Fatalf("old owner still indexed")
	}
	if !state.owns(bob, property.ID) {
		t.Fatalf("new owner not indexed")
	}
	last := emitter.events[len(emitter.events)-1]
	if last.Type != EventTypePropertyTransferred {
		t.Fatalf("expected transfer event, got %s", last.Type)
	}
	if last.Attributes["from"] != "0101010101010101010101010101010101010101" {
		t.Fatalf("transfer event must carry the pre-mutation owner, got %s", last.Attributes["from"])
	}
}

func TestTransferUnknownProperty(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)

	err := engine.Transfer(context.Background(), 42, newTestAddress(0x02), newTestAddress(0x01))
	if !errors.Is(err, ErrPropertyNotFound) {
		t.Fatalf("expected ErrPropertyNotFound, got %v", err)
	}
}

func TestTransferUnauthorized(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)
	mallory := newTestAddress(0x03)

	property, err := engine.Register(alice, testMetadata())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	err = engine.Transfer(context.Background(), property.ID, bob, mallory)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	stored, _, _ := state.RegistryGetProperty(property.ID)
	if stored.Owner != alice {
		t.Fatalf("owner must be unchanged after rejected transfer")
	}
}

func TestTransferByApprovedDelegate(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)
	carol := newTestAddress(0x03)

	property, err := engine.Register(alice, testMetadata())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.Approve(property.ID, &bob, alice); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := engine.Transfer(context.Background(), property.ID, carol, bob); err != nil {
		t.Fatalf("delegate transfer: %v", err)
	}
	stored, _, _ := state.RegistryGetProperty(property.ID)
	if stored.Owner != carol {
		t.Fatalf("expected owner carol")
	}
	if _, ok, _ := state.RegistryApproval(property.ID); ok {
		t.Fatalf("approval must be cleared after transfer")
	}
}

func TestApprovalClearedEmitsZeroAddress(t *testing.T) {
	state := newMockState()
	engine, emitter := newTestEngine(state)
	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)

	property, err := engine.Register(alice, testMetadata())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.Approve(property.ID, &bob, alice); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := engine.Approve(property.ID, nil, alice); err != nil {
		t.Fatalf("clear approval: %v", err)
	}
	last := emitter.events[len(emitter.events)-1]
	if last.Type != EventTypeApproval {
		t.Fatalf("expected approval event, got %s", last.Type)
	}
	if last.Attributes["approved"] != "0000000000000000000000000000000000000000" {
		t.Fatalf("cleared approval must name the zero address, got %s", last.Attributes["approved"])
	}
	if _, ok, _ := state.RegistryApproval(property.ID); ok {
		t.Fatalf("approval entry must be removed")
	}
}

func TestApproveRequiresOwner(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)

	property, err := engine.Register(alice, testMetadata())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	err = engine.Approve(property.ID, &bob, bob)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTransferRejectedByCompliance(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	engine.SetChecker(stubChecker{compliant: false})
	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)

	property, err := engine.Register(alice, testMetadata())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	err = engine.Transfer(context.Background(), property.ID, bob, alice)
	if !errors.Is(err, ErrNotCompliant) {
		t.Fatalf("expected ErrNotCompliant, got %v", err)
	}
	stored, _, _ := state.RegistryGetProperty(property.ID)
	if stored.Owner != alice {
		t.Fatalf("owner must remain alice after compliance rejection")
	}
	if state.owns(bob, property.ID) {
		t.Fatalf("recipient must not be indexed after rejection")
	}
}

func TestTransferComplianceOracleFailure(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	engine.SetChecker(stubChecker{err: errors.New("oracle unreachable")})
	alice := newTestAddress(0x01)

	property, err := engine.Register(alice, testMetadata())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	err = engine.Transfer(context.Background(), property.ID, newTestAddress(0x02), alice)
	if !errors.Is(err, ErrComplianceCheckFailed) {
		t.Fatalf("expected ErrComplianceCheckFailed, got %v", err)
	}
	if errors.Is(err, ErrNotCompliant) {
		t.Fatalf("oracle failure must stay distinct from explicit rejection")
	}
}

func TestUpdateMetadata(t *testing.T) {
	state := newMockState()
	engine, emitter := newTestEngine(state)
	alice := newTestAddress(0x01)

	property, err := engine.Register(alice, testMetadata())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	updated := testMetadata()
	updated.Location = "456 Oak Ave"
	if err := engine.UpdateMetadata(property.ID, updated, alice); err != nil {
		t.Fatalf("update metadata: %v", err)
	}
	stored, _, _ := state.RegistryGetProperty(property.ID)
	if stored.Metadata.Location != "456 Oak Ave" {
		t.Fatalf("metadata not updated")
	}
	last := emitter.events[len(emitter.events)-1]
	if last.Type != EventTypeMetadataUpdated {
		t.Fatalf("expected metadata event, got %s", last.Type)
	}
}

func TestUpdateMetadataEmptyLocation(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	alice := newTestAddress(0x01)

	property, err := engine.Register(alice, testMetadata())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	invalid := testMetadata()
	invalid.Location = "  "
	err = engine.UpdateMetadata(property.ID, invalid, alice)
	if !errors.Is(err, ErrInvalidMetadata) {
		t.Fatalf("expected ErrInvalidMetadata, got %v", err)
	}
	stored, _, _ := state.RegistryGetProperty(property.ID)
	if stored.Metadata.Location != "123 Main St" {
		t.Fatalf("stored metadata must be unchanged")
	}
}

func TestUpdateMetadataDelegateInsufficient(t *testing.T) {
	state := newMockState()
	engine, _ := newTestEngine(state)
	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)

	property, err := engine.Register(alice, testMetadata())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.Approve(property.ID, &bob, alice); err != nil {
		t.Fatalf("approve: %v", err)
	}
	err = engine.UpdateMetadata(property.ID, testMetadata(), bob)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("delegate must not edit metadata, got %v", err)
	}
}

package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"propchain/native/escrow"
	"propchain/storage"
)

func testEscrow(id uint64) *escrow.Escrow {
	return &escrow.Escrow{
		ID:         id,
		PropertyID: 7,
		Buyer:      testAddr(0x01),
		Seller:     testAddr(0x02),
		Amount:     big.NewInt(1500),
		Status:     escrow.StatusCreated,
	}
}

func TestEscrowRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	require.NoError(t, manager.EscrowPut(testEscrow(1)))

	loaded, ok, err := manager.EscrowGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), loaded.ID)
	require.Equal(t, uint64(7), loaded.PropertyID)
	require.Equal(t, testAddr(0x01), loaded.Buyer)
	require.Equal(t, testAddr(0x02), loaded.Seller)
	require.Zero(t, loaded.Amount.Cmp(big.NewInt(1500)))
	require.Equal(t, escrow.StatusCreated, loaded.Status)
}

func TestEscrowMissing(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	loaded, ok, err := manager.EscrowGet(42)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, loaded)
}

func TestEscrowNilAmountStoredAsZero(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	esc := testEscrow(1)
	esc.Amount = nil
	require.NoError(t, manager.EscrowPut(esc))

	loaded, ok, err := manager.EscrowGet(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, loaded.Amount.Sign())
}

func TestEscrowRejectsInvalidRecords(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	require.Error(t, manager.EscrowPut(nil))

	esc := testEscrow(0)
	require.Error(t, manager.EscrowPut(esc))

	esc = testEscrow(1)
	esc.Status = escrow.Status(99)
	require.Error(t, manager.EscrowPut(esc))

	esc = testEscrow(1)
	esc.Amount = big.NewInt(-5)
	require.Error(t, manager.EscrowPut(esc))
}

func TestEscrowCounterMonotonic(t *testing.T) {
	db := storage.NewMemDB()

	manager := NewManager(db)
	first, err := manager.EscrowNextID()
	require.NoError(t, err)
	require.Equal(t, uint64(1), first)
	require.NoError(t, manager.Commit())

	manager = NewManager(db)
	second, err := manager.EscrowNextID()
	require.NoError(t, err)
	require.Equal(t, uint64(2), second)

	count, err := manager.EscrowCount()
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)
}

func TestEscrowStatusPersistsTerminalStates(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	esc := testEscrow(1)
	esc.Status = escrow.StatusReleased
	require.NoError(t, manager.EscrowPut(esc))

	loaded, _, err := manager.EscrowGet(1)
	require.NoError(t, err)
	require.Equal(t, escrow.StatusReleased, loaded.Status)
	require.True(t, loaded.Status.Terminal())
}

package state

import (
	"fmt"

	"propchain/native/registry"
)

type storedProperty struct {
	ID               uint64
	Owner            [20]byte
	Location         string
	Size             uint64
	LegalDescription string
	Valuation        uint64
	DocumentsURL     string
	RegisteredAt     uint64
}

func toProperty(stored *storedProperty) *registry.Property {
	return &registry.Property{
		ID:    stored.ID,
		Owner: stored.Owner,
		Metadata: registry.Metadata{
			Location:         stored.Location,
			Size:             stored.Size,
			LegalDescription: stored.LegalDescription,
			Valuation:        stored.Valuation,
			DocumentsURL:     stored.DocumentsURL,
		},
		RegisteredAt: int64(stored.RegisteredAt),
	}
}

func sanitizeUnix(ts int64) uint64 {
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// RegistryNextPropertyID increments the durable property counter and returns
// the freshly assigned id. Ids start at 1 and are never reused.
func (m *Manager) RegistryNextPropertyID() (uint64, error) {
	if m == nil {
		return 0, fmt.Errorf("registry: state manager not initialised")
	}
	var count uint64
	if _, err := m.KVGet(propertyCountKey, &count); err != nil {
		return 0, err
	}
	count++
	if err := m.KVPut(propertyCountKey, count); err != nil {
		return 0, err
	}
	return count, nil
}

// RegistryPropertyCount returns the number of properties registered so far.
func (m *Manager) RegistryPropertyCount() (uint64, error) {
	if m == nil {
		return 0, fmt.Errorf("registry: state manager not initialised")
	}
	var count uint64
	if _, err := m.KVGet(propertyCountKey, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// RegistryPutProperty persists the provided property record.
func (m *Manager) RegistryPutProperty(p *registry.Property) error {
	if m == nil {
		return fmt.Errorf("registry: state manager not initialised")
	}
	if p == nil {
		return fmt.Errorf("registry: property record required")
	}
	if p.ID == 0 {
		return fmt.Errorf("registry: property id must not be zero")
	}
	stored := &storedProperty{
		ID:               p.ID,
		Owner:            p.Owner,
		Location:         p.Metadata.Location,
		Size:             p.Metadata.Size,
		LegalDescription: p.Metadata.LegalDescription,
		Valuation:        p.Metadata.Valuation,
		DocumentsURL:     p.Metadata.DocumentsURL,
		RegisteredAt:     sanitizeUnix(p.RegisteredAt),
	}
	return m.KVPut(propertyKey(p.ID), stored)
}

// RegistryGetProperty loads the property record for the supplied id. A missing
// record returns (nil, false, nil).
func (m *Manager) RegistryGetProperty(id uint64) (*registry.Property, bool, error) {
	if m == nil {
		return nil, false, fmt.Errorf("registry: state manager not initialised")
	}
	var stored storedProperty
	ok, err := m.KVGet(propertyKey(id), &stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return toProperty(&stored), true, nil
}

// RegistryOwnerProperties returns the ids currently held by the account. The
// result is never nil.
func (m *Manager) RegistryOwnerProperties(addr [20]byte) ([]uint64, error) {
	if m == nil {
		return nil, fmt.Errorf("registry: state manager not initialised")
	}
	var ids []uint64
	if err := m.KVGetList(ownerIndexKey(addr), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// RegistryAddOwnership appends the property id to the account's index entry.
// Duplicate ids are ignored to keep the index deterministic.
func (m *Manager) RegistryAddOwnership(addr [20]byte, id uint64) error {
	ids, err := m.RegistryOwnerProperties(addr)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)
	return m.KVPut(ownerIndexKey(addr), ids)
}

// RegistryRemoveOwnership removes the property id from the account's index
// entry.
func (m *Manager) RegistryRemoveOwnership(addr [20]byte, id uint64) error {
	ids, err := m.RegistryOwnerProperties(addr)
	if err != nil {
		return err
	}
	filtered := ids[:0]
	for _, existing := range ids {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	return m.KVPut(ownerIndexKey(addr), filtered)
}

// RegistryApproval returns the delegated account for the property, if any.
func (m *Manager) RegistryApproval(id uint64) ([20]byte, bool, error) {
	if m == nil {
		return [20]byte{}, false, fmt.Errorf("registry: state manager not initialised")
	}
	var delegate [20]byte
	ok, err := m.KVGet(approvalKey(id), &delegate)
	if err != nil {
		return [20]byte{}, false, err
	}
	return delegate, ok, nil
}

// RegistrySetApproval records the delegated account for the property.
func (m *Manager) RegistrySetApproval(id uint64, delegate [20]byte) error {
	if m == nil {
		return fmt.Errorf("registry: state manager not initialised")
	}
	return m.KVPut(approvalKey(id), delegate)
}

// RegistryClearApproval removes any delegation for the property.
func (m *Manager) RegistryClearApproval(id uint64) error {
	if m == nil {
		return fmt.Errorf("registry: state manager not initialised")
	}
	return m.KVDelete(approvalKey(id))
}

// ComplianceOracle returns the configured oracle base URL, if any.
func (m *Manager) ComplianceOracle() (string, bool, error) {
	if m == nil {
		return "", false, fmt.Errorf("registry: state manager not initialised")
	}
	var url string
	ok, err := m.KVGet(complianceOracleKey, &url)
	if err != nil {
		return "", false, err
	}
	return url, ok, nil
}

// SetComplianceOracle persists the oracle base URL. An empty value clears the
// configuration, returning the gate to passthrough behaviour.
func (m *Manager) SetComplianceOracle(url string) error {
	if m == nil {
		return fmt.Errorf("registry: state manager not initialised")
	}
	if url == "" {
		return m.KVDelete(complianceOracleKey)
	}
	return m.KVPut(complianceOracleKey, url)
}

package registry

// Metadata carries the descriptive payload attached to a property. The
// registry treats it as opaque apart from the location check applied on
// updates.
type Metadata struct {
	Location         string
	Size             uint64
	LegalDescription string
	Valuation        uint64
	DocumentsURL     string
}

// Property is the canonical record for a registered asset. A property has
// exactly one owner at any time; the ownership index mirrors the Owner field.
type Property struct {
	ID           uint64
	Owner        [20]byte
	Metadata     Metadata
	RegisteredAt int64
}

// Clone returns a copy of the property so callers can mutate it without
// affecting the stored instance.
func (p *Property) Clone() *Property {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// ZeroAddress is the sentinel emitted as the approved party when a delegation
// is cleared, so observers can track approval state from events alone.
var ZeroAddress [20]byte

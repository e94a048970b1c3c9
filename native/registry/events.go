package registry

import (
	"encoding/hex"
	"strconv"

	"propchain/core/types"
)

const (
	EventTypePropertyRegistered  = "property.registered"
	EventTypePropertyTransferred = "property.transferred"
	EventTypeMetadataUpdated     = "property.metadata_updated"
	EventTypeApproval            = "property.approval"
)

// NewRegisteredEvent returns the canonical event payload for a newly
// registered property.
func NewRegisteredEvent(p *Property) *types.Event {
	attrs := make(map[string]string)
	if p != nil {
		attrs["propertyId"] = strconv.FormatUint(p.ID, 10)
		attrs["owner"] = hex.EncodeToString(p.Owner[:])
		attrs["registeredAt"] = strconv.FormatInt(p.RegisteredAt, 10)
	}
	return &types.Event{Type: EventTypePropertyRegistered, Attributes: attrs}
}

// NewTransferredEvent returns the canonical event payload for an ownership
// change. The from attribute carries the owner recorded before the mutation.
func NewTransferredEvent(id uint64, from, to [20]byte) *types.Event {
	return &types.Event{Type: EventTypePropertyTransferred, Attributes: map[string]string{
		"propertyId": strconv.FormatUint(id, 10),
		"from":       hex.EncodeToString(from[:]),
		"to":         hex.EncodeToString(to[:]),
	}}
}

// NewMetadataUpdatedEvent returns the canonical event payload emitted after a
// metadata overwrite.
func NewMetadataUpdatedEvent(id uint64, meta Metadata) *types.Event {
	return &types.Event{Type: EventTypeMetadataUpdated, Attributes: map[string]string{
		"propertyId": strconv.FormatUint(id, 10),
		"location":   meta.Location,
	}}
}

// NewApprovalEvent returns the canonical event payload for an approval change.
// A cleared delegation is emitted with the zero address so the event stream
// stays continuous.
func NewApprovalEvent(id uint64, owner, approved [20]byte) *types.Event {
	return &types.Event{Type: EventTypeApproval, Attributes: map[string]string{
		"propertyId": strconv.FormatUint(id, 10),
		"owner":      hex.EncodeToString(owner[:]),
		"approved":   hex.EncodeToString(approved[:]),
	}}
}

package types

// Event is the wire form of a registry or escrow notification: a type tag
// such as "property.transferred" plus flat string attributes, which is the
// shape the RPC event feed serves.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

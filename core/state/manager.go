package state

import (
	"fmt"
	"reflect"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"propchain/storage"
)

// Manager provides typed read/write access to registry state stored in the
// underlying key-value database. Values are RLP encoded and keys are hashed
// with keccak256 before hitting storage.
//
// Writes are buffered in an overlay until Commit flushes them to the
// database, so an operation that fails partway leaves no partial state
// behind. Reads observe the overlay first. A manager is scoped to a single
// operation; the node facade serializes all access and never shares one
// across operations.
type Manager struct {
	db      storage.Database
	writes  map[string][]byte
	deletes map[string]struct{}
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// Commit flushes all buffered writes and deletes to the database as one
// atomic batch: either the whole overlay becomes durable or none of it does.
// The manager can keep serving reads afterwards but is not meant to be
// reused for another operation.
func (m *Manager) Commit() error {
	batch := storage.NewBatch()
	for key := range m.deletes {
		batch.Delete([]byte(key))
	}
	for key, value := range m.writes {
		batch.Put([]byte(key), value)
	}
	if err := m.db.Write(batch); err != nil {
		return err
	}
	m.writes = make(map[string][]byte)
	m.deletes = make(map[string]struct{})
	return nil
}

func (m *Manager) rawGet(hashed []byte) ([]byte, bool, error) {
	if value, ok := m.writes[string(hashed)]; ok {
		return value, true, nil
	}
	if _, ok := m.deletes[string(hashed)]; ok {
		return nil, false, nil
	}
	data, err := m.db.Get(hashed)
	if err != nil {
		if err == storage.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is automatically hashed with keccak256.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	hashed := kvKey(key)
	delete(m.deletes, string(hashed))
	m.writes[string(hashed)] = encoded
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, ok, err := m.rawGet(kvKey(key))
	if err != nil {
		return false, err
	}
	if !ok || len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under the supplied key. Deleting a missing
// key is not an error.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	delete(m.writes, string(hashed))
	m.deletes[string(hashed)] = struct{}{}
	return nil
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice to avoid nil
// surprises for callers.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	data, ok, err := m.rawGet(kvKey(key))
	if err != nil {
		return err
	}
	if !ok || len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}

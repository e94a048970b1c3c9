package state

import (
	"encoding/binary"
	"encoding/hex"
)

var (
	propertyPrefix      = []byte("registry/property/")
	ownerIndexPrefix    = []byte("registry/owner/")
	approvalPrefix      = []byte("registry/approval/")
	propertyCountKey    = []byte("registry/count")
	complianceOracleKey = []byte("registry/compliance-oracle")
	escrowPrefix        = []byte("escrow/record/")
	escrowCountKey      = []byte("escrow/count")
)

func appendUint64(prefix []byte, id uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], id)
	return buf
}

func propertyKey(id uint64) []byte {
	return appendUint64(propertyPrefix, id)
}

func ownerIndexKey(addr [20]byte) []byte {
	buf := make([]byte, len(ownerIndexPrefix)+hex.EncodedLen(len(addr)))
	copy(buf, ownerIndexPrefix)
	hex.Encode(buf[len(ownerIndexPrefix):], addr[:])
	return buf
}

func approvalKey(id uint64) []byte {
	return appendUint64(approvalPrefix, id)
}

func escrowKey(id uint64) []byte {
	return appendUint64(escrowPrefix, id)
}

package pebblestore

import "encoding/binary"

var (
	topicCounterKey = []byte("g/topics")
	topicPrefix     = []byte("t/")
	metaSuffix      = []byte("/m")
	entrySeg        = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// keyMeta builds the topic metadata key.
func keyMeta(topicID string) []byte {
	k := make([]byte, 0, len(topicID)+8)
	k = append(k, topicPrefix...)
	k = append(k, topicID...)
	k = append(k, metaSuffix...)
	return k
}

// keyEntry builds the entry key with a big-endian sequence for proper ordering.
func keyEntry(topicID string, seq uint64) []byte {
	k := make([]byte, 0, len(topicID)+16)
	k = append(k, topicPrefix...)
	k = append(k, topicID...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

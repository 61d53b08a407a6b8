// Package aad builds the additional authenticated data that binds every
// ciphertext to the envelope it belongs to. Each field is length-prefixed
// so distinct tuples can never collide byte-for-byte.
package aad

import (
	"encoding/binary"
)

const (
	labelContent   = "CONTENT"
	labelKeyWrap   = "KEYWRAP"
	labelKeyRecord = "KEYRECORD"

	ver = 1
)

// Content binds a message body to its envelope and sender.
func Content(envelopeID, senderID string) []byte {
	return build(labelContent, envelopeID, senderID, ver)
}

// KeyWrap binds a wrapped per-message key to its envelope, sender, and the
// one recipient it was wrapped for.
func KeyWrap(envelopeID, senderID, recipientID string) []byte {
	return build(labelKeyWrap, envelopeID, senderID, recipientID, ver)
}

// KeyRecord binds a sealed at-rest key pair record to its owning user.
func KeyRecord(userID string) []byte {
	return build(labelKeyRecord, userID, ver)
}

func build(parts ...any) []byte {
	var res []byte
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			res = appendLenPrefix(res, []byte(v))
		case []byte:
			res = appendLenPrefix(res, v)
		case uint64:
			b := make([]byte, 8)
			binary.BigEndian.PutUint64(b, v)
			res = append(res, b...)
		case int:
			b := make([]byte, 4)
			binary.BigEndian.PutUint32(b, uint32(v))
			res = append(res, b...)
		}
	}
	return res
}

func appendLenPrefix(b, data []byte) []byte {
	l := make([]byte, 4)
	binary.BigEndian.PutUint32(l, uint32(len(data)))
	b = append(b, l...)
	b = append(b, data...)
	return b
}

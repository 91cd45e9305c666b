package ir

import (
	"bytes"
	"encoding/binary"
	"slices"

	"golang.org/x/text/unicode/norm"
)

// EncodeKey returns an order-preserving encoding of v: for any a and b,
// bytes.Compare(EncodeKey(a), EncodeKey(b)) agrees with Compare(a, b).
// Storage backends store these bytes as index keys so that range scans can
// be answered with plain byte comparisons.
//
// Layout: one kind byte, then
//   - Bool: 0x00 or 0x01
//   - Int: 8 bytes big-endian with the sign bit flipped
//   - String: NFC bytes with 0x00 escaped as 0x00 0xFF, terminated by 0x00
//   - List: element encodings, terminated by 0x00
//   - Record: (escaped key, value encoding) pairs in byte order of the keys,
//     terminated by 0x00
func EncodeKey(v Value) []byte {
	var buf bytes.Buffer
	appendKey(&buf, v)
	return buf.Bytes()
}

func appendKey(buf *bytes.Buffer, v Value) {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteByte(byte(KindNull))
	case Bool:
		buf.WriteByte(byte(KindBool))
		if val {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case Int:
		buf.WriteByte(byte(KindInt))
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(val)^(1<<63))
		buf.Write(b[:])
	case String:
		buf.WriteByte(byte(KindString))
		appendEscaped(buf, string(val))
	case List:
		buf.WriteByte(byte(KindList))
		for _, elem := range val {
			appendKey(buf, elem)
		}
		buf.WriteByte(0)
	case Record:
		buf.WriteByte(byte(KindRecord))
		normalized := make(map[string]Value, len(val))
		keys := make([]string, 0, len(val))
		for k, elem := range val {
			nk := norm.NFC.String(k)
			normalized[nk] = elem
			keys = append(keys, nk)
		}
		slices.Sort(keys)
		for _, k := range keys {
			appendEscaped(buf, k)
			appendKey(buf, normalized[k])
		}
		buf.WriteByte(0)
	}
}

func appendEscaped(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	for i := 0; i < len(s); i++ {
		buf.WriteByte(s[i])
		if s[i] == 0 {
			buf.WriteByte(0xFF)
		}
	}
	buf.WriteByte(0)
}

// Compare orders values: first by Kind, then within the kind (numeric for
// Int, NFC byte order for String, element-wise for List and Record).
func Compare(a, b Value) int {
	return bytes.Compare(EncodeKey(a), EncodeKey(b))
}

// Equal reports whether a and b are the same value.
func Equal(a, b Value) bool {
	return bytes.Equal(EncodeKey(a), EncodeKey(b))
}

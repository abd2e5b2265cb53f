package geolib

import "encoding/binary"

// KeyCodec describes how numeric IP keys of one IP version are stored
// and compared. It lets the builder, the database and the network
// variant share one generic implementation for both versions.
type KeyCodec[K any] struct {
	Version     int
	Size        int
	Read        func([]byte) K
	Put         func([]byte, K)
	Cmp         func(a, b K) int
	Next        func(K) K
	FromAddress func(Address) K
	ToAddress   func(K) Address
}

// DecodeKeys converts a little-endian column into a slice of keys.
// Trailing bytes which do not form a full key are ignored.
func (k KeyCodec[K]) DecodeKeys(data []byte) []K {
	rv := make([]K, len(data)/k.Size)

	for i := range rv {
		rv[i] = k.Read(data[i*k.Size:])
	}

	return rv
}

var (
	IPv4Codec = KeyCodec[uint32]{
		Version: 4,
		Size:    IPv4Size,
		Read:    binary.LittleEndian.Uint32,
		Put:     binary.LittleEndian.PutUint32,
		Cmp:     CmpUint32,
		Next: func(v uint32) uint32 {
			return v + 1
		},
		FromAddress: func(a Address) uint32 {
			return a.V4
		},
		ToAddress: func(v uint32) Address {
			return Address{Version: 4, V4: v}
		},
	}

	IPv6Codec = KeyCodec[Uint128]{
		Version: 6,
		Size:    IPv6Size,
		Read:    ReadUint128,
		Put:     PutUint128,
		Cmp:     CmpUint128,
		Next:    Uint128.Next,
		FromAddress: func(a Address) Uint128 {
			return a.V6
		},
		ToAddress: func(v Uint128) Address {
			return Address{Version: 6, V6: v}
		},
	}
)

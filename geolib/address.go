package geolib

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

const (
	IPv4Size = 4
	IPv6Size = 16
)

// Uint128 is an unsigned 128-bit integer which is used as a numeric
// representation of IPv6 address.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// Cmp returns -1, 0 or 1 like bytes.Compare does.
func (u Uint128) Cmp(v Uint128) int {
	switch {
	case u.Hi < v.Hi:
		return -1
	case u.Hi > v.Hi:
		return 1
	case u.Lo < v.Lo:
		return -1
	case u.Lo > v.Lo:
		return 1
	}

	return 0
}

// Next returns u+1. It wraps around on overflow.
func (u Uint128) Next() Uint128 {
	rv := Uint128{Hi: u.Hi, Lo: u.Lo + 1}

	if rv.Lo == 0 {
		rv.Hi++
	}

	return rv
}

// PutUint128 writes u as 16 little-endian bytes, low word first.
func PutUint128(b []byte, u Uint128) {
	binary.LittleEndian.PutUint64(b, u.Lo)
	binary.LittleEndian.PutUint64(b[8:], u.Hi)
}

func ReadUint128(b []byte) Uint128 {
	return Uint128{
		Lo: binary.LittleEndian.Uint64(b),
		Hi: binary.LittleEndian.Uint64(b[8:]),
	}
}

func CmpUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}

	return 0
}

func CmpUint128(a, b Uint128) int {
	return a.Cmp(b)
}

// Address is a numeric representation of IP address. Only one of V4
// and V6 is meaningful, depending on Version.
type Address struct {
	Version int
	V4      uint32
	V6      Uint128
}

func (a Address) Addr() netip.Addr {
	if a.Version == 4 {
		var buf [IPv4Size]byte

		binary.BigEndian.PutUint32(buf[:], a.V4)

		return netip.AddrFrom4(buf)
	}

	var buf [IPv6Size]byte

	binary.BigEndian.PutUint64(buf[:8], a.V6.Hi)
	binary.BigEndian.PutUint64(buf[8:], a.V6.Lo)

	return netip.AddrFrom16(buf)
}

func (a Address) String() string {
	return a.Addr().String()
}

// AddressFromNetip converts netip.Addr into Address. IPv4-mapped IPv6
// addresses stay IPv6.
func AddressFromNetip(addr netip.Addr) Address {
	if addr.Is4() {
		buf := addr.As4()

		return Address{Version: 4, V4: binary.BigEndian.Uint32(buf[:])}
	}

	buf := addr.As16()

	return Address{
		Version: 6,
		V6: Uint128{
			Hi: binary.BigEndian.Uint64(buf[:8]),
			Lo: binary.BigEndian.Uint64(buf[8:]),
		},
	}
}

// PrefixRange returns the first and the last addresses of the network.
func PrefixRange(prefix netip.Prefix) (Address, Address) {
	prefix = prefix.Masked()
	start := AddressFromNetip(prefix.Addr())
	end := start

	if start.Version == 4 {
		end.V4 |= uint32(1)<<(32-prefix.Bits()) - 1

		return start, end
	}

	hostBits := 128 - prefix.Bits()

	if hostBits >= 64 {
		end.V6.Lo = ^uint64(0)
		end.V6.Hi |= uint64(1)<<(hostBits-64) - 1
	} else {
		end.V6.Lo |= uint64(1)<<hostBits - 1
	}

	return start, end
}

// ParseIP converts a string into numeric address.
//
// If a string contains both colons and dots (like ::ffff:1.2.3.4),
// a part after the last colon is parsed as IPv4. Syntactically valid
// IPv4 with octets above 255 returns ErrAddressOutOfRange, all other
// malformed input returns ErrInvalidAddress.
func ParseIP(value string) (Address, error) {
	if strings.Contains(value, ":") {
		if strings.Contains(value, ".") {
			return parseIPv4(value[strings.LastIndexByte(value, ':')+1:])
		}

		return parseIPv6(value)
	}

	return parseIPv4(value)
}

func parseIPv4(value string) (Address, error) {
	parts := strings.Split(value, ".")
	if len(parts) != IPv4Size {
		return Address{}, fmt.Errorf("%q: %w", value, ErrInvalidAddress)
	}

	var number uint32

	outOfRange := false

	for _, part := range parts {
		if len(part) == 0 || len(part) > 3 {
			return Address{}, fmt.Errorf("%q: %w", value, ErrInvalidAddress)
		}

		octet, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return Address{}, fmt.Errorf("%q: %w", value, ErrInvalidAddress)
		}

		if octet > 255 {
			outOfRange = true
		}

		number = number<<8 | uint32(octet&0xff)
	}

	if outOfRange {
		return Address{}, fmt.Errorf("%q: %w", value, ErrAddressOutOfRange)
	}

	return Address{Version: 4, V4: number}, nil
}

func parseIPv6(value string) (Address, error) {
	addr, err := netip.ParseAddr(value)
	if err != nil || !addr.Is6() {
		return Address{}, fmt.Errorf("%q: %w", value, ErrInvalidAddress)
	}

	return AddressFromNetip(addr.WithZone("")), nil
}

package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"net/netip"

	"github.com/9seconds/iplocation/geolib"
	cidrman "github.com/EvilSuperstars/go-cidrman"
)

type dumpRecord struct {
	Networks []string        `json:"networks"`
	Data     *geolib.GeoData `json:"data"`
}

// runDump prints every stored range of given IP versions as a JSON
// line with its CIDR networks and decoded payload.
func runDump(db *geolib.Database, out io.Writer, versions []int) error {
	for _, version := range versions {
		err := db.Ranges(version, func(rng geolib.Range) error {
			networks, err := rangeToCIDRs(rng.Start, rng.End)
			if err != nil {
				return err
			}

			return encodeJSON(out, dumpRecord{
				Networks: networks,
				Data:     rng.Data,
			})
		})
		if err != nil {
			return fmt.Errorf("cannot dump ipv%d ranges: %w", version, err)
		}
	}

	return nil
}

func rangeToCIDRs(start, end geolib.Address) ([]string, error) {
	if start.Version == 4 {
		return ipv4RangeToCIDRs(start.String(), end.String())
	}

	return ipv6RangeToCIDRs(start.V6, end.V6), nil
}

func ipv4RangeToCIDRs(start, end string) (subnets []string, err error) {
	// cidrman panics on some malformed ranges
	defer func() {
		if rec := recover(); rec != nil {
			switch x := rec.(type) {
			case string:
				err = fmt.Errorf("incorrect range %s-%s: %w", start, end, errors.New(x))
			case error:
				err = fmt.Errorf("incorrect range %s-%s: %w", start, end, x)
			}
		}
	}()

	subnets, err = cidrman.IPRangeToCIDRs(start, end)
	if err != nil {
		return nil, fmt.Errorf("incorrect range %s-%s: %w", start, end, err)
	}

	return subnets, nil
}

// ipv6RangeToCIDRs splits an inclusive range into a minimal list of
// prefixes.
func ipv6RangeToCIDRs(start, end geolib.Uint128) []string {
	rv := []string{}

	for {
		size := trailingZeros128(start)
		last := orUint128(start, hostMask(size))

		for last.Cmp(end) > 0 {
			size--
			last = orUint128(start, hostMask(size))
		}

		addr := geolib.Address{Version: 6, V6: start}.Addr()
		rv = append(rv, netip.PrefixFrom(addr, 128-size).String())

		if last.Cmp(end) >= 0 {
			return rv
		}

		start = last.Next()
	}
}

func trailingZeros128(u geolib.Uint128) int {
	if u.Lo != 0 {
		return bits.TrailingZeros64(u.Lo)
	}

	return 64 + bits.TrailingZeros64(u.Hi)
}

// hostMask returns a value with lowest size bits set.
func hostMask(size int) geolib.Uint128 {
	switch {
	case size <= 0:
		return geolib.Uint128{}
	case size < 64:
		return geolib.Uint128{Lo: 1<<uint(size) - 1}
	case size < 128:
		return geolib.Uint128{Hi: 1<<uint(size-64) - 1, Lo: math.MaxUint64}
	}

	return geolib.Uint128{Hi: math.MaxUint64, Lo: math.MaxUint64}
}

func orUint128(a, b geolib.Uint128) geolib.Uint128 {
	return geolib.Uint128{Hi: a.Hi | b.Hi, Lo: a.Lo | b.Lo}
}

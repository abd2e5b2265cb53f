package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/netip"
	"strconv"

	"github.com/9seconds/iplocation/geolib"
)

const (
	columnNetwork           = "network"
	columnRegisteredCountry = "registered_country_geoname_id"
	columnLatitude          = "latitude"
	columnLongitude         = "longitude"
	columnAccuracyRadius    = "accuracy_radius"
	columnPostalCode        = "postal_code"

	columnNetworkStart = "network1"
	columnNetworkEnd   = "network2"
	columnCC           = "cc"
)

var simpleColumns = []string{columnNetworkStart, columnNetworkEnd, columnCC}

// pendingRange is a range which can still be extended by the next
// contiguous row with the same payload.
type pendingRange[K any] struct {
	start   K
	end     K
	payload []byte
	ok      bool
}

type blockPass[K any] struct {
	build  *build
	codec  geolib.KeyCodec[K]
	path   string
	writer *rangeWriter

	pending pendingRange[K]
	lines   int
}

func (b *blockPass[K]) Run(ctx context.Context) error {
	if b.path == "" {
		return nil
	}

	required := []string{columnNetwork}
	positional := []string(nil)

	if b.build.simple {
		required = simpleColumns
		positional = simpleColumns
	}

	reader, err := openCSV(b.build.fs, b.path, required, positional)
	if err != nil {
		return err
	}

	defer reader.Close()

	for count := 0; ; count++ {
		if count%ctxCheckEvery == 0 && ctx.Err() != nil {
			return ctx.Err()
		}

		if err := reader.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return err
		}

		if err := b.processRow(ctx, reader); err != nil {
			return err
		}
	}

	return b.flush(ctx)
}

func (b *blockPass[K]) processRow(ctx context.Context, reader *csvReader) error {
	start, end, err := b.parseRange(reader)
	if err != nil {
		b.warn(reader, err.Error())

		return nil
	}

	if b.pending.ok && b.codec.Cmp(start, b.pending.end) <= 0 {
		b.warn(reader, "range overlaps a previous one or is not sorted")

		return nil
	}

	payload, ok := b.makePayload(reader)
	if !ok {
		return nil
	}

	if b.pending.ok &&
		b.codec.Cmp(b.codec.Next(b.pending.end), start) == 0 &&
		bytes.Equal(b.pending.payload, payload) {
		b.pending.end = end

		return nil
	}

	if err := b.flush(ctx); err != nil {
		return err
	}

	b.pending = pendingRange[K]{
		start:   start,
		end:     end,
		payload: payload,
		ok:      true,
	}

	return nil
}

func (b *blockPass[K]) flush(ctx context.Context) error {
	if !b.pending.ok {
		return nil
	}

	start := make([]byte, b.codec.Size)
	end := make([]byte, b.codec.Size)

	b.codec.Put(start, b.pending.start)
	b.codec.Put(end, b.pending.end)

	b.pending.ok = false
	b.lines++

	return b.writer.Write(ctx, start, end, b.pending.payload)
}

func (b *blockPass[K]) parseRange(reader *csvReader) (K, K, error) {
	var (
		zero       K
		start, end geolib.Address
	)

	if b.build.simple {
		first, err := netip.ParseAddr(reader.Get(columnNetworkStart))
		if err != nil {
			return zero, zero, fmt.Errorf("invalid start address %q", reader.Get(columnNetworkStart))
		}

		last, err := netip.ParseAddr(reader.Get(columnNetworkEnd))
		if err != nil {
			return zero, zero, fmt.Errorf("invalid end address %q", reader.Get(columnNetworkEnd))
		}

		start = geolib.AddressFromNetip(first.WithZone(""))
		end = geolib.AddressFromNetip(last.WithZone(""))
	} else {
		prefix, err := netip.ParsePrefix(reader.Get(columnNetwork))
		if err != nil {
			return zero, zero, fmt.Errorf("invalid network %q", reader.Get(columnNetwork))
		}

		start, end = geolib.PrefixRange(prefix)
	}

	if start.Version != b.codec.Version || end.Version != b.codec.Version {
		return zero, zero, fmt.Errorf("network %s-%s is not IPv%d", start, end, b.codec.Version)
	}

	startKey := b.codec.FromAddress(start)
	endKey := b.codec.FromAddress(end)

	if b.codec.Cmp(startKey, endKey) > 0 {
		return zero, zero, fmt.Errorf("range start %s is greater than end %s", start, end)
	}

	return startKey, endKey, nil
}

func (b *blockPass[K]) makePayload(reader *csvReader) ([]byte, bool) {
	if b.build.layout.CountryOnly() {
		return b.makeCountryPayload(reader)
	}

	return b.makeCityPayload(reader)
}

func (b *blockPass[K]) makeCountryPayload(reader *csvReader) ([]byte, bool) {
	var country string

	if b.build.simple {
		country = geolib.NormalizeAlpha2Code(reader.Get(columnCC))
	} else if loc := b.findLocation(reader); loc != nil {
		country = loc.country
	}

	if len(country) != 2 {
		b.warn(reader, "missing or invalid country code")

		return nil, false
	}

	return []byte(country), true
}

func (b *blockPass[K]) makeCityPayload(reader *csvReader) ([]byte, bool) {
	layout := b.build.layout
	payload := make([]byte, layout.MainRecordSize())

	if layout.LocationFile() {
		loc := b.findLocation(reader)
		if loc == nil {
			b.warn(reader, fmt.Sprintf("unknown location id %q", reader.Get(columnGeonameID)))

			return nil, false
		}

		putUint32(payload, 0, b.build.locationID(loc))
	}

	if layout.Has(geolib.FieldLatitude) {
		putUint32(payload, layout.Offset(geolib.FieldLatitude),
			uint32(b.coordinate(reader, columnLatitude)))
	}

	if layout.Has(geolib.FieldLongitude) {
		putUint32(payload, layout.Offset(geolib.FieldLongitude),
			uint32(b.coordinate(reader, columnLongitude)))
	}

	if layout.Has(geolib.FieldPostcode) {
		raw := reader.Get(columnPostalCode)
		offset := layout.Offset(geolib.FieldPostcode)

		format, value, ok := geolib.EncodePostcode(raw)
		if !ok {
			b.warn(reader, fmt.Sprintf("invalid postcode %q", raw))
		}

		payload[offset] = byte(format)
		putUint32(payload, offset+1, value)
	}

	if layout.Has(geolib.FieldArea) {
		raw := reader.Get(columnAccuracyRadius)

		idx := b.build.areas.Add(raw)
		if idx > math.MaxUint8 {
			b.warn(reader, fmt.Sprintf("too many distinct accuracy radiuses, %q is dropped", raw))

			idx = 0
		}

		payload[layout.Offset(geolib.FieldArea)] = byte(idx)
	}

	return payload, true
}

// findLocation resolves a geoname of the row. Rows without geoname
// fall back to the registered country.
func (b *blockPass[K]) findLocation(reader *csvReader) *location {
	value := reader.Get(columnGeonameID)
	if value == "" {
		value = reader.Get(columnRegisteredCountry)
	}

	id, ok := parseGeonameID(value)
	if !ok {
		return nil
	}

	return b.build.locations[id]
}

func (b *blockPass[K]) coordinate(reader *csvReader, column string) int32 {
	raw := reader.Get(column)
	if raw == "" {
		return 0
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.Abs(value) > 180 {
		b.warn(reader, fmt.Sprintf("invalid %s %q", column, raw))

		return 0
	}

	return geolib.ScaleCoordinate(value)
}

func (b *blockPass[K]) warn(reader *csvReader, msg string) {
	b.build.logger.BuildWarning(b.path, fmt.Sprintf("line %d: %s", reader.Line(), msg))
}

package main

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/9seconds/iplocation/geolib"
	"github.com/oschwald/geoip2-golang"
)

var errNoCountryField = errors.New("database has no country field")

type countryLookupFunc func(net.IP) (string, error)

type verifyReport struct {
	Checked    int     `json:"checked"`
	Mismatches int     `json:"mismatches"`
	Ratio      float64 `json:"ratio"`

	// Samples are first mismatched addresses.
	Samples []verifyMismatch `json:"samples,omitempty"`
}

type verifyMismatch struct {
	IP       string `json:"ip"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

const maxVerifySamples = 20

// runVerify compares countries of every step-th range start with
// a MaxMind mmdb database.
func runVerify(db *geolib.Database, mmdbPath string, step int) (verifyReport, error) {
	reader, err := geoip2.Open(mmdbPath)
	if err != nil {
		return verifyReport{}, fmt.Errorf("cannot open %s: %w", mmdbPath, err)
	}

	defer reader.Close()

	return verifyRanges(db, step, func(ip net.IP) (string, error) {
		record, err := reader.Country(ip)
		if err != nil {
			return "", err
		}

		if record.Country.IsoCode != "" {
			return record.Country.IsoCode, nil
		}

		return record.RegisteredCountry.IsoCode, nil
	})
}

func verifyRanges(db *geolib.Database, step int, lookup countryLookupFunc) (verifyReport, error) {
	report := verifyReport{}

	if !db.Layout().Has(geolib.FieldCountry) {
		return report, errNoCountryField
	}

	if step < 1 {
		step = 1
	}

	for _, version := range []int{4, 6} {
		idx := 0

		err := db.Ranges(version, func(rng geolib.Range) error {
			defer func() {
				idx++
			}()

			if idx%step != 0 {
				return nil
			}

			ip := net.IP(rng.Start.Addr().AsSlice())

			expected, err := lookup(ip)
			if err != nil {
				return fmt.Errorf("cannot lookup %s: %w", ip, err)
			}

			report.Checked++

			if strings.EqualFold(expected, rng.Data.Country) {
				return nil
			}

			report.Mismatches++

			if len(report.Samples) < maxVerifySamples {
				report.Samples = append(report.Samples, verifyMismatch{
					IP:       ip.String(),
					Expected: expected,
					Actual:   rng.Data.Country,
				})
			}

			return nil
		})
		if err != nil {
			return report, fmt.Errorf("cannot verify ipv%d ranges: %w", version, err)
		}
	}

	if report.Checked > 0 {
		report.Ratio = float64(report.Mismatches) / float64(report.Checked)
	}

	return report, nil
}

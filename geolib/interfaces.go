package geolib

import "net/http"

// Logger is a narrow interface for events which are interesting to
// operators. Both the builder and the database report through it.
type Logger interface {
	BuildInfo(stage string, msg string)
	BuildWarning(file string, msg string)
	LookupError(ip string, err error)
}

type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// CountryInfo is a static country metadata table keyed by 2-letter
// ISO3166 code.
type CountryInfo interface {
	Lookup(alpha2 string) (CountryDetails, bool)
}

// NoopLogger discards everything.
type NoopLogger struct{}

func (NoopLogger) BuildInfo(string, string)    {}
func (NoopLogger) BuildWarning(string, string) {}
func (NoopLogger) LookupError(string, error)   {}

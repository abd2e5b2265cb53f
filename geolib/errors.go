package geolib

import "errors"

var (
	// ErrInvalidAddress is returned if given string cannot be parsed
	// as IPv4 or IPv6 address.
	ErrInvalidAddress = errors.New("invalid ip address")

	// ErrAddressOutOfRange is returned for well-formed IPv4 addresses
	// with octets above 255. Lookups treat it as 'not found'.
	ErrAddressOutOfRange = errors.New("ip address is out of range")

	// ErrCorruptedDatabase is returned if database files do not agree
	// with each other or with the record layout.
	ErrCorruptedDatabase = errors.New("database is corrupted")

	// ErrNoDatabase is returned if a database of requested layout
	// was never built.
	ErrNoDatabase = errors.New("database is not built")

	ErrUnknownField         = errors.New("unknown field")
	ErrNoFields             = errors.New("no fields are requested")
	ErrInvalidCountryCode   = errors.New("invalid country code")
	ErrCityRefOverflow      = errors.New("city name reference does not fit 32 bits")
	ErrCircuitBreakerOpened = errors.New("circuit breaker is opened")
	ErrCircuitBreakerIgnore = errors.New("this error should be ignored by circuit breaker")
)

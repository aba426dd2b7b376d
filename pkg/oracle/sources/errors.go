// Package sources provides price feed adapter interfaces and implementations.
package sources

import "errors"

var (
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrInvalidResponse indicates a malformed response from the source.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrAPIError indicates an error reported by the source API itself.
	ErrAPIError = errors.New("API error")
	// ErrNoPriceForSymbol indicates the response carried no price for the symbol.
	ErrNoPriceForSymbol = errors.New("no price for symbol")
	// ErrZeroPrice indicates the source reported a zero or negative price.
	ErrZeroPrice = errors.New("zero or negative price")
	// ErrInvalidConfig indicates that the adapter configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownSource indicates an unregistered source key.
	ErrUnknownSource = errors.New("unknown source")
)

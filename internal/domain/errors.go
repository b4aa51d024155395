package domain

import "errors"

var (
	ErrEmptyMessage   = errors.New("empty message")
	ErrMessageTooLong = errors.New("message too long")
)

var ErrExtractionFailed = errors.New("extraction failed")

var (
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrStaleRates      = errors.New("currency rates are stale")
)

var ErrUnrecognizedUpstream = errors.New("unrecognized upstream error")

var (
	ErrSessionExpired  = errors.New("session expired")
	ErrStateIncomplete = errors.New("search parameters incomplete")
)

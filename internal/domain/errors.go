package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrPositionClosed   = errors.New("position already closed")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidSignal    = errors.New("invalid signal payload")
)

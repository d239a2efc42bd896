package repository

import "errors"

// ErrNoRowReturned is returned by adapters when an insert succeeds but the store
// does not echo the written row back.
var ErrNoRowReturned = errors.New("store returned no row for insert")

// ErrInvalidRow is returned when a row read from the store cannot be decoded.
var ErrInvalidRow = errors.New("invalid memory row")

package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrRecordNotFound     = errors.New("record not found")
	ErrDuplicateID        = errors.New("duplicate record id")
	ErrInvalidRecord      = errors.New("invalid record")
)

// StoreError reports a failure to read, parse or write the backing file.
type StoreError struct {
	Op   string // read | parse | encode | write
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("catalog %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

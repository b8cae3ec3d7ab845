package chat

import "errors"

// Error kinds callers branch on with errors.Is. The boundary layers map them
// to HTTP statuses and to the websocket error event; the wrapped detail only
// ever reaches the logs.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")
)

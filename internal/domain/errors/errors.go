package errors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrRemoteRejected    = errors.New("remote rejected request")
	ErrFetchFailed       = errors.New("fetch orders failed")
	ErrTransportClosed   = errors.New("transport closed")
	ErrInvalidPayload    = errors.New("invalid payload")
)

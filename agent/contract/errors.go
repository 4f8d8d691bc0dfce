package contract

import "errors"

var (
	ErrMalformedHistory  = errors.New("malformed conversation history")
	ErrInvalidArguments  = errors.New("invalid tool arguments")
	ErrObjectNotFound    = errors.New("object not found")
	ErrSpecialistFailure = errors.New("research specialist failed")
	ErrStoreUnavailable  = errors.New("object store unavailable")
)

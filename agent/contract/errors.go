package contract

import "errors"

var (
	ErrUnknownTool         = errors.New("unknown tool")
	ErrForbidden           = errors.New("forbidden")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrBadArguments        = errors.New("bad tool arguments")
	ErrConflict            = errors.New("scheduling conflict")
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrModelInvoke         = errors.New("model invoke failed")
)

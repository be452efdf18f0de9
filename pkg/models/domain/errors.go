package domain

import "errors"

var (
	ErrUnsupportedResourceType = errors.New("unsupported resource type")
	ErrMissingAttribute        = errors.New("missing attribute")
	// ErrSetup marks failures to construct inventory, store or alert clients.
	ErrSetup = errors.New("setup failed")
)

package providerconfig

import "errors"

var (
	ErrNotFound      = errors.New("provider config not found")
	ErrInvalidConfig = errors.New("invalid provider config")
)

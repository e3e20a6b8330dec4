package partners

import "errors"

var (
	ErrNotFound       = errors.New("partner not found")
	ErrAlreadyPartner = errors.New("user is already a partner")
	ErrInvalidRate    = errors.New("commission rate must be between 0 and 100")
)

package automation

import "errors"

var (
	ErrNotConfigured     = errors.New("automation endpoint URL is not configured")
	ErrRequestFailed     = errors.New("automation request failed")
	ErrResponseTooLarge  = errors.New("automation response exceeds size limit")
	ErrFailedToBuildCall = errors.New("failed to build automation request")
)

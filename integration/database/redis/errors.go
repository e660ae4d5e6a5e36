package redis

import "errors"

// Sentinel errors returned by Connect and Healthcheck. Callers match
// them with errors.Is to decide between retrying and failing startup.
var (
	ErrFailedToParseConnString = errors.New("failed to parse redis connection string")
	ErrNotReady                = errors.New("redis did not become ready within the connect timeout")
	ErrHealthcheckFailed       = errors.New("redis healthcheck failed")
)

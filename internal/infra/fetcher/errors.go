package fetcher

import "errors"

// Sentinel errors returned by the content-enhancement fetcher.
var (
	ErrInvalidURL        = errors.New("invalid URL")
	ErrPrivateIP         = errors.New("URL resolves to a private IP address")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrTimeout           = errors.New("request timed out")
	ErrBodyTooLarge      = errors.New("response body exceeds size limit")
	ErrReadabilityFailed = errors.New("readability extraction failed")
)

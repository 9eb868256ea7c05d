package provider

import "strings"

// retryableMarkers are the substrings that mark a vendor error as transient:
// rate limiting and momentary overload. Anything else (bad request, auth
// failure) is permanent and propagates without retry.
var retryableMarkers = []string{
	"429",
	"RESOURCE_EXHAUSTED",
	"rate",
	"503",
	"quota",
	"Too Many Requests",
}

// IsRetryable classifies a vendor error by message inclusion. Vendors wrap
// their throttling signals in wildly different shapes, so matching the
// message text is the lowest common denominator that works across all six.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

package lifecycle

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrorKind classifies a failed single-resource action.
type ErrorKind string

const (
	ErrorNone             ErrorKind = ""
	ErrorNotFound         ErrorKind = "not_found"
	ErrorInvalidState     ErrorKind = "invalid_state"
	ErrorThrottled        ErrorKind = "throttled"
	ErrorPermissionDenied ErrorKind = "permission_denied"
	ErrorMalformed        ErrorKind = "malformed"
	ErrorUnknown          ErrorKind = "unknown"
)

var (
	throttleCodes = map[string]bool{
		"Throttling":                true,
		"ThrottlingException":       true,
		"RequestLimitExceeded":      true,
		"TooManyRequestsException":  true,
		"RequestThrottled":          true,
		"RequestThrottledException": true,
		"SlowDown":                  true,
	}
	permissionCodes = map[string]bool{
		"AccessDenied":                true,
		"AccessDeniedException":       true,
		"UnauthorizedOperation":       true,
		"AuthFailure":                 true,
		"UnrecognizedClientException": true,
		"InvalidClientTokenId":        true,
		"ExpiredToken":                true,
		"ExpiredTokenException":       true,
	}
	invalidStateMarkers = []string{
		"InvalidDBClusterState",
		"InvalidDBInstanceState",
		"InvalidClusterState",
		"IncorrectInstanceState",
		"ServiceNotActive",
		"InvalidState",
	}
)

// Classify maps an action error onto an ErrorKind using the AWS error code.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorNone
	}
	if errors.Is(err, ErrMalformedIdentifier) {
		return ErrorMalformed
	}

	code := ErrorCode(err)
	switch {
	case code == "":
		return ErrorUnknown
	case throttleCodes[code]:
		return ErrorThrottled
	case permissionCodes[code]:
		return ErrorPermissionDenied
	case isNotFound(code):
		return ErrorNotFound
	}

	for _, marker := range invalidStateMarkers {
		if strings.Contains(code, marker) {
			return ErrorInvalidState
		}
	}
	return ErrorUnknown
}

// ErrorCode returns the AWS API error code, or "" for non-API errors.
func ErrorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}

func isNotFound(code string) bool {
	return strings.HasSuffix(code, "NotFound") ||
		strings.HasSuffix(code, "NotFoundFault") ||
		strings.HasSuffix(code, "NotFoundException") ||
		strings.HasPrefix(code, "ResourceNotFound") ||
		strings.HasSuffix(code, ".NotFound")
}

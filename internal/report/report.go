// Package report turns failed single-resource actions into structured log records.
package report

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/yairfalse/snooze/pkg/lifecycle"
)

// Reporter logs classified action failures. It never fails and never retries.
type Reporter struct {
	logger zerolog.Logger
}

// New creates a Reporter writing to logger.
func New(logger zerolog.Logger) *Reporter {
	return &Reporter{logger: logger}
}

// Report records that the action on resourceID (a resource of the given
// kind label, e.g. "ecs service") failed with err.
func (r *Reporter) Report(ctx context.Context, label, resourceID string, err error) {
	if r == nil || err == nil {
		return
	}

	class := lifecycle.Classify(err)
	event := r.logger.Error().
		Ctx(ctx).
		Err(err).
		Str("kind", label).
		Str("resource", resourceID).
		Str("error_kind", string(class))
	if code := lifecycle.ErrorCode(err); code != "" {
		event = event.Str("error_code", code)
	}
	event.Msgf("%s %s: %s", label, resourceID, describe(class))
}

func describe(class lifecycle.ErrorKind) string {
	switch class {
	case lifecycle.ErrorNotFound:
		return "resource not found"
	case lifecycle.ErrorInvalidState:
		return "resource is not in a state that allows this action"
	case lifecycle.ErrorThrottled:
		return "request throttled"
	case lifecycle.ErrorPermissionDenied:
		return "permission denied"
	case lifecycle.ErrorMalformed:
		return "unrecognised identifier"
	default:
		return "action failed"
	}
}

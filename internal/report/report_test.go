package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/snooze/pkg/lifecycle"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestReport_PermissionDenied(t *testing.T) {
	var buf bytes.Buffer
	r := New(zerolog.New(&buf))

	err := &smithy.GenericAPIError{Code: "AccessDenied", Message: "not allowed"}
	r.Report(context.Background(), "database cluster", "db-1", err)

	entry := decode(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "database cluster", entry["kind"])
	assert.Equal(t, "db-1", entry["resource"])
	assert.Equal(t, "permission_denied", entry["error_kind"])
	assert.Equal(t, "AccessDenied", entry["error_code"])
	assert.Equal(t, "database cluster db-1: permission denied", entry["message"])
	assert.Contains(t, entry["error"], "not allowed")
}

func TestReport_Malformed(t *testing.T) {
	var buf bytes.Buffer
	r := New(zerolog.New(&buf))

	r.Report(context.Background(), "ecs service", "bogus", &lifecycle.ParseError{Identifier: "bogus", Reason: "too short"})

	entry := decode(t, &buf)
	assert.Equal(t, "malformed", entry["error_kind"])
	_, hasCode := entry["error_code"]
	assert.False(t, hasCode)
}

func TestReport_NilSafe(t *testing.T) {
	var buf bytes.Buffer
	r := New(zerolog.New(&buf))

	r.Report(context.Background(), "alarm", "a", nil)
	assert.Zero(t, buf.Len())

	var nilReporter *Reporter
	assert.NotPanics(t, func() {
		nilReporter.Report(context.Background(), "alarm", "a", errors.New("x"))
	})
}

package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrailing(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		sep        string
		want       string
	}{
		{"alarm arn", "arn:aws:cloudwatch:eu-west-1:123456789012:alarm:my-alarm", ":", "my-alarm"},
		{"rds cluster arn", "arn:aws:rds:eu-west-1:123456789012:cluster:docdb-1", ":", "docdb-1"},
		{"redshift arn", "arn:aws:redshift:eu-west-1:123456789012:cluster:wh", ":", "wh"},
		{"ec2 instance arn", "arn:aws:ec2:eu-west-1:123456789012:instance/i-0abc", "/", "i-0abc"},
		{"abbreviated arn", "arn:...:alarm:my-alarm", ":", "my-alarm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseTrailing(tt.identifier, tt.sep)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref.ID)
			assert.Empty(t, ref.Parent)
			assert.Equal(t, tt.identifier, ref.ARN)
		})
	}
}

func TestParseTrailing_Malformed(t *testing.T) {
	for _, id := range []string{"", "   ", "arn:aws:rds:eu-west-1:123456789012:cluster:"} {
		_, err := ParseTrailing(id, ":")
		require.Error(t, err, "identifier %q", id)
		assert.True(t, errors.Is(err, ErrMalformedIdentifier))

		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, id, pe.Identifier)
	}
}

func TestParseNested(t *testing.T) {
	ref, err := ParseNested("arn:aws:ecs:eu-west-1:123456789012:service/clusterA/serviceB", "/")
	require.NoError(t, err)
	assert.Equal(t, "clusterA", ref.Parent)
	assert.Equal(t, "serviceB", ref.ID)
	assert.Equal(t, "clusterA/serviceB", ref.String())

	ref, err = ParseNested("arn:.../clusterA/serviceB", "/")
	require.NoError(t, err)
	assert.Equal(t, "clusterA", ref.Parent)
	assert.Equal(t, "serviceB", ref.ID)
}

func TestParseNested_LegacyServiceARN(t *testing.T) {
	// old-format service ARNs carry no cluster name
	_, err := ParseNested("arn:aws:ecs:eu-west-1:123456789012:service/serviceB", "/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedIdentifier)
	assert.Contains(t, err.Error(), "at least 3")
}

func TestParseNested_EmptySegments(t *testing.T) {
	_, err := ParseNested("arn:aws:ecs:eu-west-1:123456789012:service//serviceB", "/")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)

	_, err = ParseNested("serviceB", "/")
	assert.ErrorIs(t, err, ErrMalformedIdentifier)
}

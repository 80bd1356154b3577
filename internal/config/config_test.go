package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/snooze/pkg/lifecycle"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
[aws]
regions = ["us-east-1", "eu-west-1"]
profile = "production"

[otel]
endpoint = "localhost:4317"
insecure = true
service_name = "snooze-nightly"

[otel.traces]
enabled = true
sample_rate = 1.0

[otel.metrics]
enabled = true

[log]
level = "debug"
format = "json"

[pushgateway]
url = "http://pushgateway:9091"
job = "snooze-nightly"

[journal]
path = "/var/lib/snooze/journal.db"

[[target]]
name = "dev-nights"
kinds = ["alarm", "container_service"]

[[target.tag]]
key = "env"
values = ["dev", "qa"]

[[target.tag]]
key = "team"
values = ["payments"]

[[target.exclude]]
key = "snooze"
values = ["never"]
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, cfg.AWS.Regions)
	assert.Equal(t, "production", cfg.AWS.Profile)
	assert.Equal(t, "localhost:4317", cfg.OTEL.Endpoint)
	assert.True(t, cfg.OTEL.Insecure)
	assert.Equal(t, "snooze-nightly", cfg.OTEL.ServiceName)
	assert.True(t, cfg.OTEL.Traces.Enabled)
	assert.Equal(t, 1.0, cfg.OTEL.Traces.SampleRate)
	assert.True(t, cfg.OTEL.Metrics.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "http://pushgateway:9091", cfg.Pushgateway.URL)
	assert.Equal(t, "snooze-nightly", cfg.Pushgateway.Job)
	assert.Equal(t, "/var/lib/snooze/journal.db", cfg.Journal.Path)

	require.Len(t, cfg.Targets, 1)
	target := cfg.Targets[0]
	assert.Equal(t, "dev-nights", target.Name)
	assert.Equal(t, []lifecycle.TagFilter{
		{Key: "env", Values: []string{"dev", "qa"}},
		{Key: "team", Values: []string{"payments"}},
	}, target.Tags)
	assert.Equal(t, []lifecycle.TagFilter{{Key: "snooze", Values: []string{"never"}}}, target.Exclude)

	kinds, err := target.ParsedKinds()
	require.NoError(t, err)
	assert.Equal(t, []lifecycle.Kind{lifecycle.KindAlarm, lifecycle.KindContainerService}, kinds)

	require.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	content := `
[aws]
regions = ["us-east-1"]
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)

	require.NoError(t, err)
	// Check defaults are applied
	assert.Equal(t, "snooze", cfg.OTEL.ServiceName)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "snooze", cfg.Pushgateway.Job)
	assert.Empty(t, cfg.Pushgateway.URL)
	assert.Empty(t, cfg.Journal.Path)
	assert.Empty(t, cfg.Targets)
}

func TestLoad_TraceSampleRate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{
			name:    "enabled without rate samples everything",
			content: "[otel.traces]\nenabled = true\n",
			want:    1.0,
		},
		{
			name:    "explicit rate is kept",
			content: "[otel.traces]\nenabled = true\nsample_rate = 0.25\n",
			want:    0.25,
		},
		{
			name:    "explicit zero is kept",
			content: "[otel.traces]\nenabled = true\nsample_rate = 0.0\n",
			want:    0,
		},
		{
			name:    "disabled leaves rate unset",
			content: "[otel.traces]\nenabled = false\n",
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeTempConfig(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.OTEL.Traces.SampleRate)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "snooze", cfg.OTEL.ServiceName)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	require.Error(t, err)
}

func TestLoad_InvalidTOML(t *testing.T) {
	content := `
[aws
regions = "not an array"
`
	path := writeTempConfig(t, content)
	_, err := Load(path)
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid with no regions",
			cfg:  Config{},
		},
		{
			name:    "sample rate out of range",
			cfg:     Config{OTEL: OTELConfig{Traces: TracesConfig{SampleRate: 1.5}}},
			wantErr: "sample_rate",
		},
		{
			name:    "unknown log format",
			cfg:     Config{Log: LogConfig{Format: "xml"}},
			wantErr: "unknown format",
		},
		{
			name:    "target without name",
			cfg:     Config{Targets: []Target{{Kinds: []string{"alarm"}}}},
			wantErr: "name is required",
		},
		{
			name: "duplicate target",
			cfg: Config{Targets: []Target{
				{Name: "nights"},
				{Name: "nights"},
			}},
			wantErr: "more than once",
		},
		{
			name:    "unknown kind",
			cfg:     Config{Targets: []Target{{Name: "nights", Kinds: []string{"lambda"}}}},
			wantErr: "unknown kind",
		},
		{
			name: "tag without values",
			cfg: Config{Targets: []Target{{
				Name: "nights",
				Tags: []lifecycle.TagFilter{{Key: "env"}},
			}}},
			wantErr: "at least one value",
		},
		{
			name: "exclude without key",
			cfg: Config{Targets: []Target{{
				Name:    "nights",
				Exclude: []lifecycle.TagFilter{{Values: []string{"never"}}},
			}}},
			wantErr: "exclude",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTarget_ParsedKinds_DefaultsToAll(t *testing.T) {
	kinds, err := Target{Name: "all"}.ParsedKinds()
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Kinds(), kinds)
}

func TestConfig_Target(t *testing.T) {
	cfg := &Config{Targets: []Target{{Name: "a"}, {Name: "b", Kinds: []string{"instance"}}}}

	target, err := cfg.Target("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"instance"}, target.Kinds)

	_, err = cfg.Target("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

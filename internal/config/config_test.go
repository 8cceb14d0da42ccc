package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "wss://frontend-api-v2.pump.fun/socket.io/?EIO=4&transport=websocket", cfg.Feed.URL)
	assert.Equal(t, 5*time.Second, cfg.Feed.ReconnectDelay)
	assert.Equal(t, time.Duration(0), cfg.Feed.MaxReconnectDelay)
	assert.Equal(t, int64(1<<20), cfg.Feed.MaxMessageSize)
	assert.Equal(t, 50, cfg.Store.Capacity)
	assert.Equal(t, 20, cfg.Query.Limit)
	assert.Equal(t, "strict", cfg.Labels.Policy)
	assert.True(t, cfg.Output.IncludeOptional)
	assert.Equal(t, 2*time.Minute, cfg.Health.MaxFrameAge)
	assert.False(t, cfg.Archive.Enabled())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PUMPFEED_LABELS_POLICY", "permissive")
	t.Setenv("PUMPFEED_FEED_RECONNECT_DELAY", "250ms")
	t.Setenv("PUMPFEED_STORE_CAPACITY", "10")
	t.Setenv("PUMPFEED_OUTPUT_INCLUDE_OPTIONAL", "false")
	t.Setenv("PUMPFEED_OUTPUT_TIMEZONE", "UTC")
	t.Setenv("PUMPFEED_ARCHIVE_KAFKA_BROKERS", " a:9092, ,b:9092 ")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "permissive", cfg.Labels.Policy)
	assert.Equal(t, 250*time.Millisecond, cfg.Feed.ReconnectDelay)
	assert.Equal(t, 10, cfg.Store.Capacity)
	assert.False(t, cfg.Output.IncludeOptional)
	assert.True(t, cfg.Archive.Enabled())
	assert.Equal(t, "a:9092,b:9092", cfg.Archive.KafkaBrokerList())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoad_Port(t *testing.T) {
	t.Setenv("PORT", "5000")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.Server.Addr)

	t.Setenv("PUMPFEED_SERVER_ADDR", "127.0.0.1:9000")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
feed:
  reconnect_delay: 2s
  max_reconnect_delay: 30s
query:
  limit: 5
labels:
  policy: permissive
log:
  level: debug
archive:
  postgres_dsn: postgres://localhost/pump
  batch_size: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Feed.ReconnectDelay)
	assert.Equal(t, 30*time.Second, cfg.Feed.MaxReconnectDelay)
	assert.Equal(t, 5, cfg.Query.Limit)
	assert.Equal(t, "permissive", cfg.Labels.Policy)
	assert.Equal(t, "debug", cfg.Logging().Level)
	assert.Equal(t, 10, cfg.Archive.BatchSize)
	assert.True(t, cfg.Archive.Enabled())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "policy", env: map[string]string{"PUMPFEED_LABELS_POLICY": "lenient"}, want: "labels.policy"},
		{name: "capacity", env: map[string]string{"PUMPFEED_STORE_CAPACITY": "0"}, want: "store.capacity"},
		{name: "timezone", env: map[string]string{"PUMPFEED_OUTPUT_TIMEZONE": "Mars/Olympus"}, want: "output.timezone"},
		{name: "log level", env: map[string]string{"PUMPFEED_LOG_LEVEL": "loud"}, want: "log.level"},
		{name: "archive batch", env: map[string]string{
			"PUMPFEED_ARCHIVE_REDIS_ADDR":  "localhost:6379",
			"PUMPFEED_ARCHIVE_BATCH_SIZE": "0",
		}, want: "archive.batch_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	levels := make(chan string, 8)
	cfg.Watch(func(next *Config, err error) {
		if err == nil {
			levels <- next.Log.Level
		}
	})

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	require.Eventually(t, func() bool {
		for {
			select {
			case lvl := <-levels:
				if lvl == "debug" {
					return true
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatch_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	called := false
	cfg.Watch(func(*Config, error) { called = true })
	assert.False(t, called)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	viper.Reset()

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "http://localhost:5050", cfg.Recorder.StorageServerURL)
	require.Equal(t, 30, cfg.Recorder.SegmentSeconds)
	require.Equal(t, 16000, cfg.Recorder.SampleRate)
	require.Equal(t, "32k", cfg.Recorder.Bitrate)
	require.Equal(t, 2, cfg.Recorder.MaxRetries)
	require.Equal(t, time.Second, cfg.Recorder.RetryBackoff)
	require.Equal(t, 15*time.Second, cfg.Recorder.UploadTimeout)
	require.Equal(t, "5050", cfg.Server.HttpPort)
	require.Equal(t, "audio_storage", cfg.Server.StorageDir)
	require.EqualValues(t, 50, cfg.Server.MaxUploadMB)
}

func TestLoadReadsConfigFile(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	yaml := []byte(`
app:
  environment: production
recorder:
  storage_server_url: http://192.168.1.100:5050
  segment_seconds: 10
server:
  http_port: "8080"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, "production", cfg.App.Environment)
	require.Equal(t, "http://192.168.1.100:5050", cfg.Recorder.StorageServerURL)
	require.Equal(t, 10, cfg.Recorder.SegmentSeconds)
	require.Equal(t, "8080", cfg.Server.HttpPort)
	// Untouched keys keep their defaults.
	require.Equal(t, 16000, cfg.Recorder.SampleRate)
}

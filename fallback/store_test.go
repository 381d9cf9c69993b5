package fallback

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"audio-archiver/constant"
	"audio-archiver/dto"
)

func writeArtifact(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("encoded audio"), 0o644))
	return path
}

func TestSaveWritesArtifactAndAnnotatedSidecar(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fallback")
	s := NewStore(dir)

	meta := dto.SegmentMetadata{
		SampleRate:    16000,
		NumSamples:    16000,
		Format:        "opus",
		FileSizeBytes: 13,
	}
	artifact := writeArtifact(t, "audio_2026-08-28_10-00-00.opus")
	require.NoError(t, s.Save(context.Background(), artifact, meta, constant.FallbackReasonUnreachable))

	copied, err := os.ReadFile(filepath.Join(dir, "audio_2026-08-28_10-00-00.opus"))
	require.NoError(t, err)
	require.Equal(t, "encoded audio", string(copied))

	raw, err := os.ReadFile(filepath.Join(dir, "audio_2026-08-28_10-00-00.json"))
	require.NoError(t, err)

	var stored dto.SegmentMetadata
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.True(t, stored.SavedLocally)
	require.Equal(t, constant.FallbackReasonUnreachable, stored.LocalFallbackReason)
	require.Equal(t, 16000, stored.NumSamples)
}

func TestSaveNeverOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fallback")
	s := NewStore(dir)

	meta := dto.SegmentMetadata{Format: "opus"}
	first := writeArtifact(t, "clip.opus")
	second := writeArtifact(t, "clip.opus")

	require.NoError(t, s.Save(context.Background(), first, meta, constant.FallbackReasonUploadFailed))
	require.NoError(t, s.Save(context.Background(), second, meta, constant.FallbackReasonUploadFailed))

	require.FileExists(t, filepath.Join(dir, "clip.opus"))
	require.FileExists(t, filepath.Join(dir, "clip_1.opus"))
	require.FileExists(t, filepath.Join(dir, "clip_1.json"))
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "fallback")
	s := NewStore(dir)

	artifact := writeArtifact(t, "clip.wav")
	require.NoError(t, s.Save(context.Background(), artifact, dto.SegmentMetadata{}, constant.FallbackReasonUnreachable))
	require.DirExists(t, dir)
}

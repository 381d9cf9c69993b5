package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"audio-archiver/codec"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	adapter := codec.NewAdapter("/nonexistent/ffmpeg", time.Second)
	c, err := NewCatalog(t.TempDir(), adapter)
	require.NoError(t, err)
	return c
}

func storeFile(t *testing.T, c *Catalog, name, content, metadata string) string {
	t.Helper()
	stored, size, err := c.Store(context.Background(), strings.NewReader(content), name, metadata, "10.0.0.5")
	require.NoError(t, err)
	require.EqualValues(t, len(content), size)
	return stored
}

func TestStoreResolvesNameCollisionsWithSuffix(t *testing.T) {
	c := testCatalog(t)

	first := storeFile(t, c, "clip.opus", "one", "")
	second := storeFile(t, c, "clip.opus", "two", "")
	third := storeFile(t, c, "clip.opus", "three", "")

	require.Equal(t, "clip.opus", first)
	require.Equal(t, "clip_1.opus", second)
	require.Equal(t, "clip_2.opus", third)

	files, err := c.List()
	require.NoError(t, err)
	require.Len(t, files, 3)
}

func TestStoreEnrichesSidecarMetadata(t *testing.T) {
	c := testCatalog(t)

	clientMeta := `{"sample_rate":16000,"format":"opus","custom_field":"kept"}`
	stored := storeFile(t, c, "seg.opus", "payload", clientMeta)

	files, err := c.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, stored, files[0].Filename)

	var sidecar map[string]any
	require.NoError(t, json.Unmarshal(files[0].Metadata, &sidecar))
	require.Equal(t, "kept", sidecar["custom_field"])
	require.Equal(t, stored, sidecar["stored_filename"])
	require.Equal(t, "10.0.0.5", sidecar["source_ip"])
	require.EqualValues(t, 7, sidecar["stored_size_bytes"])
	require.NotEmpty(t, sidecar["received_at"])
}

func TestStoreToleratesMalformedMetadata(t *testing.T) {
	c := testCatalog(t)

	stored := storeFile(t, c, "seg.opus", "payload", "{not json")

	files, err := c.List()
	require.NoError(t, err)
	require.Len(t, files, 1)

	var sidecar map[string]any
	require.NoError(t, json.Unmarshal(files[0].Metadata, &sidecar))
	require.Equal(t, stored, sidecar["stored_filename"])
	_, hasClientFields := sidecar["sample_rate"]
	require.False(t, hasClientFields)
}

func TestListSkipsSidecarsAndDirectories(t *testing.T) {
	c := testCatalog(t)
	storeFile(t, c, "a.opus", "a", "{}")
	storeFile(t, c, "b.wav", "b", "{}")

	files, err := c.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		require.False(t, strings.HasSuffix(f.Filename, ".json"))
		require.NotEqual(t, "decompressed", f.Filename)
	}
}

func TestFilePathRejectsTraversalAndMissing(t *testing.T) {
	c := testCatalog(t)
	storeFile(t, c, "a.opus", "a", "")

	_, err := c.FilePath("missing.opus")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.FilePath("../../etc/passwd")
	require.ErrorIs(t, err, ErrNotFound)

	path, err := c.FilePath("a.opus")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "a.opus"))
}

func TestFileCountIncludesSidecars(t *testing.T) {
	c := testCatalog(t)
	require.Equal(t, 0, c.FileCount())

	storeFile(t, c, "a.opus", "a", "{}")
	require.Equal(t, 2, c.FileCount()) // artifact + sidecar
}

func TestDecompressMissingSourceIs404(t *testing.T) {
	c := testCatalog(t)
	_, _, err := c.Decompress(context.Background(), "missing.opus")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDecompressWithoutDecoderTool(t *testing.T) {
	c := testCatalog(t)
	storeFile(t, c, "a.opus", "a", "")

	_, _, err := c.Decompress(context.Background(), "a.opus")
	require.ErrorIs(t, err, codec.ErrUnavailable)
}

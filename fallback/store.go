package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"audio-archiver/constant"
	"audio-archiver/dto"
)

// Store is the durable persistence of last resort. When the storage
// server cannot be reached the artifact and an annotated sidecar are
// written to a local directory, mirroring the server's own layout.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

// Save copies the artifact into the fallback directory and writes a
// sidecar marked saved_locally with the failure reason. Existing files
// are never overwritten; a numeric suffix resolves collisions.
func (s *Store) Save(ctx context.Context, artifactPath string, meta dto.SegmentMetadata, reason string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating fallback dir: %w", err)
	}

	filename := uniqueName(s.dir, filepath.Base(artifactPath))
	destPath := filepath.Join(s.dir, filename)

	if err := copyFile(artifactPath, destPath); err != nil {
		return fmt.Errorf("copying artifact: %w", err)
	}

	meta.SavedLocally = true
	meta.LocalFallbackReason = reason

	sidecar, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	sidecarPath := strings.TrimSuffix(destPath, filepath.Ext(destPath)) + constant.SidecarExtension
	if err := os.WriteFile(sidecarPath, sidecar, 0o644); err != nil {
		return fmt.Errorf("writing sidecar: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("file", filename).
		Int64("bytes", meta.FileSizeBytes).
		Msg("artifact persisted to fallback store")
	return nil
}

func uniqueName(dir, filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	candidate := filename
	for counter := 1; ; counter++ {
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d%s", base, counter, ext)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

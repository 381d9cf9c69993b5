package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"audio-archiver/codec"
	"audio-archiver/constant"
	"audio-archiver/dto"
)

var ErrNotFound = errors.New("file not found")

// Catalog owns the storage directory of the ingest server: collision-free
// artifact naming, sidecar metadata enrichment, listing, and on-demand
// decompression into a derived subdirectory.
type Catalog struct {
	storageDir    string
	decompressDir string
	codec         *codec.Adapter
}

func NewCatalog(storageDir string, adapter *codec.Adapter) (*Catalog, error) {
	decompressDir := filepath.Join(storageDir, "decompressed")
	for _, dir := range []string{storageDir, decompressDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	}
	return &Catalog{
		storageDir:    storageDir,
		decompressDir: decompressDir,
		codec:         adapter,
	}, nil
}

// Store saves an uploaded artifact under a collision-free name and writes
// its enriched sidecar. Malformed metadata JSON is tolerated by
// substituting an empty record; unknown client fields are preserved.
func (c *Catalog) Store(ctx context.Context, r io.Reader, filename, metadataJSON, sourceIP string) (string, int64, error) {
	filename = filepath.Base(filename)
	stored := uniqueName(c.storageDir, filename)
	path := filepath.Join(c.storageDir, stored)

	out, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	size, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, err
	}

	meta := map[string]any{}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &meta); err != nil {
			meta = map[string]any{}
		}
	}
	meta["received_at"] = time.Now().Format(time.RFC3339)
	meta["stored_filename"] = stored
	meta["stored_size_bytes"] = size
	meta["source_ip"] = sourceIP

	sidecar, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", 0, err
	}
	sidecarPath := strings.TrimSuffix(path, filepath.Ext(path)) + constant.SidecarExtension
	if err := os.WriteFile(sidecarPath, sidecar, 0o644); err != nil {
		return "", 0, err
	}

	zerolog.Ctx(ctx).Info().
		Str("file", stored).
		Int64("bytes", size).
		Str("source", sourceIP).
		Msg("artifact received")
	return stored, size, nil
}

// List returns the catalog of stored artifacts in name order, each with
// its sidecar metadata attached when present. Sidecars and directories
// are not catalog entries themselves.
func (c *Catalog) List() ([]dto.FileInfo, error) {
	entries, err := os.ReadDir(c.storageDir)
	if err != nil {
		return nil, err
	}

	files := make([]dto.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), constant.SidecarExtension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		fi := dto.FileInfo{
			Filename:  entry.Name(),
			SizeBytes: info.Size(),
			Modified:  info.ModTime().Format(time.RFC3339),
		}
		sidecarPath := strings.TrimSuffix(filepath.Join(c.storageDir, entry.Name()), filepath.Ext(entry.Name())) + constant.SidecarExtension
		if raw, err := os.ReadFile(sidecarPath); err == nil && json.Valid(raw) {
			fi.Metadata = raw
		}
		files = append(files, fi)
	}
	return files, nil
}

// FilePath resolves a stored artifact for download. Path traversal is
// rejected by reducing the name to its base component.
func (c *Catalog) FilePath(filename string) (string, error) {
	path := filepath.Join(c.storageDir, filepath.Base(filename))
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	return path, nil
}

// FileCount reports the number of regular files in the storage
// directory, sidecars included.
func (c *Catalog) FileCount() int {
	entries, err := os.ReadDir(c.storageDir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}
	return count
}

// Decompress decodes a stored artifact into a PCM WAV file in the
// decompressed subdirectory, using the sidecar's sample rate when
// available. Returns the response summary and the output path.
func (c *Catalog) Decompress(ctx context.Context, filename string) (dto.DecompressResponse, string, error) {
	inputPath, err := c.FilePath(filename)
	if err != nil {
		return dto.DecompressResponse{}, "", err
	}

	sampleRate := constant.DefaultSampleRate
	sidecarPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + constant.SidecarExtension
	if raw, err := os.ReadFile(sidecarPath); err == nil {
		var meta struct {
			SampleRate int `json:"sample_rate"`
		}
		if json.Unmarshal(raw, &meta) == nil && meta.SampleRate > 0 {
			sampleRate = meta.SampleRate
		}
	}

	base := filepath.Base(inputPath)
	wavName := strings.TrimSuffix(base, filepath.Ext(base)) + constant.FormatWAV.Extension()
	outputPath := filepath.Join(c.decompressDir, wavName)

	if err := c.codec.Decompress(ctx, inputPath, outputPath, sampleRate); err != nil {
		return dto.DecompressResponse{}, "", err
	}

	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return dto.DecompressResponse{}, "", err
	}
	outputInfo, err := os.Stat(outputPath)
	if err != nil {
		return dto.DecompressResponse{}, "", err
	}

	ratio := 0.0
	if inputInfo.Size() > 0 {
		ratio = math.Round(float64(outputInfo.Size())/float64(inputInfo.Size())*10) / 10
	}

	zerolog.Ctx(ctx).Info().
		Str("input", base).
		Str("output", wavName).
		Int64("input_bytes", inputInfo.Size()).
		Int64("output_bytes", outputInfo.Size()).
		Msg("artifact decompressed")

	return dto.DecompressResponse{
		Status:         "ok",
		Input:          base,
		Output:         wavName,
		InputSize:      inputInfo.Size(),
		OutputSize:     outputInfo.Size(),
		ExpansionRatio: ratio,
	}, outputPath, nil
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

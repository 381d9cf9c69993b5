package codec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"audio-archiver/constant"
)

// ErrUnavailable is returned by Decompress when no encoder tool was found
// at construction time.
var ErrUnavailable = errors.New("ffmpeg not available")

// Adapter wraps the external ffmpeg binary used for Opus encoding and
// decoding. Availability is resolved once at construction and fixed for
// the lifetime of the adapter; a missing tool degrades every segment to
// uncompressed WAV, a per-invocation failure degrades only that segment.
type Adapter struct {
	ffmpeg    string
	available bool
	timeout   time.Duration
}

// NewAdapter probes for the encoder tool. ffmpegPath overrides PATH
// lookup when non-empty.
func NewAdapter(ffmpegPath string, timeout time.Duration) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	resolved, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return &Adapter{ffmpeg: ffmpegPath, available: false, timeout: timeout}
	}
	return &Adapter{ffmpeg: resolved, available: true, timeout: timeout}
}

func (a *Adapter) Available() bool {
	return a.available
}

// Result describes a produced artifact.
type Result struct {
	Path         string
	Format       constant.AudioFormat
	RawBytes     int64
	EncodedBytes int64
}

// Compress writes samples to outputBase plus a format extension. With the
// encoder available it produces Opus via a scoped temporary WAV that is
// removed on every exit path; on encoder failure or unavailability it
// writes uncompressed WAV instead. Only an unwritable output is an error.
func (a *Adapter) Compress(ctx context.Context, samples []float32, sampleRate int, outputBase, bitrate string) (Result, error) {
	logger := zerolog.Ctx(ctx)

	if !a.available {
		return a.writeRaw(samples, sampleRate, outputBase)
	}

	tmp, err := os.CreateTemp("", "audio_seg_*.wav")
	if err != nil {
		return Result{}, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := WriteWAVFile(tmpPath, samples, sampleRate); err != nil {
		return Result{}, err
	}

	opusPath := outputBase + constant.FormatOpus.Extension()
	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, a.ffmpeg,
		"-y",
		"-i", tmpPath,
		"-c:a", "libopus",
		"-b:a", bitrate,
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-application", "voip",
		"-frame_duration", "20",
		opusPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		logger.Error().Err(err).Str("output", string(output)).Msg("ffmpeg encode failed, falling back to wav")
		os.Remove(opusPath)
		return a.writeRaw(samples, sampleRate, outputBase)
	}

	rawInfo, err := os.Stat(tmpPath)
	if err != nil {
		return Result{}, err
	}
	opusInfo, err := os.Stat(opusPath)
	if err != nil {
		return Result{}, err
	}

	ratio := 0.0
	if opusInfo.Size() > 0 {
		ratio = float64(rawInfo.Size()) / float64(opusInfo.Size())
	}
	logger.Info().
		Int64("raw_bytes", rawInfo.Size()).
		Int64("encoded_bytes", opusInfo.Size()).
		Str("ratio", fmt.Sprintf("%.1fx", ratio)).
		Msg("compressed segment")

	return Result{
		Path:         opusPath,
		Format:       constant.FormatOpus,
		RawBytes:     rawInfo.Size(),
		EncodedBytes: opusInfo.Size(),
	}, nil
}

func (a *Adapter) writeRaw(samples []float32, sampleRate int, outputBase string) (Result, error) {
	wavPath := outputBase + constant.FormatWAV.Extension()
	if err := WriteWAVFile(wavPath, samples, sampleRate); err != nil {
		return Result{}, err
	}
	info, err := os.Stat(wavPath)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Path:         wavPath,
		Format:       constant.FormatWAV,
		RawBytes:     info.Size(),
		EncodedBytes: info.Size(),
	}, nil
}

// Decompress decodes inputPath into 16-bit mono PCM WAV at outputPath.
func (a *Adapter) Decompress(ctx context.Context, inputPath, outputPath string, sampleRate int) error {
	if !a.available {
		return ErrUnavailable
	}

	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, a.ffmpeg,
		"-y",
		"-i", inputPath,
		"-c:a", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg decode failed: %w: %s", err, output)
	}
	return nil
}

package cmd

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"audio-archiver/codec"
	"audio-archiver/config"
	"audio-archiver/fallback"
	"audio-archiver/logging"
	"audio-archiver/recorder"
	"audio-archiver/transport"
)

func record(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "read raw float32 PCM from stdin and upload timed segments",
		Run: func(cmd *cobra.Command, args []string) {
			runRecorder(config)
		},
	}
}

func runRecorder(cfg *config.Config) {
	logCtx := logging.NewContext(cfg)
	ctx, cancel := signal.NotifyContext(logCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	adapter := codec.NewAdapter(cfg.Recorder.FFmpegPath, cfg.Recorder.EncoderTimeout)
	if !adapter.Available() {
		zerolog.Ctx(logCtx).Warn().Msg("ffmpeg not found, segments will be saved as uncompressed wav")
	}

	rec := recorder.New(
		cfg.Recorder,
		adapter,
		transport.NewUploader(cfg.Recorder),
		fallback.NewStore(cfg.Recorder.FallbackDir),
	)
	// The worker keeps the logger context, not the signal context, so an
	// interrupt never cancels an in-flight delivery during drain.
	rec.Start(logCtx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		feedFromStdin(ctx, rec, cfg.Recorder.ChunkSamples)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}

	rec.Stop(logCtx)
}

// feedFromStdin reads fixed-size little-endian float32 frames and plays
// the producer role until EOF. Any audio source can be piped in, e.g.
// sox or arecord emitting raw f32le mono at the configured sample rate.
func feedFromStdin(ctx context.Context, rec *recorder.Recorder, chunkSamples int) {
	buf := make([]byte, chunkSamples*4)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := io.ReadFull(os.Stdin, buf)
		if n >= 4 {
			rec.OnChunk(bytesToFloat32(buf[:n-n%4]))
		}
		if err != nil {
			return
		}
	}
}

func bytesToFloat32(b []byte) []float32 {
	samples := make([]float32, len(b)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : i*4+4]))
	}
	return samples
}

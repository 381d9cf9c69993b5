package recorder

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"audio-archiver/codec"
	"audio-archiver/config"
	"audio-archiver/constant"
	"audio-archiver/dto"
)

// Deliverer pushes a finished artifact to the storage server.
type Deliverer interface {
	Deliver(ctx context.Context, artifactPath string, meta dto.SegmentMetadata) bool
	Probe(ctx context.Context) bool
	Reachable() bool
	Delivered() uint64
}

// FallbackStore persists an artifact locally when delivery is impossible.
type FallbackStore interface {
	Save(ctx context.Context, artifactPath string, meta dto.SegmentMetadata, reason string) error
}

// Recorder buffers raw audio chunks from the producer callback, cuts
// fixed-duration segments, and hands them to a single background worker
// that compresses and delivers each one. The producer path never touches
// the network or the filesystem.
type Recorder struct {
	cfg      config.Recorder
	codec    *codec.Adapter
	uploader Deliverer
	store    FallbackStore

	buffer *segmentBuffer
	queue  *segmentQueue

	running atomic.Bool
	done    chan struct{} // closed by the worker of the current session

	segments   atomic.Uint64
	fallbacks  atomic.Uint64
	durationMs atomic.Int64
}

func New(cfg config.Recorder, adapter *codec.Adapter, uploader Deliverer, store FallbackStore) *Recorder {
	return &Recorder{
		cfg:      cfg,
		codec:    adapter,
		uploader: uploader,
		store:    store,
		buffer:   newSegmentBuffer(cfg.SampleRate * cfg.SegmentSeconds),
		queue:    newSegmentQueue(),
	}
}

// Start probes the storage server once to set the initial reachability
// flag and launches the delivery worker. A recorder may be started again
// after Stop; each session gets its own worker and completion channel.
func (r *Recorder) Start(ctx context.Context) {
	logger := zerolog.Ctx(ctx)
	if !r.running.CompareAndSwap(false, true) {
		logger.Warn().Msg("recorder already running")
		return
	}

	done := make(chan struct{})
	r.done = done

	reachable := r.uploader.Probe(ctx)
	if reachable {
		logger.Info().Str("server", r.cfg.StorageServerURL).Msg("storage server is online")
	} else {
		logger.Warn().
			Str("server", r.cfg.StorageServerURL).
			Str("fallback_dir", r.cfg.FallbackDir).
			Msg("storage server unreachable, segments will be saved locally")
	}

	logger.Info().
		Int("segment_seconds", r.cfg.SegmentSeconds).
		Int("sample_rate", r.cfg.SampleRate).
		Bool("codec_available", r.codec.Available()).
		Msg("audio recorder started")

	go r.worker(ctx, done)
}

// OnChunk is the producer callback. It is called from the time-sensitive
// audio path and only copies memory under the buffer lock; completed
// segments are enqueued for the worker.
func (r *Recorder) OnChunk(chunk []float32) {
	if !r.running.Load() {
		return
	}
	for _, seg := range r.buffer.Append(chunk) {
		s := seg
		r.queue.Push(queueEntry{Segment: &s})
	}
}

// Stop flushes the partial buffer into one final segment, signals
// shutdown, and waits a bounded time for the worker to drain the queue.
// Queued segments are never discarded.
func (r *Recorder) Stop(ctx context.Context) {
	logger := zerolog.Ctx(ctx)
	if !r.running.CompareAndSwap(true, false) {
		return
	}

	logger.Info().Msg("stopping audio recorder")

	if seg := r.buffer.Flush(); seg != nil {
		r.queue.Push(queueEntry{Segment: seg})
	}
	r.queue.Push(queueEntry{Shutdown: true})

	select {
	case <-r.done:
	case <-time.After(r.cfg.StopTimeout):
		logger.Warn().Msg("worker did not drain in time")
	}

	logger.Info().
		Uint64("segments", r.segments.Load()).
		Uint64("uploaded", r.uploader.Delivered()).
		Uint64("local_fallback", r.fallbacks.Load()).
		Float64("duration_seconds", float64(r.durationMs.Load())/1000).
		Msg("audio recorder stopped")
}

// Status returns an eventually consistent snapshot of the session.
func (r *Recorder) Status() dto.RecorderStatus {
	return dto.RecorderStatus{
		Running:              r.running.Load(),
		StorageServerURL:     r.cfg.StorageServerURL,
		ServerReachable:      r.uploader.Reachable(),
		SegmentSeconds:       r.cfg.SegmentSeconds,
		SegmentsProcessed:    r.segments.Load(),
		Uploaded:             r.uploader.Delivered(),
		LocalFallback:        r.fallbacks.Load(),
		TotalDurationSeconds: float64(r.durationMs.Load()) / 1000,
		BufferSeconds:        float64(r.buffer.BufferedSamples()) / float64(r.cfg.SampleRate),
	}
}

// worker processes segments strictly in arrival order. A shutdown entry
// is honored only after every remaining real entry has been drained.
func (r *Recorder) worker(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		e := r.queue.Pop()
		if e.Shutdown {
			for {
				rest, ok := r.queue.TryPop()
				if !ok {
					return
				}
				if rest.Segment != nil {
					r.processSegment(ctx, rest.Segment)
				}
			}
		}
		r.processSegment(ctx, e.Segment)
	}
}

// processSegment compresses one segment in a scoped temp directory,
// attempts delivery, and falls back to local storage on failure. Errors
// are logged and never stop the worker.
func (r *Recorder) processSegment(ctx context.Context, seg *PendingSegment) {
	logger := zerolog.Ctx(ctx)

	tmpDir := filepath.Join(os.TempDir(), "audio_seg_"+uuid.NewString())
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create segment temp dir")
		return
	}
	defer os.RemoveAll(tmpDir)

	base := filepath.Join(tmpDir, "audio_"+seg.Start.Format("2006-01-02_15-04-05"))
	res, err := r.codec.Compress(ctx, seg.Samples, r.cfg.SampleRate, base, r.cfg.Bitrate)
	if err != nil {
		logger.Error().Err(err).Msg("failed to compress segment")
		return
	}

	duration := float64(len(seg.Samples)) / float64(r.cfg.SampleRate)
	r.segments.Add(1)
	r.durationMs.Add(int64(duration * 1000))

	meta := dto.SegmentMetadata{
		Timestamp:        seg.Start.Format(time.RFC3339),
		TimestampUnix:    seg.Start.UnixMilli(),
		DurationSeconds:  duration,
		SampleRate:       r.cfg.SampleRate,
		NumSamples:       len(seg.Samples),
		Format:           res.Format.String(),
		OriginalFilename: filepath.Base(res.Path),
		FileSizeBytes:    res.EncodedBytes,
	}

	if r.uploader.Deliver(ctx, res.Path, meta) {
		logger.Info().
			Uint64("segment", r.segments.Load()).
			Str("file", meta.OriginalFilename).
			Int64("bytes", meta.FileSizeBytes).
			Float64("seconds", duration).
			Msg("uploaded segment")
		return
	}

	reason := constant.FallbackReasonUploadFailed
	if !r.uploader.Reachable() {
		reason = constant.FallbackReasonUnreachable
	}
	if err := r.store.Save(ctx, res.Path, meta, reason); err != nil {
		logger.Error().Err(err).Str("file", meta.OriginalFilename).Msg("failed to save segment locally")
		return
	}
	r.fallbacks.Add(1)
	logger.Warn().
		Str("file", meta.OriginalFilename).
		Str("reason", reason).
		Msg("saved segment locally (fallback)")
}

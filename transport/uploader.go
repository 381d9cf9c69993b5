package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"audio-archiver/config"
	"audio-archiver/dto"
)

// Uploader delivers compressed artifacts to the storage server with a
// bounded constant-backoff retry loop. Connection refusals and timeouts
// are retried; any other transport error aborts the loop immediately and
// routes the segment to the fallback store.
type Uploader struct {
	client       *resty.Client
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
	probeTimeout time.Duration

	reachable atomic.Bool
	delivered atomic.Uint64
}

func NewUploader(cfg config.Recorder) *Uploader {
	u := &Uploader{
		client:       resty.New().SetTimeout(cfg.UploadTimeout),
		baseURL:      cfg.StorageServerURL,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		probeTimeout: cfg.ProbeTimeout,
	}
	u.reachable.Store(true)
	return u
}

// Probe runs one cheap liveness check against /health. It sets the
// initial reachability flag but never gates per-segment delivery.
func (u *Uploader) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, u.probeTimeout)
	defer cancel()

	resp, err := u.client.R().SetContext(probeCtx).Get(u.baseURL + "/health")
	ok := err == nil && resp.StatusCode() == http.StatusOK
	u.reachable.Store(ok)
	return ok
}

// Reachable reports whether the last network attempt succeeded.
func (u *Uploader) Reachable() bool {
	return u.reachable.Load()
}

// Delivered reports the number of artifacts accepted by the server.
func (u *Uploader) Delivered() uint64 {
	return u.delivered.Load()
}

// Deliver POSTs the artifact and its metadata as a multipart upload,
// retrying up to maxRetries+1 total attempts with a fixed delay between
// them. Returns true only on a 201 from the server; the caller owns
// fallback persistence when it returns false.
func (u *Uploader) Deliver(ctx context.Context, artifactPath string, meta dto.SegmentMetadata) bool {
	logger := zerolog.Ctx(ctx)

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode segment metadata")
		return false
	}

	attempt := 0
	operation := func() (bool, error) {
		attempt++
		resp, err := u.client.R().
			SetContext(ctx).
			SetFile("file", artifactPath).
			SetFormData(map[string]string{"metadata": string(metaJSON)}).
			Post(u.baseURL + "/upload")
		if err != nil {
			switch {
			case isConnRefused(err):
				u.reachable.Store(false)
				if attempt == 1 {
					logger.Warn().
						Int("attempt", attempt).
						Int("max_attempts", u.maxRetries+1).
						Msg("storage server unreachable")
				}
				return false, err
			case isTimeout(err):
				logger.Warn().
					Int("attempt", attempt).
					Int("max_attempts", u.maxRetries+1).
					Msg("upload timed out")
				return false, err
			default:
				logger.Error().Err(err).Msg("upload error")
				return false, backoff.Permanent(err)
			}
		}

		if resp.StatusCode() == http.StatusCreated {
			u.reachable.Store(true)
			u.delivered.Add(1)
			return true, nil
		}

		logger.Warn().
			Int("status", resp.StatusCode()).
			Str("body", resp.String()).
			Msg("server rejected upload")
		return false, fmt.Errorf("server returned %d", resp.StatusCode())
	}

	ok, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(u.retryBackoff)),
		backoff.WithMaxTries(uint(u.maxRetries+1)),
	)
	if err != nil {
		return false
	}
	return ok
}

func isConnRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

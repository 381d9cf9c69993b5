package server

import (
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"audio-archiver/codec"
	"audio-archiver/config"
	"audio-archiver/constant"
	"audio-archiver/handler"
	"audio-archiver/logging"
	"audio-archiver/service"
)

// RunHTTP starts the storage server: it receives artifact uploads from
// recorders, catalogs them with sidecar metadata, and serves
// list/download/decompress until interrupted.
func RunHTTP(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(logging.NewContext(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	adapter := codec.NewAdapter(cfg.Server.FFmpegPath, cfg.Server.DecodeTimeout)
	if !adapter.Available() {
		zerolog.Ctx(ctx).Warn().Msg("ffmpeg not found, decompress endpoint disabled")
	}

	catalog, err := service.NewCatalog(cfg.Server.StorageDir, adapter)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to initialize storage catalog")
	}

	r := gin.Default()
	maxBody := cfg.Server.MaxUploadMB << 20
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
		c.Next()
	})
	handler.NewHandler(catalog, adapter).Register(r)

	srv := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().
			Str("port", cfg.Server.HttpPort).
			Str("storage_dir", cfg.Server.StorageDir).
			Bool("codec_available", adapter.Available()).
			Msg("start storage server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Msg("server shutdown")
}

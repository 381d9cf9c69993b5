package logging

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"audio-archiver/config"
	"audio-archiver/constant"
)

// NewContext builds the process logger and attaches it to a background
// context, the shape every component expects via zerolog.Ctx. A rotating
// file sink is added alongside stdout when log.file is configured.
func NewContext(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var w io.Writer = os.Stdout
	if cfg.Log.File != "" {
		w = zerolog.MultiLevelWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		})
	}

	logger := zerolog.New(w).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

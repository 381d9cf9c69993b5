package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      App      `yaml:"app"`
	Log      Log      `yaml:"log"`
	Recorder Recorder `yaml:"recorder"`
	Server   Server   `yaml:"server"`
}

type App struct {
	Environment string `yaml:"environment"`
}

type Log struct {
	// File enables a rotating log file next to stdout when non-empty.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type Recorder struct {
	StorageServerURL string        `yaml:"storage_server_url"`
	SegmentSeconds   int           `yaml:"segment_seconds"`
	SampleRate       int           `yaml:"sample_rate"`
	ChunkSamples     int           `yaml:"chunk_samples"`
	Bitrate          string        `yaml:"bitrate"`
	FallbackDir      string        `yaml:"fallback_dir"`
	UploadTimeout    time.Duration `yaml:"upload_timeout"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	EncoderTimeout   time.Duration `yaml:"encoder_timeout"`
	FFmpegPath       string        `yaml:"ffmpeg_path"`
	StopTimeout      time.Duration `yaml:"stop_timeout"`
}

type Server struct {
	HttpPort      string        `yaml:"http_port"`
	StorageDir    string        `yaml:"storage_dir"`
	MaxUploadMB   int64         `yaml:"max_upload_mb"`
	DecodeTimeout time.Duration `yaml:"decode_timeout"`
	FFmpegPath    string        `yaml:"ffmpeg_path"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("app.environment", "develop")
	viper.SetDefault("log.max_size_mb", 50)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("recorder.storage_server_url", "http://localhost:5050")
	viper.SetDefault("recorder.segment_seconds", 30)
	viper.SetDefault("recorder.sample_rate", 16000)
	viper.SetDefault("recorder.chunk_samples", 512)
	viper.SetDefault("recorder.bitrate", "32k")
	viper.SetDefault("recorder.fallback_dir", "audio_storage_fallback")
	viper.SetDefault("recorder.upload_timeout", "15s")
	viper.SetDefault("recorder.probe_timeout", "3s")
	viper.SetDefault("recorder.max_retries", 2)
	viper.SetDefault("recorder.retry_backoff", "1s")
	viper.SetDefault("recorder.encoder_timeout", "30s")
	viper.SetDefault("recorder.stop_timeout", "15s")
	viper.SetDefault("server.http_port", "5050")
	viper.SetDefault("server.storage_dir", "audio_storage")
	viper.SetDefault("server.max_upload_mb", 50)
	viper.SetDefault("server.decode_timeout", "60s")

	// A missing config file is fine, every key has a default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return &Config{
		App: App{
			Environment: viper.GetString("app.environment"),
		},
		Log: Log{
			File:       viper.GetString("log.file"),
			MaxSizeMB:  viper.GetInt("log.max_size_mb"),
			MaxBackups: viper.GetInt("log.max_backups"),
		},
		Recorder: Recorder{
			StorageServerURL: viper.GetString("recorder.storage_server_url"),
			SegmentSeconds:   viper.GetInt("recorder.segment_seconds"),
			SampleRate:       viper.GetInt("recorder.sample_rate"),
			ChunkSamples:     viper.GetInt("recorder.chunk_samples"),
			Bitrate:          viper.GetString("recorder.bitrate"),
			FallbackDir:      viper.GetString("recorder.fallback_dir"),
			UploadTimeout:    viper.GetDuration("recorder.upload_timeout"),
			ProbeTimeout:     viper.GetDuration("recorder.probe_timeout"),
			MaxRetries:       viper.GetInt("recorder.max_retries"),
			RetryBackoff:     viper.GetDuration("recorder.retry_backoff"),
			EncoderTimeout:   viper.GetDuration("recorder.encoder_timeout"),
			FFmpegPath:       viper.GetString("recorder.ffmpeg_path"),
			StopTimeout:      viper.GetDuration("recorder.stop_timeout"),
		},
		Server: Server{
			HttpPort:      viper.GetString("server.http_port"),
			StorageDir:    viper.GetString("server.storage_dir"),
			MaxUploadMB:   viper.GetInt64("server.max_upload_mb"),
			DecodeTimeout: viper.GetDuration("server.decode_timeout"),
			FFmpegPath:    viper.GetString("server.ffmpeg_path"),
		},
	}, nil
}

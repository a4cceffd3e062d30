// Package config loads dlpsit settings the way the teacher CLI loads its
// own: viper reading a YAML file plus environment variables under a fixed
// prefix, exposed as a typed struct instead of ad hoc viper.Get calls.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix specified by the
// configuration surface: PRESIDIO_SIT_MAX_ARCHIVE_DEPTH, etc.
const EnvPrefix = "PRESIDIO_SIT"

// Config holds every resource bound and connection string named in the
// external interfaces section of the specification.
type Config struct {
	DatabaseURL string
	RedisURL    string
	StoragePath string
	ScanRoot    string

	MaxArchiveDepth int
	MaxArchiveFiles int
	MaxArchiveBytes int64
	MaxFileSizeMB   int64

	MaxEmailAttachments int
	MaxEmailBytes       int64

	OCRMaxPages     int
	OCRConcurrency  int
	LogLevel        string
}

// Default returns the settings with the defaults named in the
// specification's external interfaces section.
func Default() Config {
	return Config{
		StoragePath:         "./data",
		MaxArchiveDepth:     3,
		MaxArchiveFiles:     1000,
		MaxArchiveBytes:     500 * 1024 * 1024,
		MaxFileSizeMB:       250,
		MaxEmailAttachments: 50,
		MaxEmailBytes:       50 * 1024 * 1024,
		OCRMaxPages:         20,
		OCRConcurrency:      2,
		LogLevel:            "INFO",
	}
}

// MaxFileSizeBytes is max_file_size_mb converted to bytes.
func (c Config) MaxFileSizeBytes() int64 { return c.MaxFileSizeMB * 1024 * 1024 }

// Load reads config from cfgFile (if non-empty), ./config, and $HOME, then
// layers PRESIDIO_SIT_-prefixed environment variables on top, following the
// teacher's cmd/root.go initConfig structure.
func Load(cfgFile string) (Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath("./config")
		v.SetConfigType("yaml")
		v.SetConfigName("dlpsit")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	bindDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg.DatabaseURL = v.GetString("database_url")
	cfg.RedisURL = v.GetString("redis_url")
	cfg.StoragePath = v.GetString("storage_path")
	cfg.ScanRoot = v.GetString("scan_root")
	cfg.MaxArchiveDepth = v.GetInt("max_archive_depth")
	cfg.MaxArchiveFiles = v.GetInt("max_archive_files")
	cfg.MaxArchiveBytes = v.GetInt64("max_archive_bytes")
	cfg.MaxFileSizeMB = v.GetInt64("max_file_size_mb")
	cfg.MaxEmailAttachments = v.GetInt("max_email_attachments")
	cfg.MaxEmailBytes = v.GetInt64("max_email_bytes")
	cfg.OCRMaxPages = v.GetInt("ocr_max_pages")
	cfg.OCRConcurrency = v.GetInt("ocr_concurrency")
	cfg.LogLevel = v.GetString("log_level")

	return cfg, nil
}

func bindDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("storage_path", cfg.StoragePath)
	v.SetDefault("max_archive_depth", cfg.MaxArchiveDepth)
	v.SetDefault("max_archive_files", cfg.MaxArchiveFiles)
	v.SetDefault("max_archive_bytes", cfg.MaxArchiveBytes)
	v.SetDefault("max_file_size_mb", cfg.MaxFileSizeMB)
	v.SetDefault("max_email_attachments", cfg.MaxEmailAttachments)
	v.SetDefault("max_email_bytes", cfg.MaxEmailBytes)
	v.SetDefault("ocr_max_pages", cfg.OCRMaxPages)
	v.SetDefault("ocr_concurrency", cfg.OCRConcurrency)
	v.SetDefault("log_level", cfg.LogLevel)
}

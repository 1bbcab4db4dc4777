package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kerimovok/go-pkg-utils/config"
	"gopkg.in/yaml.v3"
)

// ImageConfig holds image optimization settings.
type ImageConfig struct {
	Quality       int  `yaml:"quality"`
	MaxWidth      int  `yaml:"max_width"`
	MaxHeight     int  `yaml:"max_height"`
	PreserveAlpha bool `yaml:"preserve_alpha"`
}

// WebImageConfig holds the stricter preset used by the forced
// web-optimization upload path.
type WebImageConfig struct {
	Quality   int `yaml:"quality"`
	MaxWidth  int `yaml:"max_width"`
	MaxHeight int `yaml:"max_height"`
}

// VideoConfig holds video transcoding settings.
type VideoConfig struct {
	MaxWidth          int    `yaml:"max_width"`
	MaxHeight         int    `yaml:"max_height"`
	Quality           string `yaml:"quality"`
	FFmpegPath        string `yaml:"ffmpeg_path"`
	FFprobePath       string `yaml:"ffprobe_path"`
	ProbeTimeoutSec   int    `yaml:"probe_timeout_seconds"`
	EncodeTimeoutSec  int    `yaml:"encode_timeout_seconds"`
	VersionTimeoutSec int    `yaml:"version_timeout_seconds"`
}

// OptimizationConfig groups every optimization tunable.
type OptimizationConfig struct {
	Image ImageConfig    `yaml:"image"`
	Web   WebImageConfig `yaml:"web"`
	Video VideoConfig    `yaml:"video"`
}

// MainConfig holds the root configuration.
type MainConfig struct {
	Optimization OptimizationConfig `yaml:"optimization"`
}

var Config MainConfig

// defaultConfig mirrors the historical defaults of the optimization
// pipeline: 85/1920x1080 for plain image optimization, 80/1200x800 for the
// web preset, 720p medium-CRF for video.
func defaultConfig() MainConfig {
	return MainConfig{
		Optimization: OptimizationConfig{
			Image: ImageConfig{
				Quality:   85,
				MaxWidth:  1920,
				MaxHeight: 1080,
			},
			Web: WebImageConfig{
				Quality:   80,
				MaxWidth:  1200,
				MaxHeight: 800,
			},
			Video: VideoConfig{
				MaxWidth:          1280,
				MaxHeight:         720,
				Quality:           "medium",
				FFmpegPath:        "ffmpeg",
				FFprobePath:       "ffprobe",
				ProbeTimeoutSec:   10,
				EncodeTimeoutSec:  300,
				VersionTimeoutSec: 5,
			},
		},
	}
}

// LoadConfig loads .env and the optimization config file. The YAML file is
// tuning only; when it is absent the built-in defaults apply.
func LoadConfig() error {
	if err := godotenv.Load(); err != nil {
		if config.GetEnv("GO_ENV") != "production" {
			log.Println("Warning: Failed to load .env file")
		}
	}

	cfg := defaultConfig()

	data, err := os.ReadFile("config/storage.yaml")
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		log.Println("config/storage.yaml not found, using default optimization settings")
		Config = cfg
		return nil
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	Config = cfg
	log.Println("Optimization configuration loaded from config/storage.yaml")
	return nil
}

// GetConfig returns the current configuration.
func GetConfig() MainConfig {
	return Config
}

// UploadDir returns the storage root directory.
func UploadDir() string {
	if dir := config.GetEnv("UPLOAD_DIR"); dir != "" {
		return dir
	}
	return "uploads"
}

// APIKey returns the shared secret uploads and deletes are authenticated
// against.
func APIKey() string {
	return config.GetEnv("API_KEY")
}

// MaxUploadBytes returns the configured upload size cap in bytes.
func MaxUploadBytes() int64 {
	mb, err := strconv.Atoi(config.GetEnv("MAX_FILE_SIZE_MB"))
	if err != nil || mb <= 0 {
		mb = 10
	}
	return int64(mb) * 1024 * 1024
}

// ProbeTimeout returns the ffprobe invocation timeout.
func (v VideoConfig) ProbeTimeout() time.Duration {
	return secondsOrDefault(v.ProbeTimeoutSec, 10*time.Second)
}

// EncodeTimeout returns the ffmpeg transcode timeout.
func (v VideoConfig) EncodeTimeout() time.Duration {
	return secondsOrDefault(v.EncodeTimeoutSec, 300*time.Second)
}

// VersionTimeout returns the ffmpeg availability probe timeout.
func (v VideoConfig) VersionTimeout() time.Duration {
	return secondsOrDefault(v.VersionTimeoutSec, 5*time.Second)
}

func secondsOrDefault(sec int, fallback time.Duration) time.Duration {
	if sec <= 0 {
		return fallback
	}
	return time.Duration(sec) * time.Second
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/exiftool"
)

// TokenEnv fills an empty bot token.
const TokenEnv = "EXIFBOT_TOKEN"

const (
	defaultHTTPAddr    = ":8080"
	defaultMaxUploadMB = 20
	defaultBotWorkers  = 1
	stateDirName       = ".exifbot"
)

type Config struct {
	BotToken        string        `yaml:"bot_token" json:"bot_token"`
	ExifToolPath    string        `yaml:"exiftool_path" json:"exiftool_path"`
	ExifToolMode    exiftool.Mode `yaml:"exiftool_mode" json:"exiftool_mode"`
	ExifToolTimeout time.Duration `yaml:"exiftool_timeout" json:"exiftool_timeout"`
	DisableExifTool bool          `yaml:"disable_exiftool" json:"disable_exiftool"`
	TempDir         string        `yaml:"temp_dir" json:"temp_dir"`
	HTTPAddr        string        `yaml:"http_addr" json:"http_addr"`
	LogFile         string        `yaml:"log_file" json:"log_file"`
	HistoryFile     string        `yaml:"history_file" json:"history_file"`
	LogJSON         bool          `yaml:"log_json" json:"log_json"`
	Debug           bool          `yaml:"debug" json:"debug"`
	ImageExtensions []string      `yaml:"image_extensions" json:"image_extensions"`
	VideoExtensions []string      `yaml:"video_extensions" json:"video_extensions"`
	MaxUploadMB     int64         `yaml:"max_upload_mb" json:"max_upload_mb"`
	BotWorkers      int           `yaml:"bot_workers" json:"bot_workers"`
}

func stateDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, stateDirName)
}

func defaultTempDir() string {
	return filepath.Join(os.TempDir(), "exifbot")
}

func DefaultConfig() *Config {
	return &Config{
		ExifToolPath:    exiftool.DefaultBinary,
		ExifToolMode:    exiftool.ModeExec,
		ExifToolTimeout: exiftool.DefaultTimeout,
		TempDir:         defaultTempDir(),
		HTTPAddr:        defaultHTTPAddr,
		LogFile:         filepath.Join(stateDir(), "exifbot.log"),
		HistoryFile:     filepath.Join(stateDir(), "history.json"),
		ImageExtensions: []string{
			"jpg", "jpeg", "png", "heic", "heif", "tif", "tiff", "webp",
			"dng", "cr2", "cr3", "nef", "arw", "orf", "rw2",
		},
		VideoExtensions: []string{
			"mp4", "mov", "m4v", "3gp", "3g2", "m4a", "mp3", "flac", "ogg",
		},
		MaxUploadMB: defaultMaxUploadMB,
		BotWorkers:  defaultBotWorkers,
	}
}

func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv fills values that were left empty from the environment.
func (c *Config) ApplyEnv() {
	if c.BotToken == "" {
		c.BotToken = strings.TrimSpace(os.Getenv(TokenEnv))
	}
}

func (c *Config) Validate() error {
	switch c.ExifToolMode {
	case "":
		c.ExifToolMode = exiftool.ModeExec
	case exiftool.ModeExec, exiftool.ModeStayOpen:
	default:
		return &ValidationError{Field: "exiftool_mode", Message: "must be exec or stay_open"}
	}

	if c.ExifToolTimeout <= 0 {
		c.ExifToolTimeout = exiftool.DefaultTimeout
	}
	if c.ExifToolPath == "" {
		c.ExifToolPath = exiftool.DefaultBinary
	}
	if c.TempDir == "" {
		c.TempDir = defaultTempDir()
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = defaultHTTPAddr
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(stateDir(), "exifbot.log")
	}
	if c.HistoryFile == "" {
		c.HistoryFile = filepath.Join(stateDir(), "history.json")
	}
	if c.MaxUploadMB < 1 {
		c.MaxUploadMB = defaultMaxUploadMB
	}
	if c.BotWorkers < 1 {
		c.BotWorkers = defaultBotWorkers
	}

	c.ImageExtensions = normalizeExtensions(c.ImageExtensions)
	c.VideoExtensions = normalizeExtensions(c.VideoExtensions)
	for _, ext := range c.ImageExtensions {
		for _, v := range c.VideoExtensions {
			if ext == v {
				return &ValidationError{Field: "video_extensions", Message: "extension " + ext + " is also listed as an image extension"}
			}
		}
	}

	return nil
}

// RequireBotToken reports a missing token for the Telegram transport.
func (c *Config) RequireBotToken() error {
	if strings.TrimSpace(c.BotToken) == "" {
		return &ValidationError{Field: "bot_token", Message: "bot token is required (set bot_token or " + TokenEnv + ")"}
	}
	return nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Redacted returns a copy safe to expose over the API.
func (c *Config) Redacted() Config {
	out := *c
	if out.BotToken != "" {
		out.BotToken = "***"
	}
	return out
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

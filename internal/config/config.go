package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel           = "gemini-2.5-flash"
	DefaultAddr            = "127.0.0.1:8080"
	DefaultAllowedOrigin   = "http://localhost:5173"
	defaultSampleRate      = 16000
	defaultChannels        = 1
	defaultChunkSize       = 4096
	defaultAnalysisTimeout = 90
)

// Config stores runtime configuration for the tutor.
type Config struct {
	Gemini  GeminiConfig  `yaml:"gemini"`
	Audio   AudioConfig   `yaml:"audio"`
	Session SessionConfig `yaml:"session"`
	Server  ServerConfig  `yaml:"server"`
	Notify  NotifyConfig  `yaml:"notify"`

	// File is the YAML file that was read, if any.
	File string `yaml:"-"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"`
}

type AudioConfig struct {
	RecorderCommand string `yaml:"recorderCommand"`
	InputFormat     string `yaml:"inputFormat"`
	InputDevice     string `yaml:"inputDevice"`
	SampleRate      int    `yaml:"sampleRate"`
	Channels        int    `yaml:"channels"`
	Container       string `yaml:"container"`
	ChunkSize       int    `yaml:"chunkSize"`
}

type SessionConfig struct {
	MinRecordingSeconds    int `yaml:"minRecordingSeconds"`
	AnalysisTimeoutSeconds int `yaml:"analysisTimeoutSeconds"`
}

func (s SessionConfig) AnalysisTimeout() time.Duration {
	return time.Duration(s.AnalysisTimeoutSeconds) * time.Second
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type NotifyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Gemini: GeminiConfig{Model: DefaultModel},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			InputFormat:     "pulse",
			InputDevice:     "default",
			SampleRate:      defaultSampleRate,
			Channels:        defaultChannels,
			Container:       "ogg",
			ChunkSize:       defaultChunkSize,
		},
		Session: SessionConfig{AnalysisTimeoutSeconds: defaultAnalysisTimeout},
		Server: ServerConfig{
			Addr:           DefaultAddr,
			AllowedOrigins: []string{DefaultAllowedOrigin},
		},
		Notify: NotifyConfig{Enabled: true},
	}
}

// Load resolves configuration from defaults, the optional YAML file and
// environment variables, in that order. .env files are read first and never
// override variables that are already set.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	configDir := filepath.Join(home, ".config", "dele-tutor")

	if dotEnvEnabled() {
		LoadDotEnv(".env.local", ".env", filepath.Join(configDir, ".env"))
	}

	cfg := Defaults()
	path := envOrDefault("DELE_CONFIG_FILE", filepath.Join(configDir, "config.yaml"))
	if err := loadFile(path, &cfg); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)
	normalize(&cfg)
	return cfg, nil
}

// LoadDotEnv loads each existing file, skipping missing ones.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			log.Printf("[config] failed to load %s: %v", p, err)
			continue
		}
		log.Printf("[config] loaded env from %s", p)
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal yaml %s: %w", path, err)
	}
	cfg.File = path
	return nil
}

func applyEnv(cfg *Config) {
	if key := firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"), os.Getenv("API_KEY")); key != "" {
		cfg.Gemini.APIKey = key
	}
	cfg.Gemini.Model = envOrDefault("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Gemini.BaseURL = envOrDefault("GEMINI_API_BASE", cfg.Gemini.BaseURL)

	cfg.Audio.RecorderCommand = envOrDefault("DELE_FFMPEG_COMMAND", cfg.Audio.RecorderCommand)
	cfg.Audio.InputFormat = envOrDefault("DELE_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = envOrDefault("DELE_AUDIO_INPUT_DEVICE", cfg.Audio.InputDevice)
	cfg.Audio.SampleRate = envOrDefaultInt("DELE_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Channels = envOrDefaultInt("DELE_CHANNELS", cfg.Audio.Channels)
	cfg.Audio.Container = envOrDefault("DELE_AUDIO_CONTAINER", cfg.Audio.Container)
	cfg.Audio.ChunkSize = envOrDefaultInt("DELE_AUDIO_CHUNK_SIZE", cfg.Audio.ChunkSize)

	cfg.Session.MinRecordingSeconds = envOrDefaultInt("DELE_MIN_RECORDING_SECONDS", cfg.Session.MinRecordingSeconds)
	cfg.Session.AnalysisTimeoutSeconds = envOrDefaultInt("DELE_ANALYSIS_TIMEOUT_SECONDS", cfg.Session.AnalysisTimeoutSeconds)

	cfg.Server.Addr = envOrDefault("DELE_HTTP_ADDR", cfg.Server.Addr)
	if origins := splitList(os.Getenv("DELE_ALLOWED_ORIGINS")); len(origins) > 0 {
		cfg.Server.AllowedOrigins = origins
	}

	cfg.Notify.Enabled = envOrDefaultBool("DELE_NOTIFICATIONS", cfg.Notify.Enabled)
}

func normalize(cfg *Config) {
	cfg.Gemini.APIKey = strings.TrimSpace(cfg.Gemini.APIKey)
	if strings.TrimSpace(cfg.Gemini.Model) == "" {
		cfg.Gemini.Model = DefaultModel
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = defaultSampleRate
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = defaultChannels
	}
	cfg.Audio.Container = strings.ToLower(strings.TrimSpace(cfg.Audio.Container))
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = defaultChunkSize
	}
	if cfg.Session.MinRecordingSeconds < 0 {
		cfg.Session.MinRecordingSeconds = 0
	}
	if cfg.Session.AnalysisTimeoutSeconds <= 0 {
		cfg.Session.AnalysisTimeoutSeconds = defaultAnalysisTimeout
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{DefaultAllowedOrigin}
	}
}

func dotEnvEnabled() bool {
	return envOrDefaultBool("DELE_DOTENV", true)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

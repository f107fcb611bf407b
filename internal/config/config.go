package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/koscakluka/vocalis/core/audio"
	ttsdeepgram "github.com/koscakluka/vocalis/core/texttospeech/deepgram"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "VOCALIS_CONFIG"

// Config represents the complete Vocalis configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Deepgram   DeepgramConfig   `yaml:"deepgram"`
	LLM        LLMConfig        `yaml:"llm"`
	Vision     VisionConfig     `yaml:"vision"`
	Landmarks  LandmarksConfig  `yaml:"landmarks"`
	Documents  DocumentsConfig  `yaml:"documents"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	Assessment AssessmentConfig `yaml:"assessment"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	MaxMessageBytes int64    `yaml:"max_message_bytes"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig selects the trace exporter
type TelemetryConfig struct {
	// Exporter is one of "none", "stdout" or "otlp"
	Exporter    string `yaml:"exporter"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DeepgramConfig holds speech recognition and synthesis configuration
type DeepgramConfig struct {
	APIKey  string            `yaml:"api_key"`
	BaseURL string            `yaml:"base_url"`
	STT     DeepgramSTTConfig `yaml:"stt"`
	TTS     DeepgramTTSConfig `yaml:"tts"`
}

type DeepgramSTTConfig struct {
	Model    string `yaml:"model"`
	Language string `yaml:"language"`

	// Encoding and SampleRate describe raw client audio. Leave Encoding
	// empty for containerized audio (webm, wav).
	Encoding   string `yaml:"encoding"`
	SampleRate int    `yaml:"sample_rate"`
}

type DeepgramTTSConfig struct {
	Voice      string `yaml:"voice"`
	Encoding   string `yaml:"encoding"`
	SampleRate int    `yaml:"sample_rate"`
}

// LLMConfig points at an OpenAI compatible chat completions API
type LLMConfig struct {
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	Model            string `yaml:"model"`
	SystemPrompt     string `yaml:"system_prompt"`
	StructuredOutput bool   `yaml:"structured_output"`
}

// VisionConfig points at an OpenAI compatible multimodal model
type VisionConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Prompt  string `yaml:"prompt"`
}

// LandmarksConfig holds the face landmark detector location
type LandmarksConfig struct {
	DetectorURL string `yaml:"detector_url"`
}

// DocumentsConfig holds the text extraction tools
type DocumentsConfig struct {
	PDFToTextPath  string `yaml:"pdftotext_path"`
	TesseractPath  string `yaml:"tesseract_path"`
	PDFToPPMPath   string `yaml:"pdftoppm_path"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// TimeoutsConfig bounds every collaborator call
type TimeoutsConfig struct {
	STT       time.Duration `yaml:"-"`
	LLM       time.Duration `yaml:"-"`
	TTS       time.Duration `yaml:"-"`
	Vision    time.Duration `yaml:"-"`
	Documents time.Duration `yaml:"-"`
	Landmarks time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	STTRaw       string `yaml:"stt"`
	LLMRaw       string `yaml:"llm"`
	TTSRaw       string `yaml:"tts"`
	VisionRaw    string `yaml:"vision"`
	DocumentsRaw string `yaml:"documents"`
	LandmarksRaw string `yaml:"landmarks"`
}

// AssessmentConfig holds the assessment dataset location. An empty path uses
// the built-in dataset.
type AssessmentConfig struct {
	DatasetPath string `yaml:"dataset_path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			AllowedOrigins:  []string{"*"},
			MaxMessageBytes: 32 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Exporter:    "none",
			ServiceName: "vocalis",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Deepgram: DeepgramConfig{
			BaseURL: "wss://api.deepgram.com",
			STT: DeepgramSTTConfig{
				Model:    "nova-3",
				Language: "en-US",
			},
			TTS: DeepgramTTSConfig{
				Voice:      string(ttsdeepgram.VoiceAsteria),
				Encoding:   "linear16",
				SampleRate: ttsdeepgram.DefaultSampleRate,
			},
		},
		LLM: LLMConfig{
			BaseURL: "http://127.0.0.1:11434/v1",
			Model:   "llama3",
		},
		Vision: VisionConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Documents: DocumentsConfig{
			MaxUploadBytes: 10 << 20,
		},
		Timeouts: TimeoutsConfig{
			STTRaw:       "30s",
			LLMRaw:       "60s",
			TTSRaw:       "30s",
			VisionRaw:    "60s",
			DocumentsRaw: "60s",
			LandmarksRaw: "5s",
		},
	}
}

// Resolve loads the configuration from path, falling back to the file named
// by VOCALIS_CONFIG and then to the defaults.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		return Load(path)
	}

	cfg := Default()
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration on top of the defaults.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func finish(cfg *Config) error {
	applyEnvFallbacks(cfg)

	if err := parseDurations(cfg); err != nil {
		return fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment. Missing files are skipped and variables that are already set
// win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// applyEnvFallbacks fills credentials from the conventional variables when
// the file leaves them empty.
func applyEnvFallbacks(cfg *Config) {
	if cfg.Deepgram.APIKey == "" {
		cfg.Deepgram.APIKey = os.Getenv("DEEPGRAM_API_KEY")
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	}
	if cfg.Vision.APIKey == "" {
		cfg.Vision.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

var (
	logLevels    = []string{"debug", "info", "warn", "error"}
	logFormats   = []string{"text", "json"}
	traceExports = []string{"none", "stdout", "otlp"}
)

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.MaxMessageBytes <= 0 {
		return fmt.Errorf("server.max_message_bytes must be positive")
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("logging.level must be one of %s", strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Logging.Format)) {
		return fmt.Errorf("logging.format must be one of %s", strings.Join(logFormats, ", "))
	}

	if !slices.Contains(traceExports, c.Telemetry.Exporter) {
		return fmt.Errorf("telemetry.exporter must be one of %s", strings.Join(traceExports, ", "))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	if c.Deepgram.STT.Encoding != "" {
		if _, err := audio.ParseEncodingInfo(c.Deepgram.STT.Encoding, c.Deepgram.STT.SampleRate); err != nil {
			return fmt.Errorf("deepgram.stt: %w", err)
		}
	}
	if _, err := audio.ParseEncodingInfo(c.Deepgram.TTS.Encoding, c.Deepgram.TTS.SampleRate); err != nil {
		return fmt.Errorf("deepgram.tts: %w", err)
	}
	if _, ok := ttsdeepgram.ParseVoice(c.Deepgram.TTS.Voice); !ok {
		return fmt.Errorf("deepgram.tts.voice %q is not a known voice", c.Deepgram.TTS.Voice)
	}

	if c.LLM.BaseURL == "" || c.LLM.Model == "" {
		return fmt.Errorf("llm.base_url and llm.model are required")
	}

	if c.Documents.MaxUploadBytes <= 0 {
		return fmt.Errorf("documents.max_upload_bytes must be positive")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"stt", cfg.Timeouts.STTRaw, &cfg.Timeouts.STT},
		{"llm", cfg.Timeouts.LLMRaw, &cfg.Timeouts.LLM},
		{"tts", cfg.Timeouts.TTSRaw, &cfg.Timeouts.TTS},
		{"vision", cfg.Timeouts.VisionRaw, &cfg.Timeouts.Vision},
		{"documents", cfg.Timeouts.DocumentsRaw, &cfg.Timeouts.Documents},
		{"landmarks", cfg.Timeouts.LandmarksRaw, &cfg.Timeouts.Landmarks},
	}

	for _, field := range fields {
		if field.raw == "" {
			continue
		}
		d, err := time.ParseDuration(field.raw)
		if err != nil {
			return fmt.Errorf("parsing timeouts.%s %q: %w", field.name, field.raw, err)
		}
		if d <= 0 {
			return fmt.Errorf("timeouts.%s must be positive, got %q", field.name, field.raw)
		}
		*field.dst = d
	}
	return nil
}

// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings. It can be loaded from a JSON file, from the environment,
// or both; zero values mean "use the default".
type Config struct {
	// LLM
	APIKey    string `json:"api_key,omitempty"`
	ModelTier string `json:"model_tier,omitempty" validate:"omitempty,oneof=lite standard advanced"`

	// Storage
	DatabaseURL string `json:"database_url,omitempty"`

	// Pipeline
	Workers          int      `json:"workers,omitempty" validate:"gte=0,lte=256"`
	DocumentTimeout  Duration `json:"document_timeout,omitempty" validate:"gte=0"`
	MaxDocumentBytes int64    `json:"max_document_bytes,omitempty" validate:"gte=0"`
	MaxEntityChars   int      `json:"max_entity_chars,omitempty"` // negative disables truncation
	SectionCapture   string   `json:"section_capture,omitempty" validate:"omitempty,oneof=line section"`
	BatchPolicy      string   `json:"batch_policy,omitempty" validate:"omitempty,oneof=isolate abort"`
	SniffContent     *bool    `json:"sniff_content,omitempty"`
	// ValidateOutput checks rendered JSON against the bundled schemas before it is written
	ValidateOutput *bool `json:"validate_output,omitempty"`

	// Server
	Port           int   `json:"port,omitempty" validate:"gte=0,lte=65535"`
	MaxUploadBytes int64 `json:"max_upload_bytes,omitempty" validate:"gte=0"`

	// Logging
	LogLevel  string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `json:"log_format,omitempty" validate:"omitempty,oneof=text json"`
	Verbose   bool   `json:"verbose,omitempty"`
}

// Defaults used when neither file nor environment sets a value.
const (
	DefaultPort           = 8080
	DefaultMaxUploadBytes = 50 << 20
	DefaultSectionCapture = "line"
	DefaultBatchPolicy    = "isolate"
	DefaultModelTier      = "standard"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Defaults returns the built-in configuration. Pipeline knobs left at zero take the
// defaults of the packages they configure.
func Defaults() Config {
	sniff, validateOutput := true, true
	return Config{
		ModelTier:      DefaultModelTier,
		SectionCapture: DefaultSectionCapture,
		BatchPolicy:    DefaultBatchPolicy,
		SniffContent:   &sniff,
		ValidateOutput: &validateOutput,
		Port:           DefaultPort,
		MaxUploadBytes: DefaultMaxUploadBytes,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
	}
}

// Sniff reports whether content sniffing is enabled; unset means enabled.
func (c *Config) Sniff() bool {
	return c.SniffContent == nil || *c.SniffContent
}

// ValidatesOutput reports whether output schema checks are enabled; unset means enabled.
func (c *Config) ValidatesOutput() bool {
	return c.ValidateOutput == nil || *c.ValidateOutput
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads configuration from environment variables. Unset variables stay zero.
func FromEnv() (*Config, error) {
	var (
		cfg  Config
		errs []error
	)

	cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	cfg.ModelTier = os.Getenv("LLM_MODEL_TIER")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.SectionCapture = os.Getenv("SECTION_CAPTURE")
	cfg.BatchPolicy = os.Getenv("BATCH_POLICY")
	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	cfg.LogFormat = strings.ToLower(os.Getenv("LOG_FORMAT"))

	envInt(&errs, "PARSER_WORKERS", &cfg.Workers)
	envInt(&errs, "MAX_ENTITY_CHARS", &cfg.MaxEntityChars)
	envInt(&errs, "PORT", &cfg.Port)
	envInt64(&errs, "MAX_DOCUMENT_BYTES", &cfg.MaxDocumentBytes)
	envInt64(&errs, "MAX_UPLOAD_BYTES", &cfg.MaxUploadBytes)

	if v := os.Getenv("DOCUMENT_TIMEOUT"); v != "" {
		d, err := ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid DOCUMENT_TIMEOUT: %w", err))
		}
		cfg.DocumentTimeout = Duration(d)
	}
	cfg.SniffContent = envBool(&errs, "SNIFF_CONTENT")
	cfg.ValidateOutput = envBool(&errs, "VALIDATE_OUTPUT")

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envBool returns nil when key is unset.
func envBool(errs *[]error, key string) *bool {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return nil
	}
	return &b
}

func envInt(errs *[]error, key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return
	}
	*dst = n
}

func envInt64(errs *[]error, key string, dst *int64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return
	}
	*dst = n
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config error: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("'%s' failed '%s' (got %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
// This is used to layer flags over environment over file over built-ins.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.ModelTier == "" {
		result.ModelTier = defaults.ModelTier
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.SectionCapture == "" {
		result.SectionCapture = defaults.SectionCapture
	}
	if result.BatchPolicy == "" {
		result.BatchPolicy = defaults.BatchPolicy
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}
	if result.DocumentTimeout == 0 {
		result.DocumentTimeout = defaults.DocumentTimeout
	}
	if result.MaxDocumentBytes == 0 {
		result.MaxDocumentBytes = defaults.MaxDocumentBytes
	}
	if result.MaxEntityChars == 0 {
		result.MaxEntityChars = defaults.MaxEntityChars
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.MaxUploadBytes == 0 {
		result.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if result.SniffContent == nil {
		result.SniffContent = defaults.SniffContent
	}
	if result.ValidateOutput == nil {
		result.ValidateOutput = defaults.ValidateOutput
	}

	// Bool fields: true wins
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// Duration is a time.Duration that reads "45s"-style strings or plain seconds from JSON.
type Duration time.Duration

// ParseDuration accepts a Go duration string or a whole number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*d = Duration(time.Duration(val * float64(time.Second)))
	case string:
		parsed, err := ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

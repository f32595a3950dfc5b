package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Source    SourceConfig    `yaml:"source" envconfig:"SOURCE"`
	Poller    PollerConfig    `yaml:"poller" envconfig:"POLLER"`
	Display   DisplayConfig   `yaml:"display" envconfig:"DISPLAY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" split_words:"true" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" split_words:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true"`
	RPS     float64 `yaml:"rps" split_words:"true" validate:"gte=0"`
	Burst   int     `yaml:"burst" split_words:"true" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true" validate:"omitempty,oneof=debug info warn warning error"`
	Format   string `yaml:"format" split_words:"true" validate:"omitempty,oneof=json text"`
	Output   string `yaml:"output" split_words:"true" validate:"omitempty,oneof=console file both"`
	FilePath string `yaml:"file_path" split_words:"true"`
}

// TelemetryConfig controls tracing and metrics
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" split_words:"true"`
	TraceExporter  string  `yaml:"trace_exporter" split_words:"true" validate:"omitempty,oneof=stdout none"`
	MetricsEnabled bool    `yaml:"metrics_enabled" split_words:"true"`
	SampleRatio    float64 `yaml:"sample_ratio" split_words:"true" validate:"gte=0,lte=1"`
}

// SourceConfig describes where the KPI grid comes from
type SourceConfig struct {
	Kind                  string        `yaml:"kind" split_words:"true" validate:"omitempty,oneof=auto sheets csv xlsx endpoint"`
	ServiceAccountKey     string        `yaml:"service_account_key" envconfig:"SERVICE_ACCOUNT_KEY"`
	ServiceAccountKeyFile string        `yaml:"service_account_key_file" envconfig:"SERVICE_ACCOUNT_KEY_FILE"`
	SpreadsheetID         string        `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	SheetRange            string        `yaml:"sheet_range" envconfig:"SHEET_RANGE"`
	EndpointURL           string        `yaml:"endpoint_url" envconfig:"ENDPOINT_URL" validate:"omitempty,url"`
	CSVURL                string        `yaml:"csv_url" envconfig:"CSV_URL" validate:"omitempty,url"`
	XLSXURL               string        `yaml:"xlsx_url" envconfig:"XLSX_URL"`
	XLSXSheet             string        `yaml:"xlsx_sheet" envconfig:"XLSX_SHEET"`
	FetchTimeout          time.Duration `yaml:"fetch_timeout" split_words:"true" validate:"gt=0"`
	LabelColumn           int           `yaml:"label_column" split_words:"true" validate:"gte=0"`
	ValueStart            int           `yaml:"value_start" split_words:"true" validate:"gte=0"`
}

// PollerConfig controls the refresh loop
type PollerConfig struct {
	Enabled   bool          `yaml:"enabled" split_words:"true"`
	Interval  time.Duration `yaml:"interval" split_words:"true" validate:"gt=0"`
	Highlight time.Duration `yaml:"highlight" split_words:"true" validate:"gte=0"`
}

// DisplayConfig locates the KPI table the presenter fills
type DisplayConfig struct {
	TemplatePath string `yaml:"template_path" split_words:"true"`
	Selector     string `yaml:"selector" split_words:"true" validate:"required"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" split_words:"true" validate:"gt=0"`
	WriteBufferSize int           `yaml:"write_buffer_size" split_words:"true" validate:"gt=0"`
	PingPeriod      time.Duration `yaml:"ping_period" split_words:"true" validate:"gt=0"`
	PongWait        time.Duration `yaml:"pong_wait" split_words:"true" validate:"gtfield=PingPeriod"`
}

// Load builds the configuration from defaults, the optional config file and
// the environment.
func Load() (*Config, error) {
	// A missing .env file is the normal case in production.
	_ = godotenv.Load()

	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file path. An empty path skips the file layer.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file keep their value
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// normalize fills in values that may legitimately be blanked out by a file or env
func (c *Config) normalize() {
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/kpiboard.log"
	}
	if c.Source.Kind == "" {
		c.Source.Kind = SourceAuto
	}
	if c.Source.SheetRange == "" {
		c.Source.SheetRange = DefaultSheetRange
	}
	if c.Display.Selector == "" {
		c.Display.Selector = DefaultSelector
	}
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
}

// Validate checks struct constraints
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// ServiceAccountJSON returns the credential payload, reading the key file when
// no inline key is set. Empty means unset.
func (s SourceConfig) ServiceAccountJSON() (string, error) {
	if strings.TrimSpace(s.ServiceAccountKey) != "" {
		return s.ServiceAccountKey, nil
	}
	if s.ServiceAccountKeyFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(s.ServiceAccountKeyFile)
	if err != nil {
		return "", fmt.Errorf("read service account key file: %w", err)
	}
	return string(data), nil
}

// HasSheets reports whether the authenticated spreadsheet read is configured
func (s SourceConfig) HasSheets() bool {
	return s.SpreadsheetID != "" && (s.ServiceAccountKey != "" || s.ServiceAccountKeyFile != "")
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG_FILE"); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   100,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/kpiboard.log",
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			TraceExporter:  "none",
			MetricsEnabled: true,
			SampleRatio:    1.0,
		},
		Source: SourceConfig{
			Kind:         SourceAuto,
			SheetRange:   DefaultSheetRange,
			FetchTimeout: DefaultFetchTimeout,
			LabelColumn:  1,
			ValueStart:   2,
		},
		Poller: PollerConfig{
			Enabled:   true,
			Interval:  DefaultPollInterval,
			Highlight: DefaultHighlight,
		},
		Display: DisplayConfig{
			Selector: DefaultSelector,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}

package config

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"housing-map/internal/errors"
)

type Config struct {
	Input    InputConfig    `yaml:"input"`
	Chart    ChartConfig    `yaml:"chart"`
	Output   OutputConfig   `yaml:"output"`
	Server   ServerConfig   `yaml:"server"`
	Logger   LoggerConfig   `yaml:"logger"`
	Security SecurityConfig `yaml:"security"`
}

type InputConfig struct {
	File            string   `yaml:"file"`
	RegionColumn    string   `yaml:"region_column"`
	MetadataColumns int      `yaml:"metadata_columns"`
	PeriodColumns   []string `yaml:"period_columns"`
	// PeriodOrder is "position" (rightmost column is latest) or "date" (headers parsed as dates).
	PeriodOrder string `yaml:"period_order"`
}

type ChartConfig struct {
	Width              int           `yaml:"width"`
	Height             int           `yaml:"height"`
	Scope              string        `yaml:"scope"`
	LocationMode       string        `yaml:"location_mode"`
	ColorScale         string        `yaml:"color_scale"`
	LakeColor          string        `yaml:"lake_color"`
	MeasureLabel       string        `yaml:"measure_label"`
	FrameDuration      time.Duration `yaml:"frame_duration"`
	TransitionDuration time.Duration `yaml:"transition_duration"`
}

type OutputConfig struct {
	Dir   string `yaml:"dir"`
	XLSX  bool   `yaml:"xlsx"`
	PNG   bool   `yaml:"png"`
	Serve bool   `yaml:"serve"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type SecurityConfig struct {
	EnableRateLimit bool `yaml:"rate_limit_enabled"`
	RateLimitRPS    int  `yaml:"rate_limit_rps"`
	RateLimitBurst  int  `yaml:"rate_limit_burst"`
}

const (
	PeriodOrderPosition = "position"
	PeriodOrderDate     = "date"
)

func Default() *Config {
	return &Config{
		Input: InputConfig{
			RegionColumn:    "StateName",
			MetadataColumns: 5,
			PeriodOrder:     PeriodOrderPosition,
		},
		Chart: ChartConfig{
			Width:              1000,
			Height:             600,
			Scope:              "usa",
			LocationMode:       "USA-states",
			ColorScale:         "Viridis",
			LakeColor:          "rgb(255, 255, 255)",
			MeasureLabel:       "Number of Houses Sold",
			FrameDuration:      500 * time.Millisecond,
			TransitionDuration: 100 * time.Millisecond,
		},
		Output: OutputConfig{
			Dir: "out",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8084,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
		},
		Security: SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    20,
			RateLimitBurst:  10,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, the
// environment and finally the command-line args, in that order of precedence.
// Variables from an optional .env file fill in only what the environment
// leaves unset.
func Load(args []string) (*Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("housing-map", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configPath := fs.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML configuration file")
	envFile := fs.String("env-file", ".env", "Optional dotenv file read before the environment")
	file := fs.String("file", "", "Path to the housing sales CSV or XLSX file (required)")
	outDir := fs.String("out", "", "Directory for generated charts and exports")
	periodOrder := fs.String("period-order", "", "Period ordering: position or date")
	serve := fs.Bool("serve", false, "Serve the charts on a local viewer after writing them")
	xlsx := fs.Bool("xlsx", false, "Export aggregated data as an XLSX workbook")
	png := fs.Bool("png", false, "Export the snapshot as a PNG bar chart")

	if err := fs.Parse(args); err != nil {
		return nil, errors.ConfigWrap(err, "parse flags")
	}

	if *configPath != "" {
		if err := loadFile(cfg, *configPath); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(*envFile); err != nil {
		return nil, err
	}
	applyEnv(cfg)

	if *file != "" {
		cfg.Input.File = *file
	} else if fs.NArg() > 0 {
		cfg.Input.File = fs.Arg(0)
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *periodOrder != "" {
		cfg.Input.PeriodOrder = *periodOrder
	}
	cfg.Output.Serve = cfg.Output.Serve || *serve
	cfg.Output.XLSX = cfg.Output.XLSX || *xlsx
	cfg.Output.PNG = cfg.Output.PNG || *png

	if err := cfg.validate(); err != nil {
		return nil, errors.ConfigWrap(err, "invalid configuration")
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.ConfigWrap(err, "read config file").WithDetails("path %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.ConfigWrap(err, "parse config file").WithDetails("path %q", path)
	}
	return nil
}

// loadDotEnv exports the variables of a dotenv file without overriding ones
// already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.ConfigWrap(err, "load env file").WithDetails("path %q", path)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Input.File = getEnvString("INPUT_FILE", cfg.Input.File)
	cfg.Input.RegionColumn = getEnvString("REGION_COLUMN", cfg.Input.RegionColumn)
	cfg.Input.MetadataColumns = getEnvInt("METADATA_COLUMNS", cfg.Input.MetadataColumns)
	cfg.Input.PeriodColumns = getEnvStringSlice("PERIOD_COLUMNS", cfg.Input.PeriodColumns)
	cfg.Input.PeriodOrder = getEnvString("PERIOD_ORDER", cfg.Input.PeriodOrder)

	cfg.Chart.Width = getEnvInt("CHART_WIDTH", cfg.Chart.Width)
	cfg.Chart.Height = getEnvInt("CHART_HEIGHT", cfg.Chart.Height)
	cfg.Chart.ColorScale = getEnvString("CHART_COLOR_SCALE", cfg.Chart.ColorScale)
	cfg.Chart.MeasureLabel = getEnvString("CHART_MEASURE_LABEL", cfg.Chart.MeasureLabel)
	cfg.Chart.FrameDuration = getEnvDuration("FRAME_DURATION", cfg.Chart.FrameDuration)
	cfg.Chart.TransitionDuration = getEnvDuration("TRANSITION_DURATION", cfg.Chart.TransitionDuration)

	cfg.Output.Dir = getEnvString("OUTPUT_DIR", cfg.Output.Dir)

	cfg.Server.Host = getEnvString("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Logger.Level = getEnvString("LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.Format = getEnvString("LOG_FORMAT", cfg.Logger.Format)

	cfg.Security.EnableRateLimit = getEnvBool("SECURITY_RATE_LIMIT_ENABLED", cfg.Security.EnableRateLimit)
	cfg.Security.RateLimitRPS = getEnvInt("SECURITY_RATE_LIMIT_RPS", cfg.Security.RateLimitRPS)
	cfg.Security.RateLimitBurst = getEnvInt("SECURITY_RATE_LIMIT_BURST", cfg.Security.RateLimitBurst)
}

func (c *Config) validate() error {
	if c.Input.File == "" {
		return fmt.Errorf("input file path is required (-file or INPUT_FILE)")
	}

	if c.Input.RegionColumn == "" {
		return fmt.Errorf("region column cannot be empty")
	}

	if c.Input.MetadataColumns < 0 {
		return fmt.Errorf("metadata columns must not be negative, got %d", c.Input.MetadataColumns)
	}

	validOrders := []string{PeriodOrderPosition, PeriodOrderDate}
	if !contains(validOrders, c.Input.PeriodOrder) {
		return fmt.Errorf("invalid period order %q, must be one of: %s", c.Input.PeriodOrder, strings.Join(validOrders, ", "))
	}

	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("chart dimensions must be positive, got %dx%d", c.Chart.Width, c.Chart.Height)
	}

	if c.Chart.FrameDuration <= 0 || c.Chart.TransitionDuration < 0 {
		return fmt.Errorf("animation durations must be positive")
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

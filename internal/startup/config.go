package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"video-captioner/internal/logging"
	"video-captioner/internal/workers"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Port           string
	MetricsPort    string
	MetricsEnabled bool
	PublicBaseURL  string

	RequestTimeout  time.Duration
	ResponseTimeout time.Duration
	MaxBodySize     int64

	StorageDir    string
	Retention     time.Duration
	SweepInterval time.Duration

	FFmpegPath         string
	FFprobePath        string
	VideoCodec         string
	FrameFormat        string
	MaxConcurrentJobs  int
	CheckCompatibility bool

	LogLevel        logging.LogLevel
	LogStaticFiles  bool
	LogHealthChecks bool

	// ConfigFile is the YAML file that was loaded, empty when none.
	ConfigFile string
}

const (
	defaultPort            = "3003"
	defaultMetricsPort     = "9090"
	defaultStorageDir      = "./uploads"
	defaultRequestTimeout  = 15 * time.Minute
	defaultResponseTimeout = 15 * time.Minute
	defaultMaxBodySize     = 500 << 20
	defaultSweepInterval   = time.Hour
	maxDefaultJobs         = 4
)

// fileConfig is the YAML layout of CONFIG_FILE. Every field is optional.
type fileConfig struct {
	Server struct {
		Port            string `yaml:"port"`
		MetricsPort     string `yaml:"metrics_port"`
		MetricsEnabled  *bool  `yaml:"metrics_enabled"`
		PublicBaseURL   string `yaml:"public_base_url"`
		RequestTimeout  string `yaml:"request_timeout"`
		ResponseTimeout string `yaml:"response_timeout"`
		MaxBodySize     string `yaml:"max_body_size"`
	} `yaml:"server"`
	Storage struct {
		Dir           string `yaml:"dir"`
		Retention     string `yaml:"retention"`
		SweepInterval string `yaml:"sweep_interval"`
	} `yaml:"storage"`
	FFmpeg struct {
		Path              string `yaml:"path"`
		ProbePath         string `yaml:"probe_path"`
		VideoCodec        string `yaml:"video_codec"`
		FrameFormat       string `yaml:"frame_format"`
		MaxConcurrentJobs int    `yaml:"max_concurrent_jobs"`
		ConcatPrecheck    *bool  `yaml:"concat_precheck"`
	} `yaml:"ffmpeg"`
	Logging struct {
		Level        string `yaml:"level"`
		StaticFiles  *bool  `yaml:"static_files"`
		HealthChecks *bool  `yaml:"health_checks"`
	} `yaml:"logging"`
}

// values flattens the file into the environment key space.
func (f *fileConfig) values() map[string]string {
	v := make(map[string]string)
	set := func(key, value string) {
		if value != "" {
			v[key] = value
		}
	}
	setBool := func(key string, value *bool) {
		if value != nil {
			v[key] = strconv.FormatBool(*value)
		}
	}

	set("PORT", f.Server.Port)
	set("METRICS_PORT", f.Server.MetricsPort)
	setBool("METRICS_ENABLED", f.Server.MetricsEnabled)
	set("PUBLIC_BASE_URL", f.Server.PublicBaseURL)
	set("REQUEST_TIMEOUT", f.Server.RequestTimeout)
	set("RESPONSE_TIMEOUT", f.Server.ResponseTimeout)
	set("MAX_BODY_SIZE", f.Server.MaxBodySize)
	set("STORAGE_DIR", f.Storage.Dir)
	set("RETENTION", f.Storage.Retention)
	set("SWEEP_INTERVAL", f.Storage.SweepInterval)
	set("FFMPEG_PATH", f.FFmpeg.Path)
	set("FFPROBE_PATH", f.FFmpeg.ProbePath)
	set("VIDEO_CODEC", f.FFmpeg.VideoCodec)
	set("POSTER_FRAME_FORMAT", f.FFmpeg.FrameFormat)
	if f.FFmpeg.MaxConcurrentJobs > 0 {
		v["MAX_CONCURRENT_JOBS"] = strconv.Itoa(f.FFmpeg.MaxConcurrentJobs)
	}
	setBool("CONCAT_PRECHECK", f.FFmpeg.ConcatPrecheck)
	set("LOG_LEVEL", f.Logging.Level)
	setBool("LOG_STATIC_FILES", f.Logging.StaticFiles)
	setBool("LOG_HEALTH_CHECKS", f.Logging.HealthChecks)
	return v
}

// source resolves a key against the environment first, then the file.
type source struct {
	file map[string]string
}

func (s source) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := s.file[key]; ok {
		return value
	}
	return defaultValue
}

func (s source) getBool(key string, defaultValue bool) bool {
	value := s.get(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("  Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func (s source) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := s.get(key, "")
	if value == "" {
		return defaultValue
	}
	if value == "0" {
		return 0
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		logging.Warn("  Invalid %s %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func (s source) getSize(key string, defaultValue int64) int64 {
	value := s.get(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := ParseSize(value)
	if err != nil {
		logging.Warn("  Invalid %s %q, using default: %s", key, value, FormatSize(defaultValue))
		return defaultValue
	}
	return parsed
}

func (s source) getInt(key string, defaultValue int) int {
	value := s.get(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		logging.Warn("  Invalid %s %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// LoadConfig loads configuration from defaults, CONFIG_FILE, .env and the
// environment, and prepares the storage directory.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	logging.SetLevel(config.LogLevel)
	logConfig(config)

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	storageDir, err := filepath.Abs(config.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory path: %w", err)
	}
	config.StorageDir = storageDir
	logging.Info("  Storage directory (absolute): %s", storageDir)

	if err := ensureDirectory(storageDir); err != nil {
		return nil, fmt.Errorf("storage directory error: %w", err)
	}

	logging.Debug("  Testing storage directory write access...")
	if err := CheckWritable(storageDir); err != nil {
		return nil, fmt.Errorf("storage directory is not writable: %w", err)
	}
	logging.Info("  [OK] Storage directory is writable")

	return config, nil
}

// resolveConfig builds the Config without touching the filesystem beyond
// reading the optional config and .env files.
func resolveConfig() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		logging.Debug("  No %s file found", envFile)
	} else {
		logging.Info("  Loaded environment file: %s", envFile)
	}

	src := source{}
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		fc, err := loadFile(configFile)
		if err != nil {
			return nil, err
		}
		src.file = fc.values()
		logging.Info("  Loaded config file: %s", configFile)
	}

	port := src.get("PORT", defaultPort)
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return nil, fmt.Errorf("invalid PORT %q: must be a number between 0 and 65535", port)
	}
	metricsPort := src.get("METRICS_PORT", defaultMetricsPort)
	if _, err := strconv.ParseUint(metricsPort, 10, 16); err != nil {
		return nil, fmt.Errorf("invalid METRICS_PORT %q: must be a number between 0 and 65535", metricsPort)
	}

	level := logging.LevelInfo
	if raw := src.get("LOG_LEVEL", ""); raw != "" {
		parsed, ok := logging.ParseLevel(raw)
		if !ok {
			logging.Warn("  Invalid LOG_LEVEL %q, using default: info", raw)
		} else {
			level = parsed
		}
	} else {
		level = logging.GetLevel()
	}

	config := &Config{
		Port:           port,
		MetricsPort:    metricsPort,
		MetricsEnabled: src.getBool("METRICS_ENABLED", true),
		PublicBaseURL:  strings.TrimRight(src.get("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),

		RequestTimeout:  src.getDuration("REQUEST_TIMEOUT", defaultRequestTimeout),
		ResponseTimeout: src.getDuration("RESPONSE_TIMEOUT", defaultResponseTimeout),
		MaxBodySize:     src.getSize("MAX_BODY_SIZE", defaultMaxBodySize),

		StorageDir:    src.get("STORAGE_DIR", defaultStorageDir),
		Retention:     src.getDuration("RETENTION", 0),
		SweepInterval: src.getDuration("SWEEP_INTERVAL", defaultSweepInterval),

		FFmpegPath:         src.get("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:        src.get("FFPROBE_PATH", "ffprobe"),
		VideoCodec:         src.get("VIDEO_CODEC", "libx264"),
		FrameFormat:        src.get("POSTER_FRAME_FORMAT", "png"),
		MaxConcurrentJobs:  src.getInt("MAX_CONCURRENT_JOBS", workers.ForCPU(maxDefaultJobs)),
		CheckCompatibility: src.getBool("CONCAT_PRECHECK", true),

		LogLevel:        level,
		LogStaticFiles:  src.getBool("LOG_STATIC_FILES", false),
		LogHealthChecks: src.getBool("LOG_HEALTH_CHECKS", true),

		ConfigFile: configFile,
	}

	if config.SweepInterval == 0 {
		config.SweepInterval = defaultSweepInterval
	}

	return config, nil
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &fc, nil
}

func logConfig(c *Config) {
	logging.Info("  PORT:                %s", c.Port)
	logging.Info("  METRICS_PORT:        %s", c.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", c.MetricsEnabled)
	logging.Info("  PUBLIC_BASE_URL:     %s", c.PublicBaseURL)
	logging.Info("  STORAGE_DIR:         %s", c.StorageDir)
	logging.Info("  REQUEST_TIMEOUT:     %v", c.RequestTimeout)
	logging.Info("  RESPONSE_TIMEOUT:    %v", c.ResponseTimeout)
	logging.Info("  MAX_BODY_SIZE:       %s", FormatSize(c.MaxBodySize))
	logging.Info("  FFMPEG_PATH:         %s", c.FFmpegPath)
	logging.Info("  FFPROBE_PATH:        %s", c.FFprobePath)
	logging.Info("  VIDEO_CODEC:         %s", c.VideoCodec)
	logging.Info("  POSTER_FRAME_FORMAT: %s", c.FrameFormat)
	logging.Info("  MAX_CONCURRENT_JOBS: %d", c.MaxConcurrentJobs)
	logging.Info("  CONCAT_PRECHECK:     %v", c.CheckCompatibility)
	logging.Info("  RETENTION:           %s", retentionString(c.Retention))
	logging.Info("  SWEEP_INTERVAL:      %v", c.SweepInterval)
	logging.Info("  LOG_STATIC_FILES:    %v", c.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", c.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", c.LogLevel)
}

func retentionString(d time.Duration) string {
	if d <= 0 {
		return "DISABLED"
	}
	return d.String()
}

var sizeUnits = []struct {
	suffix string
	factor int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseSize parses sizes such as "500MB", "2gb", "1024" (bytes).
// Units are binary multiples.
func ParseSize(s string) (int64, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return 0, fmt.Errorf("empty size")
	}

	factor := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(trimmed, u.suffix) {
			factor = u.factor
			trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, u.suffix))
			break
		}
	}

	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * factor, nil
}

// FormatSize renders n bytes using the largest whole unit.
func FormatSize(n int64) string {
	for _, u := range sizeUnits {
		if n >= u.factor && n%u.factor == 0 {
			return strconv.FormatInt(n/u.factor, 10) + u.suffix
		}
	}
	return strconv.FormatInt(n, 10) + "B"
}

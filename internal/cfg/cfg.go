package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	DatasetURL     string
	RawPath        string
	CleanedPath    string
	DataPath       string
	ReportDir      string
	ModelDir       string
	Seed           int64
	TestFraction   float64
	CVFolds        int
	ProbThreshold  float64
	TopK           int
	ListenPort     int
	MetricsPort    int
	RequestTimeout time.Duration
	DriftThreshold float64
	DriftCooldown  time.Duration
}

type ConfigFile struct {
	Data struct {
		DatasetURL  string `yaml:"datasetURL"`
		RawPath     string `yaml:"rawPath"`
		CleanedPath string `yaml:"cleanedPath"`
		DataPath    string `yaml:"dataPath"`
	} `yaml:"data"`

	Training struct {
		Seed         int64   `yaml:"seed"`
		TestFraction float64 `yaml:"testFraction"`
		CVFolds      int     `yaml:"cvFolds"`
		ReportDir    string  `yaml:"reportDir"`
	} `yaml:"training"`

	Model struct {
		Dir           string  `yaml:"dir"`
		ProbThreshold float64 `yaml:"probThreshold"`
		TopK          int     `yaml:"topK"`
	} `yaml:"model"`

	Service struct {
		ListenPort     int    `yaml:"listenPort"`
		MetricsPort    int    `yaml:"metricsPort"`
		RequestTimeout string `yaml:"requestTimeout"`
	} `yaml:"service"`

	Drift struct {
		PSIThreshold  float64 `yaml:"psiThreshold"`
		AlertCooldown string  `yaml:"alertCooldown"`
	} `yaml:"drift"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Parse durations
	requestTimeout, err := time.ParseDuration(config.Service.RequestTimeout)
	if err != nil {
		requestTimeout = 10 * time.Second
	}

	driftCooldown, err := time.ParseDuration(config.Drift.AlertCooldown)
	if err != nil {
		driftCooldown = 15 * time.Minute
	}

	// Override with environment variables if they exist
	settings := Settings{
		DatasetURL:     getEnvOrDefault("DATASET_URL", config.Data.DatasetURL),
		RawPath:        getEnvOrDefault("RAW_PATH", config.Data.RawPath),
		CleanedPath:    getEnvOrDefault("CLEANED_PATH", config.Data.CleanedPath),
		DataPath:       getEnvOrDefault("DATA_PATH", config.Data.DataPath),
		ReportDir:      getEnvOrDefault("REPORT_DIR", config.Training.ReportDir),
		ModelDir:       getEnvOrDefault("MODEL_DIR", config.Model.Dir),
		Seed:           getInt64FromEnvOrConfig("SEED", config.Training.Seed),
		TestFraction:   getFloatFromEnvOrConfig("TEST_FRACTION", config.Training.TestFraction),
		CVFolds:        getIntFromEnvOrConfig("CV_FOLDS", config.Training.CVFolds),
		ProbThreshold:  getFloatFromEnvOrConfig("PROB_THRESHOLD", config.Model.ProbThreshold),
		TopK:           getIntFromEnvOrConfig("TOP_K", config.Model.TopK),
		ListenPort:     getIntFromEnvOrConfig("LISTEN_PORT", config.Service.ListenPort),
		MetricsPort:    getIntFromEnvOrConfig("METRICS_PORT", config.Service.MetricsPort),
		RequestTimeout: requestTimeout,
		DriftThreshold: getFloatFromEnvOrConfig("DRIFT_THRESHOLD", config.Drift.PSIThreshold),
		DriftCooldown:  driftCooldown,
	}

	applyDefaults(&settings)

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		DatasetURL:     os.Getenv("DATASET_URL"), // optional
		RawPath:        getEnvOrDefault("RAW_PATH", "data/survey.csv"),
		CleanedPath:    getEnvOrDefault("CLEANED_PATH", "data/survey_cleaned.csv"),
		DataPath:       getEnvOrDefault("DATA_PATH", "data"),
		ReportDir:      getEnvOrDefault("REPORT_DIR", "reports"),
		ModelDir:       getEnvOrDefault("MODEL_DIR", "models"),
		Seed:           getInt64OrDefault("SEED", 42),
		TestFraction:   getFloatOrDefault("TEST_FRACTION", 0.2),
		CVFolds:        getIntOrDefault("CV_FOLDS", 5),
		ProbThreshold:  getFloatOrDefault("PROB_THRESHOLD", 0.5),
		TopK:           getIntOrDefault("TOP_K", 5),
		ListenPort:     getIntOrDefault("LISTEN_PORT", 8090),
		MetricsPort:    getIntOrDefault("METRICS_PORT", 8080),
		RequestTimeout: getDurationOrDefault("REQUEST_TIMEOUT", 10*time.Second),
		DriftThreshold: getFloatOrDefault("DRIFT_THRESHOLD", 0.2),
		DriftCooldown:  getDurationOrDefault("DRIFT_COOLDOWN", 15*time.Minute),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// applyDefaults fills fields the YAML file left at their zero value.
func applyDefaults(s *Settings) {
	if s.RawPath == "" {
		s.RawPath = "data/survey.csv"
	}
	if s.CleanedPath == "" {
		s.CleanedPath = "data/survey_cleaned.csv"
	}
	if s.DataPath == "" {
		s.DataPath = "data"
	}
	if s.ReportDir == "" {
		s.ReportDir = "reports"
	}
	if s.ModelDir == "" {
		s.ModelDir = "models"
	}
	if s.Seed == 0 {
		s.Seed = 42
	}
	if s.TestFraction == 0 {
		s.TestFraction = 0.2
	}
	if s.CVFolds == 0 {
		s.CVFolds = 5
	}
	if s.ProbThreshold == 0 {
		s.ProbThreshold = 0.5
	}
	if s.TopK == 0 {
		s.TopK = 5
	}
	if s.ListenPort == 0 {
		s.ListenPort = 8090
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = 8080
	}
	if s.DriftThreshold == 0 {
		s.DriftThreshold = 0.2
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func getInt64FromEnvOrConfig(key string, configValue int64) int64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseInt(env, 10, 64); err == nil {
			return val
		}
	}
	return configValue
}

func getFloatFromEnvOrConfig(key string, configValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	// Validate paths
	if settings.RawPath == "" {
		return fmt.Errorf("raw data path cannot be empty")
	}
	if settings.ModelDir == "" {
		return fmt.Errorf("model directory cannot be empty")
	}

	// Validate training parameters
	if settings.TestFraction <= 0 || settings.TestFraction >= 0.5 {
		return fmt.Errorf("test fraction must be between 0 and 0.5, got %f", settings.TestFraction)
	}
	if settings.CVFolds < 2 || settings.CVFolds > 20 {
		return fmt.Errorf("cross-validation folds must be between 2 and 20, got %d", settings.CVFolds)
	}

	// Validate prediction parameters
	if settings.ProbThreshold <= 0 || settings.ProbThreshold >= 1 {
		return fmt.Errorf("probability threshold must be between 0 and 1, got %f", settings.ProbThreshold)
	}
	if settings.TopK <= 0 || settings.TopK > 50 {
		return fmt.Errorf("top-k attributions must be between 1 and 50, got %d", settings.TopK)
	}

	// Validate network parameters
	if settings.ListenPort < 1024 || settings.ListenPort > 65535 {
		return fmt.Errorf("listen port must be between 1024 and 65535, got %d", settings.ListenPort)
	}
	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.ListenPort == settings.MetricsPort {
		return fmt.Errorf("listen port and metrics port must differ, both are %d", settings.ListenPort)
	}
	if settings.RequestTimeout < time.Second || settings.RequestTimeout > time.Minute {
		return fmt.Errorf("request timeout must be between 1s and 1m, got %v", settings.RequestTimeout)
	}

	// Validate drift parameters
	if settings.DriftThreshold <= 0 || settings.DriftThreshold > 1 {
		return fmt.Errorf("drift threshold must be between 0 and 1, got %f", settings.DriftThreshold)
	}
	if settings.DriftCooldown < time.Minute || settings.DriftCooldown > 24*time.Hour {
		return fmt.Errorf("drift cooldown must be between 1m and 24h, got %v", settings.DriftCooldown)
	}

	return nil
}

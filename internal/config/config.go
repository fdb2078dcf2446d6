package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the remediation engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Analyzers AnalyzersConfig `yaml:"analyzers"`
	Policy    PolicyConfig    `yaml:"policy"`
	Deploy    DeployConfig    `yaml:"deploy"`
	Health    HealthConfig    `yaml:"health"`
	Collab    CollabConfig    `yaml:"collab"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	RatePerSecond   float64       `yaml:"ratePerSecond"`
	RateBurst       int           `yaml:"rateBurst"`
}

// AnalyzersConfig bounds analyzer fan-out and aggregation confidence.
type AnalyzersConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	BatchTimeout      time.Duration `yaml:"batchTimeout"`
	MinSignals        int           `yaml:"minSignals"`
	ConfidenceCeiling float64       `yaml:"confidenceCeiling"`
}

// PolicyConfig controls decision rule loading and the auto-fix gate.
type PolicyConfig struct {
	RulesPath          string  `yaml:"rulesPath"`
	AutoDeploy         bool    `yaml:"autoDeploy"`
	MinAutoConfidence  float64 `yaml:"minAutoConfidence"`
	MaxAutoSecurity    float64 `yaml:"maxAutoSecurity"`
	ConflictSupersedes bool    `yaml:"conflictSupersedes"`
}

// DeployConfig tunes the deployment supervisor.
type DeployConfig struct {
	Timeout            time.Duration `yaml:"timeout"`
	MonitorWindow      time.Duration `yaml:"monitorWindow"`
	MonitorInterval    time.Duration `yaml:"monitorInterval"`
	ErrorRateThreshold float64       `yaml:"errorRateThreshold"`
	LatencyThreshold   time.Duration `yaml:"latencyThreshold"`
	CanaryHold         time.Duration `yaml:"canaryHold"`
	RollingBatches     int           `yaml:"rollingBatches"`
}

// HealthConfig configures the sliding-window health monitor.
type HealthConfig struct {
	MTTRThreshold        time.Duration `yaml:"mttrThreshold"`
	RollbackWindow       time.Duration `yaml:"rollbackWindow"`
	RollbackThreshold    int           `yaml:"rollbackThreshold"`
	FailureRateThreshold float64       `yaml:"failureRateThreshold"`
	FailureSampleSize    int           `yaml:"failureSampleSize"`
	HysteresisMargin     float64       `yaml:"hysteresisMargin"`
	AutoClear            bool          `yaml:"autoClear"`
}

// CollabConfig groups the external collaborator endpoints.
type CollabConfig struct {
	ExecutorBaseURL string        `yaml:"executorBaseURL"`
	ExecutePath     string        `yaml:"executePath"`
	RollbackPath    string        `yaml:"rollbackPath"`
	ValidatePath    string        `yaml:"validatePath"`
	NotifyURL       string        `yaml:"notifyURL"`
	Timeout         time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_REMEDIATE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8085",
			MetricsAddress:  ":9091",
			GracefulTimeout: 10 * time.Second,
			RatePerSecond:   50,
			RateBurst:       100,
		},
		Analyzers: AnalyzersConfig{
			Timeout:           2 * time.Second,
			BatchTimeout:      5 * time.Second,
			MinSignals:        0, // 0 = half of registered analyzers
			ConfidenceCeiling: 0.5,
		},
		Policy: PolicyConfig{
			RulesPath:          "configs/policy/default.yaml",
			AutoDeploy:         true,
			MinAutoConfidence:  0.8,
			MaxAutoSecurity:    0.3,
			ConflictSupersedes: false,
		},
		Deploy: DeployConfig{
			Timeout:            15 * time.Minute,
			MonitorWindow:      2 * time.Minute,
			MonitorInterval:    10 * time.Second,
			ErrorRateThreshold: 0.05,
			LatencyThreshold:   2 * time.Second,
			CanaryHold:         30 * time.Second,
			RollingBatches:     4,
		},
		Health: HealthConfig{
			MTTRThreshold:        600 * time.Second,
			RollbackWindow:       5 * time.Minute,
			RollbackThreshold:    5,
			FailureRateThreshold: 0.20,
			FailureSampleSize:    20,
			HysteresisMargin:     0,
			AutoClear:            true,
		},
		Collab: CollabConfig{
			ExecutePath:  "/api/v1/execute",
			RollbackPath: "/api/v1/rollback",
			ValidatePath: "/api/v1/validate",
			Timeout:      10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_REMEDIATE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_RULES_PATH"); v != "" {
		cfg.Policy.RulesPath = v
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_AUTO_DEPLOY"); v != "" {
		cfg.Policy.AutoDeploy = parseBool(v)
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_CONFLICT_SUPERSEDES"); v != "" {
		cfg.Policy.ConflictSupersedes = parseBool(v)
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_ANALYZER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analyzers.Timeout = d
		}
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_BATCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analyzers.BatchTimeout = d
		}
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_MIN_SIGNALS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyzers.MinSignals = n
		}
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_EXECUTOR_URL"); v != "" {
		cfg.Collab.ExecutorBaseURL = v
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_NOTIFY_URL"); v != "" {
		cfg.Collab.NotifyURL = v
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_COLLAB_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Collab.Timeout = d
		}
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_DEPLOY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Deploy.Timeout = d
		}
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_MONITOR_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Deploy.MonitorWindow = d
		}
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_MTTR_THRESHOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Health.MTTRThreshold = d
		}
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_ROLLBACK_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Health.RollbackWindow = d
		}
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_ROLLBACK_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Health.RollbackThreshold = n
		}
	}
	if v := os.Getenv("MIRADOR_REMEDIATE_FAILURE_RATE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Health.FailureRateThreshold = f
		}
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
}

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// FusionConfig configures the Event Fusion Pipeline.
type FusionConfig struct {
	AutoVerifyThreshold float64       `yaml:"auto_verify_threshold"`
	RetryDeadline       time.Duration `yaml:"retry_deadline"`
	BaselineDBPath      string        `yaml:"baseline_db_path"`
	AnomalyKSigma       float64       `yaml:"anomaly_k_sigma"`
}

// GuardrailConfig configures the Guardrail & Risk Pipeline.
type GuardrailConfig struct {
	ApprovalThreshold   float64       `yaml:"approval_threshold"`
	ApprovalTimeout     time.Duration `yaml:"approval_timeout"`
	EscalationThreshold time.Duration `yaml:"escalation_threshold"`
}

// SafetyConfig configures the officer safety engines.
type SafetyConfig struct {
	CheckInInterval    time.Duration `yaml:"check_in_interval"`
	FallConfirmTimeout time.Duration `yaml:"fall_confirm_timeout"`
	HotzoneWarningTTL  time.Duration `yaml:"hotzone_warning_ttl"`
	ProximityWarningTTL time.Duration `yaml:"proximity_warning_ttl"`
}

// ContinuityConfig configures one redundant service's failover policy.
type ContinuityConfig struct {
	ServiceType       string `yaml:"service_type"`
	Primary           string `yaml:"primary"`
	Secondary         string `yaml:"secondary"`
	FailureThreshold  int    `yaml:"failure_threshold"`
	RecoveryThreshold int    `yaml:"recovery_threshold"`
	BufferLimit       int    `yaml:"buffer_limit"`
}

// ZeroTrustConfig configures the Zero-Trust / CJIS Access Gateway.
type ZeroTrustConfig struct {
	AllowedNetworks      []string `yaml:"allowed_networks"`
	AllowedCountries     []string `yaml:"allowed_countries"`
	AllowedStates        []string `yaml:"allowed_states"`
	BurstWindow          time.Duration `yaml:"burst_window"`
	BurstThreshold       int           `yaml:"burst_threshold"`
	SensitivePurposes    []string      `yaml:"sensitive_purposes"`
}

// DispatchConfig configures actuator dispatch.
type DispatchConfig struct {
	MinBatteryPct               float64       `yaml:"min_battery_pct"`
	DefaultResponseRadiusMeters float64       `yaml:"default_response_radius_meters"`
	CommandDefaultTimeout       time.Duration `yaml:"command_default_timeout"`
	RequireOperatorApproval     bool          `yaml:"require_operator_approval"`
	DangerousKeywords           []string      `yaml:"dangerous_keywords"`
	MinAltitudeM                float64       `yaml:"min_altitude_m"`
	MaxAltitudeM                float64       `yaml:"max_altitude_m"`
	MaxSpeedMPS                 float64       `yaml:"max_speed_mps"`
}

// WebhookConfig configures one outbound alert webhook channel.
type WebhookConfig struct {
	Name                string   `yaml:"name"`
	URL                 string   `yaml:"url"`
	SecretEnv           string   `yaml:"secret_env"`
	AllowedPrivateCIDRs []string `yaml:"allowed_private_cidrs"`
}

// Config holds the rtcc-center server's full configuration surface.
type Config struct {
	ListenAddr     string `yaml:"listen_addr"`
	MetricsAddress string `yaml:"metrics_address"`
	LogLevel       string `yaml:"log_level"`
	AuditLogPath   string `yaml:"audit_log_path"`

	Fusion     FusionConfig      `yaml:"fusion"`
	Guardrail  GuardrailConfig   `yaml:"guardrail"`
	Safety     SafetyConfig      `yaml:"safety"`
	Continuity []ContinuityConfig `yaml:"continuity"`
	ZeroTrust  ZeroTrustConfig   `yaml:"zero_trust"`
	Dispatch   DispatchConfig    `yaml:"dispatch"`
	Webhooks   []WebhookConfig   `yaml:"webhooks"`
}

const defaultConfigPath = "/etc/rtcc-center/config.yaml"

func defaultConfig() *Config {
	return &Config{
		ListenAddr:     ":8443",
		MetricsAddress: ":9090",
		LogLevel:       "info",
		AuditLogPath:   "/var/log/rtcc/center/audit.log",
		Fusion: FusionConfig{
			AutoVerifyThreshold: 0.85,
			RetryDeadline:       30 * time.Second,
			BaselineDBPath:      "/var/lib/rtcc/center/baselines.db",
			AnomalyKSigma:       3.0,
		},
		Guardrail: GuardrailConfig{
			ApprovalThreshold:   70,
			ApprovalTimeout:     5 * time.Minute,
			EscalationThreshold: 2 * time.Minute,
		},
		Safety: SafetyConfig{
			CheckInInterval:     15 * time.Minute,
			FallConfirmTimeout:  30 * time.Second,
			HotzoneWarningTTL:   10 * time.Minute,
			ProximityWarningTTL: 5 * time.Minute,
		},
		ZeroTrust: ZeroTrustConfig{
			BurstWindow:    time.Minute,
			BurstThreshold: 20,
		},
		Dispatch: DispatchConfig{
			MinBatteryPct:               0.2,
			DefaultResponseRadiusMeters: 2000,
			CommandDefaultTimeout:       30 * time.Second,
			MinAltitudeM:                0,
			MaxAltitudeM:                120,
			MaxSpeedMPS:                 20,
		},
	}
}

// loadConfig reads configuration from the file at configPath, falling
// back to built-in defaults for anything it leaves unset. configPath
// may be empty, in which case the defaults apply. Either way the
// RTCC_CENTER_LISTEN_ADDR and RTCC_CENTER_LOG_LEVEL environment variables
// override the listen address and log level when set.
func loadConfig(configPath string) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			log.Info().Str("config_file", configPath).Msg("Loaded configuration from file")
		}
	}

	if envAddr := os.Getenv("RTCC_CENTER_LISTEN_ADDR"); envAddr != "" {
		cfg.ListenAddr = envAddr
	}
	if envLevel := os.Getenv("RTCC_CENTER_LOG_LEVEL"); envLevel != "" {
		cfg.LogLevel = envLevel
	}

	if cfg.Fusion.AutoVerifyThreshold <= 0 || cfg.Fusion.AutoVerifyThreshold > 1 {
		log.Warn().Float64("configured_value", cfg.Fusion.AutoVerifyThreshold).Msg("fusion auto_verify_threshold out of (0,1]; using default 0.85")
		cfg.Fusion.AutoVerifyThreshold = 0.85
	}
	if cfg.Dispatch.MaxAltitudeM <= cfg.Dispatch.MinAltitudeM {
		log.Warn().Msg("dispatch max_altitude_m must exceed min_altitude_m; using defaults 0/120")
		cfg.Dispatch.MinAltitudeM, cfg.Dispatch.MaxAltitudeM = 0, 120
	}

	return cfg, nil
}

// webhookSecret resolves a webhook's signing secret from the
// environment variable named in its config entry.
func webhookSecret(w WebhookConfig) string {
	if w.SecretEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(w.SecretEnv))
}

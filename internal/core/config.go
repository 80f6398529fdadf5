// Package core contains the business logic for TaskDeck, including
// status derivation, the task registry, the QA clarification channel,
// task lifecycle operations, and configuration.
package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/valter-silva-au/taskdeck/pkg/models"
)

// validPrefixPattern matches uppercase alphanumeric prefixes between 1 and 10 characters.
var validPrefixPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

// ConfigurationManager loads and validates the project configuration
// from .taskdeck/config.yaml.
type ConfigurationManager interface {
	LoadConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	// configDir is the .taskdeck directory where config.yaml resides.
	configDir string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// config.yaml from configDir.
func NewConfigurationManager(configDir string) ConfigurationManager {
	return &viperConfigManager{configDir: configDir}
}

// defaultGlobalConfig returns a GlobalConfig populated with sensible defaults.
func defaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		TaskIDPrefix:   "TASK",
		TaskIDPadWidth: 3,
		DefaultSource:  models.SourceManual,
		Agent: models.AgentConfig{
			Command:             "auto-agent",
			StartTimeoutSeconds: 30,
		},
		Notifications: models.NotificationConfig{
			Enabled: false,
			Alerts: models.AlertThresholdConfig{
				StuckMinutes:    30,
				QuestionMinutes: 10,
			},
		},
	}
}

// LoadConfig reads config.yaml using Viper. If the file does not exist,
// defaults are returned.
func (cm *viperConfigManager) LoadConfig() (*models.GlobalConfig, error) {
	cfg := defaultGlobalConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.configDir)

	// Set Viper defaults so missing keys fall back gracefully.
	v.SetDefault("task_id.prefix", cfg.TaskIDPrefix)
	v.SetDefault("task_id.pad_width", cfg.TaskIDPadWidth)
	v.SetDefault("defaults.source", string(cfg.DefaultSource))
	v.SetDefault("agent.command", cfg.Agent.Command)
	v.SetDefault("agent.start_timeout_seconds", cfg.Agent.StartTimeoutSeconds)
	v.SetDefault("notifications.enabled", cfg.Notifications.Enabled)
	v.SetDefault("notifications.alerts.stuck_minutes", cfg.Notifications.Alerts.StuckMinutes)
	v.SetDefault("notifications.alerts.question_minutes", cfg.Notifications.Alerts.QuestionMinutes)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config.yaml: %w", err)
	}

	// Map nested YAML keys to the flat GlobalConfig fields.
	cfg.TaskIDPrefix = v.GetString("task_id.prefix")
	cfg.DefaultSource = models.SourceType(v.GetString("defaults.source"))
	cfg.Agent.Command = v.GetString("agent.command")
	cfg.Agent.DefaultArgs = v.GetStringSlice("agent.default_args")
	cfg.Agent.StartTimeoutSeconds = v.GetInt("agent.start_timeout_seconds")
	cfg.Notifications.Enabled = v.GetBool("notifications.enabled")
	cfg.Notifications.SlackWebhookURL = v.GetString("notifications.slack_webhook_url")
	cfg.Notifications.Alerts.StuckMinutes = v.GetInt("notifications.alerts.stuck_minutes")
	cfg.Notifications.Alerts.QuestionMinutes = v.GetInt("notifications.alerts.question_minutes")

	// Use IsSet to distinguish "not set" (use default) from "explicitly set to 0".
	if v.IsSet("task_id.pad_width") {
		cfg.TaskIDPadWidth = v.GetInt("task_id.pad_width")
	}

	return cfg, nil
}

// validSourceTypes is the set of allowed SourceType values.
var validSourceTypes = map[models.SourceType]bool{
	models.SourceManual:    true,
	models.SourceAutomated: true,
}

// ValidateConfig checks the configuration for invalid values and
// returns a clear error message identifying every problem.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.TaskIDPrefix == "" {
		errs = append(errs, "task_id.prefix must not be empty")
	} else if !validPrefixPattern.MatchString(cfg.TaskIDPrefix) {
		errs = append(errs, fmt.Sprintf(
			"task_id.prefix %q is invalid, must match [A-Z0-9]{1,10}",
			cfg.TaskIDPrefix,
		))
	}

	if cfg.TaskIDPadWidth < 0 || cfg.TaskIDPadWidth > 10 {
		errs = append(errs, fmt.Sprintf(
			"task_id.pad_width %d is invalid, must be between 0 and 10",
			cfg.TaskIDPadWidth,
		))
	}

	if cfg.DefaultSource != "" && !validSourceTypes[cfg.DefaultSource] {
		errs = append(errs, fmt.Sprintf(
			"defaults.source %q is invalid, must be one of: manual, automated",
			cfg.DefaultSource,
		))
	}

	if cfg.Agent.Command == "" {
		errs = append(errs, "agent.command must not be empty")
	}

	if cfg.Agent.StartTimeoutSeconds < 0 {
		errs = append(errs, fmt.Sprintf(
			"agent.start_timeout_seconds must be non-negative, got %d",
			cfg.Agent.StartTimeoutSeconds,
		))
	}

	if cfg.Notifications.Enabled && cfg.Notifications.SlackWebhookURL == "" {
		errs = append(errs, "notifications.slack_webhook_url must be set when notifications are enabled")
	}

	if cfg.Notifications.Alerts.StuckMinutes < 0 {
		errs = append(errs, fmt.Sprintf(
			"notifications.alerts.stuck_minutes must be non-negative, got %d",
			cfg.Notifications.Alerts.StuckMinutes,
		))
	}

	if cfg.Notifications.Alerts.QuestionMinutes < 0 {
		errs = append(errs, fmt.Sprintf(
			"notifications.alerts.question_minutes must be non-negative, got %d",
			cfg.Notifications.Alerts.QuestionMinutes,
		))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

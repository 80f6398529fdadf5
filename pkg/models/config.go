package models

// AgentConfig holds the command used to launch and resume the external
// agent process. The agent is an opaque collaborator; taskdeck only
// spawns it and watches the files it writes.
type AgentConfig struct {
	Command     string   `yaml:"command" mapstructure:"command"`
	DefaultArgs []string `yaml:"default_args,omitempty" mapstructure:"default_args"`
	// StartTimeoutSeconds bounds how long a spawn may take before the
	// invocation is resolved as timed out.
	StartTimeoutSeconds int `yaml:"start_timeout_seconds" mapstructure:"start_timeout_seconds"`
}

// AlertThresholdConfig tunes stuck-task detection.
type AlertThresholdConfig struct {
	StuckMinutes    int `yaml:"stuck_minutes" mapstructure:"stuck_minutes"`
	QuestionMinutes int `yaml:"question_minutes" mapstructure:"question_minutes"`
}

// NotificationConfig enables the optional Slack notifier for review
// transitions and pending questions.
type NotificationConfig struct {
	Enabled         bool                 `yaml:"enabled" mapstructure:"enabled"`
	SlackWebhookURL string               `yaml:"slack_webhook_url,omitempty" mapstructure:"slack_webhook_url"`
	Alerts          AlertThresholdConfig `yaml:"alerts" mapstructure:"alerts"`
}

// GlobalConfig holds system-wide settings read from .taskdeck/config.yaml
// via Viper.
type GlobalConfig struct {
	TaskIDPrefix   string             `yaml:"task_id_prefix" mapstructure:"task_id_prefix"`
	TaskIDPadWidth int                `yaml:"task_id_pad_width" mapstructure:"task_id_pad_width"`
	DefaultSource  SourceType         `yaml:"default_source" mapstructure:"default_source"`
	Agent          AgentConfig        `yaml:"agent" mapstructure:"agent"`
	Notifications  NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}

package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/taskdeck/pkg/models"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config.yaml: %v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())

	cfg, err := cm.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TaskIDPrefix != "TASK" {
		t.Errorf("TaskIDPrefix = %q, want TASK", cfg.TaskIDPrefix)
	}
	if cfg.TaskIDPadWidth != 3 {
		t.Errorf("TaskIDPadWidth = %d, want 3", cfg.TaskIDPadWidth)
	}
	if cfg.DefaultSource != models.SourceManual {
		t.Errorf("DefaultSource = %q, want manual", cfg.DefaultSource)
	}
	if cfg.Agent.Command != "auto-agent" {
		t.Errorf("Agent.Command = %q, want auto-agent", cfg.Agent.Command)
	}
	if cfg.Notifications.Alerts.StuckMinutes != 30 {
		t.Errorf("StuckMinutes = %d, want 30", cfg.Notifications.Alerts.StuckMinutes)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `task_id:
  prefix: DECK
  pad_width: 5
defaults:
  source: automated
agent:
  command: my-agent
  default_args: ["--verbose"]
  start_timeout_seconds: 60
notifications:
  enabled: true
  slack_webhook_url: https://hooks.slack.com/services/T/B/x
  alerts:
    stuck_minutes: 45
    question_minutes: 15
`)

	cm := NewConfigurationManager(dir)
	cfg, err := cm.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TaskIDPrefix != "DECK" {
		t.Errorf("TaskIDPrefix = %q, want DECK", cfg.TaskIDPrefix)
	}
	if cfg.TaskIDPadWidth != 5 {
		t.Errorf("TaskIDPadWidth = %d, want 5", cfg.TaskIDPadWidth)
	}
	if cfg.DefaultSource != models.SourceAutomated {
		t.Errorf("DefaultSource = %q, want automated", cfg.DefaultSource)
	}
	if cfg.Agent.Command != "my-agent" {
		t.Errorf("Agent.Command = %q", cfg.Agent.Command)
	}
	if len(cfg.Agent.DefaultArgs) != 1 || cfg.Agent.DefaultArgs[0] != "--verbose" {
		t.Errorf("Agent.DefaultArgs = %v", cfg.Agent.DefaultArgs)
	}
	if cfg.Agent.StartTimeoutSeconds != 60 {
		t.Errorf("StartTimeoutSeconds = %d, want 60", cfg.Agent.StartTimeoutSeconds)
	}
	if !cfg.Notifications.Enabled {
		t.Error("Notifications.Enabled = false, want true")
	}
	if cfg.Notifications.Alerts.StuckMinutes != 45 || cfg.Notifications.Alerts.QuestionMinutes != 15 {
		t.Errorf("Alerts = %+v", cfg.Notifications.Alerts)
	}
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "task_id:\n  prefix: OPS\n")

	cm := NewConfigurationManager(dir)
	cfg, err := cm.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TaskIDPrefix != "OPS" {
		t.Errorf("TaskIDPrefix = %q, want OPS", cfg.TaskIDPrefix)
	}
	if cfg.TaskIDPadWidth != 3 {
		t.Errorf("TaskIDPadWidth = %d, want default 3", cfg.TaskIDPadWidth)
	}
	if cfg.Agent.Command != "auto-agent" {
		t.Errorf("Agent.Command = %q, want default auto-agent", cfg.Agent.Command)
	}
}

func TestLoadConfigExplicitZeroPadWidth(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "task_id:\n  pad_width: 0\n")

	cm := NewConfigurationManager(dir)
	cfg, err := cm.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TaskIDPadWidth != 0 {
		t.Errorf("TaskIDPadWidth = %d, want explicit 0", cfg.TaskIDPadWidth)
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "task_id: [unclosed\n")

	cm := NewConfigurationManager(dir)
	if _, err := cm.LoadConfig(); err == nil {
		t.Fatal("expected error for malformed config.yaml")
	}
}

func TestValidateConfig(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())

	tests := []struct {
		name    string
		mutate  func(*models.GlobalConfig)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *models.GlobalConfig) {},
		},
		{
			name:    "empty prefix",
			mutate:  func(cfg *models.GlobalConfig) { cfg.TaskIDPrefix = "" },
			wantErr: "task_id.prefix must not be empty",
		},
		{
			name:    "lowercase prefix",
			mutate:  func(cfg *models.GlobalConfig) { cfg.TaskIDPrefix = "task" },
			wantErr: "must match [A-Z0-9]{1,10}",
		},
		{
			name:    "pad width out of range",
			mutate:  func(cfg *models.GlobalConfig) { cfg.TaskIDPadWidth = 11 },
			wantErr: "pad_width 11 is invalid",
		},
		{
			name:    "unknown source",
			mutate:  func(cfg *models.GlobalConfig) { cfg.DefaultSource = "robot" },
			wantErr: "defaults.source",
		},
		{
			name:    "empty agent command",
			mutate:  func(cfg *models.GlobalConfig) { cfg.Agent.Command = "" },
			wantErr: "agent.command must not be empty",
		},
		{
			name: "notifications enabled without webhook",
			mutate: func(cfg *models.GlobalConfig) {
				cfg.Notifications.Enabled = true
				cfg.Notifications.SlackWebhookURL = ""
			},
			wantErr: "slack_webhook_url must be set",
		},
		{
			name:    "negative stuck threshold",
			mutate:  func(cfg *models.GlobalConfig) { cfg.Notifications.Alerts.StuckMinutes = -1 },
			wantErr: "stuck_minutes must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultGlobalConfig()
			tt.mutate(cfg)
			err := cm.ValidateConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateConfig: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfigCollectsAllProblems(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())
	cfg := defaultGlobalConfig()
	cfg.TaskIDPrefix = ""
	cfg.Agent.Command = ""

	err := cm.ValidateConfig(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "task_id.prefix") || !strings.Contains(msg, "agent.command") {
		t.Errorf("error should list both problems, got %q", msg)
	}
}

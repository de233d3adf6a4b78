package types

import "time"

// AlertLevel is the severity of an alert.
type AlertLevel string

// AlertLevel values.
const (
	AlertLevelError   AlertLevel = "error"
	AlertLevelWarning AlertLevel = "warning"
	AlertLevelInfo    AlertLevel = "info"
)

// AlertType selects an alert sink.
type AlertType string

// AlertType values.
const (
	AlertConsole AlertType = "console"
	AlertWebhook AlertType = "webhook"
	AlertFile    AlertType = "file"
)

// AlertConfig configures one alert sink.
type AlertConfig struct {
	Type AlertType `yaml:"type" json:"type"`
	URL  string    `yaml:"url,omitempty" json:"url,omitempty"`
	Path string    `yaml:"path,omitempty" json:"path,omitempty"`
}

// Alert describes a notable integration outcome.
type Alert struct {
	Level     AlertLevel        `json:"level"`
	Project   string            `json:"project"`
	Message   string            `json:"message"`
	Status    IntegrationStatus `json:"status,omitempty"`
	BuildID   string            `json:"buildId,omitempty"`
	Source    string            `json:"source,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

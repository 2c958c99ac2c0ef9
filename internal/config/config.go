package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	// Storage
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// Recognition engine
	EngineType     string  `envconfig:"ENGINE_TYPE" default:"embedded"`
	MatchThreshold float64 `envconfig:"MATCH_THRESHOLD" default:"0.8"`
	AWSRegion      string  `envconfig:"AWS_REGION" default:"us-east-1"`
	CollectionID   string  `envconfig:"REKOGNITION_COLLECTION" default:"doorwatch"`

	// Frame source
	FrameDir         string        `envconfig:"FRAME_DIR" default:"./frames"`
	StreamFrameDelay time.Duration `envconfig:"STREAM_FRAME_DELAY" default:"100ms"`

	// Recognition pipeline
	RecognitionInterval time.Duration `envconfig:"RECOGNITION_INTERVAL" default:"2s"`
	NotifyCooldown      time.Duration `envconfig:"NOTIFY_COOLDOWN" default:"30s"`

	// Notifications
	WebhookURL    string `envconfig:"WEBHOOK_URL"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// NotificationsEnabled reports whether an outbound webhook is configured.
// Without a URL the dispatcher runs but drops every message.
func (c *Config) NotificationsEnabled() bool {
	return c.WebhookURL != ""
}

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name: "loads with explicit vars",
			envVars: map[string]string{
				"PORT":                 "9090",
				"ENV":                  "production",
				"DATA_DIR":             "/var/lib/doorwatch",
				"ENGINE_TYPE":          "rekognition",
				"WEBHOOK_URL":          "https://hooks.example.com/abc",
				"RECOGNITION_INTERVAL": "5s",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 9090 &&
					c.Environment == "production" &&
					c.DataDir == "/var/lib/doorwatch" &&
					c.EngineType == "rekognition" &&
					c.WebhookURL == "https://hooks.example.com/abc" &&
					c.RecognitionInterval == 5*time.Second
			},
		},
		{
			name:    "uses defaults when vars missing",
			envVars: map[string]string{},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 8080 &&
					c.Environment == "development" &&
					c.EngineType == "embedded" &&
					c.RecognitionInterval == 2*time.Second &&
					c.NotifyCooldown == 30*time.Second &&
					c.MatchThreshold == 0.8
			},
		},
		{
			name: "fails on malformed duration",
			envVars: map[string]string{
				"NOTIFY_COOLDOWN": "not-a-duration",
			},
			wantErr: true,
			check:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed, got: %+v", cfg)
			}
		})
	}
}

func TestConfig_NotificationsEnabled(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"configured", "https://hooks.example.com/abc", true},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{WebhookURL: tt.url}
			if got := c.NotificationsEnabled(); got != tt.want {
				t.Errorf("NotificationsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

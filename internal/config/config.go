package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the call relay configuration loaded from environment variables.
type Config struct {
	Port string

	// Public hostname used to build Twilio callback URLs (no scheme).
	PublicHost string

	// Icecast (or any HTTP audio) source bridged into waiting calls.
	StreamURL string

	// Asset played to the caller before the stream connects.
	GreetingURL string

	// Twilio configuration
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioNumber     string

	// Phone number that receives SMS alerts. Empty disables SMS alerts.
	AlertSMSTo string

	// Slack configuration. Empty token disables chat notifications.
	SlackBotToken string
	SlackChannel  string

	// How long to wait for a responder before the caller goes to voicemail.
	RingTimeout time.Duration
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		Port:             getEnvOrDefault("PORT", "3000"),
		PublicHost:       getEnvOrDefault("PUBLIC_HOST", ""),
		StreamURL:        getEnvOrDefault("STREAM_URL", ""),
		GreetingURL:      getEnvOrDefault("GREETING_URL", "https://ridgelineradio.org/PhoneAnswer.mp3"),
		TwilioAccountSID: getEnvOrDefault("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnvOrDefault("TWILIO_AUTH_TOKEN", ""),
		TwilioNumber:     getEnvOrDefault("TWILIO_NUMBER", ""),
		AlertSMSTo:       getEnvOrDefault("ALERT_SMS_TO", ""),
		SlackBotToken:    getEnvOrDefault("SLACK_BOT_TOKEN", ""),
		SlackChannel:     getEnvOrDefault("SLACK_CHANNEL_ID", ""),
		RingTimeout:      time.Duration(getEnvAsIntOrDefault("RING_TIMEOUT", 180)) * time.Second,
	}
}

// Validate checks that the credentials required to construct the Twilio
// client are present. Optional integrations (Slack, SMS alerts) degrade
// instead of failing here.
func (c *Config) Validate() error {
	if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" {
		return fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required")
	}
	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

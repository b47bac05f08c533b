package config

// NotifxConfig selects the email transport and the sender identity used for
// sign-in codes and welcome mail.
type NotifxConfig struct {
	Provider    string // "ses" or "console"
	FromAddress string
	FromName    string
	AWSRegion   string
	// ConfigurationSet is passed to SES on every send when set.
	ConfigurationSet string
	AppURL           string
}

func loadNotifxConfig() NotifxConfig {
	cfg := NotifxConfig{
		Provider:         getEnv("NOTIFX_PROVIDER", "console"),
		FromAddress:      getEnv("EMAIL_FROM_ADDRESS", "noreply@relay.app"),
		FromName:         getEnv("EMAIL_FROM_NAME", "Relay"),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		ConfigurationSet: getEnv("SES_CONFIGURATION_SET", ""),
		AppURL:           getEnv("APP_URL", "http://localhost:3000"),
	}
	// NOTIFX_* names take precedence over the shared ones.
	cfg.FromAddress = getEnv("NOTIFX_FROM_ADDRESS", cfg.FromAddress)
	cfg.FromName = getEnv("NOTIFX_FROM_NAME", cfg.FromName)
	cfg.AWSRegion = getEnv("NOTIFX_AWS_REGION", cfg.AWSRegion)
	return cfg
}

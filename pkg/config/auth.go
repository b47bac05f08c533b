package config

import "time"

// AuthConfig groups everything the passwordless flow needs.
type AuthConfig struct {
	JWT        JWTConfig
	OTP        OTPConfig
	Session    SessionConfig
	Onboarding OnboardingConfig
	Provider   ProviderConfig
}

// JWTConfig configures the identity provider's session tokens.
type JWTConfig struct {
	SecretKey  string
	Issuer     string
	SessionTTL time.Duration
}

// OTPConfig configures one-time code issuance.
type OTPConfig struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
	// ResendCooldown is enforced by the provider when > 0. Zero disables it.
	ResendCooldown time.Duration
	// ReplayGrace keeps a verified code acceptable for a short while. Zero makes codes single-use.
	ReplayGrace time.Duration
	BcryptCost  int
	Store       string
}

// SessionConfig configures provider sessions and the session cookie.
type SessionConfig struct {
	Store      string
	CookieName string
	// CacheTTL bounds how long a hydrated session is served from memory.
	CacheTTL time.Duration
}

// OnboardingConfig configures the signup/login orchestrator.
type OnboardingConfig struct {
	PendingStore              string
	PendingIntentTTL          time.Duration
	ResendHint                time.Duration
	RecoverSignupFromMetadata bool
	WelcomeEmail              bool
	CompanySetupPath          string
	DashboardPath             string
	DeviceCookieName          string
	PhoneRegion               string
}

// ProviderConfig configures retries around the identity provider.
type ProviderConfig struct {
	DispatchRetries int
	RetryBaseDelay  time.Duration
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET", ""),
			Issuer:     getEnv("JWT_ISSUER", "relay"),
			SessionTTL: getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		},
		OTP: OTPConfig{
			Length:         getEnvInt("OTP_LENGTH", 6),
			TTL:            getEnvDuration("OTP_TTL", 10*time.Minute),
			MaxAttempts:    getEnvInt("OTP_MAX_ATTEMPTS", 5),
			ResendCooldown: getEnvDuration("OTP_RESEND_COOLDOWN", 0),
			ReplayGrace:    getEnvDuration("OTP_REPLAY_GRACE", 2*time.Minute),
			BcryptCost:     getEnvInt("OTP_BCRYPT_COST", 10),
			Store:          getEnv("OTP_STORE", "redis"),
		},
		Session: SessionConfig{
			Store:      getEnv("SESSION_STORE", "redis"),
			CookieName: getEnv("SESSION_COOKIE_NAME", "access_token"),
			CacheTTL:   getEnvDuration("SESSION_CACHE_TTL", 5*time.Minute),
		},
		Onboarding: OnboardingConfig{
			PendingStore:              getEnv("PENDING_STORE", "redis"),
			PendingIntentTTL:          getEnvDuration("PENDING_INTENT_TTL", 24*time.Hour),
			ResendHint:                getEnvDuration("RESEND_HINT", 60*time.Second),
			RecoverSignupFromMetadata: getEnvBool("AUTH_RECOVER_SIGNUP_FROM_METADATA", true),
			WelcomeEmail:              getEnvBool("WELCOME_EMAIL_ENABLED", true),
			CompanySetupPath:          getEnv("COMPANY_SETUP_PATH", "/onboarding/company"),
			DashboardPath:             getEnv("DASHBOARD_PATH", "/dashboard"),
			DeviceCookieName:          getEnv("DEVICE_COOKIE_NAME", "relay_device"),
			PhoneRegion:               getEnv("PHONE_DEFAULT_REGION", "US"),
		},
		Provider: ProviderConfig{
			DispatchRetries: getEnvInt("IDP_DISPATCH_RETRIES", 2),
			RetryBaseDelay:  getEnvDuration("IDP_RETRY_BASE_DELAY", 200*time.Millisecond),
		},
	}
}

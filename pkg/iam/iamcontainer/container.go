package iamcontainer

import (
	"github.com/Abraxas-365/relay/pkg/config"
	"github.com/Abraxas-365/relay/pkg/iam/auth"
	"github.com/Abraxas-365/relay/pkg/iam/auth/authapi"
	"github.com/Abraxas-365/relay/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/relay/pkg/iam/auth/authsrv"
	"github.com/Abraxas-365/relay/pkg/iam/company/companyinfra"
	"github.com/Abraxas-365/relay/pkg/iam/company/companysrv"
	"github.com/Abraxas-365/relay/pkg/iam/employer/employerinfra"
	"github.com/Abraxas-365/relay/pkg/iam/identity"
	"github.com/Abraxas-365/relay/pkg/iam/identity/identityinfra"
	"github.com/Abraxas-365/relay/pkg/iam/identity/identitysrv"
	"github.com/Abraxas-365/relay/pkg/iam/otp"
	"github.com/Abraxas-365/relay/pkg/iam/otp/otpinfra"
	"github.com/Abraxas-365/relay/pkg/iam/otp/otpsrv"
	"github.com/Abraxas-365/relay/pkg/iam/pending"
	"github.com/Abraxas-365/relay/pkg/iam/pending/pendinginfra"
	"github.com/Abraxas-365/relay/pkg/iam/session"
	"github.com/Abraxas-365/relay/pkg/jobx"
	"github.com/Abraxas-365/relay/pkg/logx"
	"github.com/Abraxas-365/relay/pkg/notifx"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Deps: external dependencies the IAM module requires.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Cfg   *config.Config

	// Email delivers sign-in codes and welcome emails.
	Email *notifx.Client

	// Jobs is optional. Without it no welcome email is scheduled.
	Jobs jobx.JobEnqueuer
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// ---------------------------------------------------------------------------

type Container struct {
	AuthService *authsrv.AuthService
	Provider    identity.Provider
	Sessions    *session.Holder

	// Handlers and middleware, needed by cmd/ to register routes
	AuthHandlers   *authapi.AuthHandlers
	AuthMiddleware *auth.Middleware

	// WelcomeHandler must be registered on the job worker.
	WelcomeHandler *authinfra.WelcomeEmailHandler
}

// ---------------------------------------------------------------------------
// New: constructs the IAM dependency graph.
// Order: stores, provider, domain services, handlers.
// ---------------------------------------------------------------------------

func New(deps Deps) *Container {
	logx.Info("🔧 Initializing IAM container...")

	cfg := deps.Cfg.Auth
	c := &Container{}

	// ── Repositories ─────────────────────────────────────────────────────

	employerRepo := employerinfra.NewPostgresEmployerRepository(deps.DB)
	companyRepo := companyinfra.NewPostgresCompanyRepository(deps.DB)
	identityRepo := identityinfra.NewPostgresIdentityRepository(deps.DB)

	otpRepo := otpRepository(deps.Redis, cfg.OTP.Store)
	sessionRepo := sessionRepository(deps.Redis, cfg.Session.Store)
	pendingStore := pendingStore(deps.Redis, cfg.Onboarding)

	// ── Identity provider ────────────────────────────────────────────────

	otpService := otpsrv.NewOTPService(otpRepo, otpinfra.NewEmailNotifier(deps.Email), cfg.OTP)

	otpProvider := identitysrv.NewOTPProvider(
		identityRepo,
		otpService,
		sessionRepo,
		identity.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.Issuer),
		cfg.JWT.SessionTTL,
	)
	c.Provider = identity.NewRetryingProvider(otpProvider, cfg.Provider.DispatchRetries, cfg.Provider.RetryBaseDelay)

	c.Sessions = session.NewHolder(c.Provider, employerRepo, companyRepo, cfg.Session.CacheTTL)

	// ── Domain services ──────────────────────────────────────────────────

	redirect := auth.RedirectPolicy{
		CompanySetupPath: cfg.Onboarding.CompanySetupPath,
		DashboardPath:    cfg.Onboarding.DashboardPath,
	}

	c.AuthService = authsrv.NewAuthService(
		c.Provider,
		employerRepo,
		companyRepo,
		pendingStore,
		c.Sessions,
		companysrv.NewCompanyService(companyRepo, employerRepo),
		authinfra.NewLogxAuditService(),
		authsrv.Config{
			Redirect:                  redirect,
			ResendHint:                cfg.Onboarding.ResendHint,
			RecoverSignupFromMetadata: cfg.Onboarding.RecoverSignupFromMetadata,
			PhoneRegion:               cfg.Onboarding.PhoneRegion,
		},
	)

	if cfg.Onboarding.WelcomeEmail && deps.Jobs != nil {
		c.AuthService.WithWelcomeNotifier(authinfra.NewWelcomeEnqueuer(deps.Jobs))
		c.WelcomeHandler = authinfra.NewWelcomeEmailHandler(deps.Email, deps.Cfg.Notifx.AppURL, redirect)
		logx.Info("  ✅ Welcome emails enabled")
	}

	// ── Handlers and middleware ──────────────────────────────────────────

	c.AuthMiddleware = auth.NewMiddleware(c.Sessions, auth.CookieConfig{
		DeviceName:  cfg.Onboarding.DeviceCookieName,
		SessionName: cfg.Session.CookieName,
		Domain:      deps.Cfg.Server.CookieDomain,
		Secure:      deps.Cfg.Server.CookieSecure,
	})
	c.AuthHandlers = authapi.NewAuthHandlers(c.AuthService, c.AuthMiddleware)

	logx.Info("✅ IAM container initialized")
	return c
}

func otpRepository(rdb *redis.Client, store string) otp.Repository {
	if store == "redis" {
		logx.Info("  ✅ Using Redis OTP store")
		return otpinfra.NewRedisOTPRepository(rdb)
	}
	logx.Warn("  ⚠️  Using in-memory OTP store (not recommended for production)")
	return otpinfra.NewInMemoryOTPRepository()
}

func sessionRepository(rdb *redis.Client, store string) identity.SessionRepository {
	if store == "redis" {
		logx.Info("  ✅ Using Redis session store")
		return identityinfra.NewRedisSessionRepository(rdb)
	}
	logx.Warn("  ⚠️  Using in-memory session store (not recommended for production)")
	return identityinfra.NewInMemorySessionRepository()
}

func pendingStore(rdb *redis.Client, cfg config.OnboardingConfig) pending.Store {
	if cfg.PendingStore == "redis" {
		logx.Info("  ✅ Using Redis pending-intent store")
		return pendinginfra.NewRedisStore(rdb, cfg.PendingIntentTTL)
	}
	logx.Warn("  ⚠️  Using in-memory pending-intent store (not recommended for production)")
	return pendinginfra.NewMemoryStore()
}

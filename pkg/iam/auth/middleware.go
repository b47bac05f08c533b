package auth

import (
	"strings"
	"time"

	"github.com/Abraxas-365/relay/pkg/iam/session"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/Abraxas-365/relay/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const deviceCookieMaxAge = 365 * 24 * time.Hour

// CookieConfig names and scopes the auth cookies.
type CookieConfig struct {
	DeviceName  string
	SessionName string
	Domain      string
	Secure      bool
}

// Middleware resolves the device and session of each request.
type Middleware struct {
	sessions *session.Holder
	cookies  CookieConfig
}

func NewMiddleware(sessions *session.Holder, cookies CookieConfig) *Middleware {
	if cookies.DeviceName == "" {
		cookies.DeviceName = "relay_device"
	}
	if cookies.SessionName == "" {
		cookies.SessionName = "access_token"
	}
	return &Middleware{sessions: sessions, cookies: cookies}
}

// Cookies returns the cookie settings in use.
func (m *Middleware) Cookies() CookieConfig {
	return m.cookies
}

// Device reads the device cookie, issuing a new one on first contact.
func (m *Middleware) Device() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(m.cookies.DeviceName)
		if _, err := uuid.Parse(raw); err != nil {
			raw = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     m.cookies.DeviceName,
				Value:    raw,
				Path:     "/",
				Domain:   m.cookies.Domain,
				Expires:  time.Now().Add(deviceCookieMaxAge),
				Secure:   m.cookies.Secure,
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals(kernel.DeviceContextKey, kernel.NewDeviceID(raw))
		return c.Next()
	}
}

// Session attaches the caller's AuthContext when the request carries a
// usable session token. Requests without one continue anonymously.
func (m *Middleware) Session() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := m.TokenFrom(c)
		if token == "" {
			return c.Next()
		}

		s, err := m.sessions.Get(c.UserContext(), token)
		if err != nil {
			logx.WithError(err).WithField("path", c.Path()).Warn("session lookup failed, continuing anonymously")
			return c.Next()
		}
		if s != nil {
			c.Locals(kernel.AuthContextKey, s.AuthContext())
		}
		return c.Next()
	}
}

// RequireSession rejects requests without an AuthContext.
func (m *Middleware) RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !AuthFrom(c).IsValid() {
			res := Fail(ErrUnauthenticated())
			return c.Status(res.Status).JSON(res)
		}
		return c.Next()
	}
}

// TokenFrom reads the session token from the Authorization header, falling
// back to the session cookie.
func (m *Middleware) TokenFrom(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return parts[1]
		}
	}
	return c.Cookies(m.cookies.SessionName)
}

// SetSessionCookie stores token in the session cookie until expiresAt.
func (m *Middleware) SetSessionCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookies.SessionName,
		Value:    token,
		Path:     "/",
		Domain:   m.cookies.Domain,
		Expires:  expiresAt,
		Secure:   m.cookies.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func (m *Middleware) ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookies.SessionName,
		Value:    "",
		Path:     "/",
		Domain:   m.cookies.Domain,
		Expires:  time.Unix(0, 0),
		Secure:   m.cookies.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// AuthFrom returns the AuthContext set by Session, or nil.
func AuthFrom(c *fiber.Ctx) *kernel.AuthContext {
	ac, _ := c.Locals(kernel.AuthContextKey).(*kernel.AuthContext)
	return ac
}

// DeviceFrom returns the DeviceID set by Device.
func DeviceFrom(c *fiber.Ctx) kernel.DeviceID {
	id, _ := c.Locals(kernel.DeviceContextKey).(kernel.DeviceID)
	return id
}

// ClientFrom assembles the Client of a request.
func (m *Middleware) ClientFrom(c *fiber.Ctx) Client {
	return Client{
		DeviceID:     DeviceFrom(c),
		SessionToken: m.TokenFrom(c),
		IP:           c.IP(),
		UserAgent:    c.Get(fiber.HeaderUserAgent),
	}
}

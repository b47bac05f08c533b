package authapi

import (
	"context"

	"github.com/Abraxas-365/relay/pkg/iam/auth"
	"github.com/Abraxas-365/relay/pkg/iam/auth/authsrv"
	"github.com/Abraxas-365/relay/pkg/iam/company/companysrv"
	"github.com/Abraxas-365/relay/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

// AuthHandlers exposes the passwordless flow over HTTP. Every response body
// is an auth.Result.
type AuthHandlers struct {
	service *authsrv.AuthService
	mw      *auth.Middleware
}

func NewAuthHandlers(service *authsrv.AuthService, mw *auth.Middleware) *AuthHandlers {
	return &AuthHandlers{service: service, mw: mw}
}

// RegisterRoutes mounts the auth and onboarding routes on router.
func (h *AuthHandlers) RegisterRoutes(router fiber.Router) {
	a := router.Group("/auth", h.mw.Device(), h.mw.Session())
	a.Post("/passwordless/signup", h.Signup)
	a.Post("/passwordless/login", h.Login)
	a.Post("/passwordless/verify", h.Verify)
	a.Post("/passwordless/resend", h.Resend)
	a.Get("/passwordless/state", h.State)
	a.Post("/logout", h.Logout)
	a.Get("/me", h.Me)

	onboarding := router.Group("/api/v1/onboarding", h.mw.Device(), h.mw.Session(), h.mw.RequireSession())
	onboarding.Post("/company", h.CompleteCompany)
}

// Signup handles POST /auth/passwordless/signup
func (h *AuthHandlers) Signup(c *fiber.Ctx) error {
	var req auth.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	return respond(c, h.service.Signup(requestContext(c), h.mw.ClientFrom(c), req))
}

// Login handles POST /auth/passwordless/login
func (h *AuthHandlers) Login(c *fiber.Ctx) error {
	var req auth.EmailRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	return respond(c, h.service.Login(requestContext(c), h.mw.ClientFrom(c), req))
}

// Verify handles POST /auth/passwordless/verify and sets the session cookie
// on success.
func (h *AuthHandlers) Verify(c *fiber.Ctx) error {
	var req auth.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	res := h.service.VerifyOTP(requestContext(c), h.mw.ClientFrom(c), req)
	if v, ok := res.Data.(auth.Verified); ok && res.Success {
		h.mw.SetSessionCookie(c, v.SessionToken, v.ExpiresAt)
	}
	return respond(c, res)
}

// Resend handles POST /auth/passwordless/resend
func (h *AuthHandlers) Resend(c *fiber.Ctx) error {
	var req auth.EmailRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	return respond(c, h.service.ResendOTP(requestContext(c), h.mw.ClientFrom(c), req))
}

// State handles GET /auth/passwordless/state
func (h *AuthHandlers) State(c *fiber.Ctx) error {
	return respond(c, h.service.FlowStatus(requestContext(c), h.mw.ClientFrom(c)))
}

// Logout handles POST /auth/logout
func (h *AuthHandlers) Logout(c *fiber.Ctx) error {
	res := h.service.Logout(requestContext(c), h.mw.ClientFrom(c))
	h.mw.ClearSessionCookie(c)
	return respond(c, res)
}

// Me handles GET /auth/me
func (h *AuthHandlers) Me(c *fiber.Ctx) error {
	return respond(c, h.service.CurrentUser(requestContext(c), h.mw.ClientFrom(c)))
}

// CompleteCompany handles POST /api/v1/onboarding/company
func (h *AuthHandlers) CompleteCompany(c *fiber.Ctx) error {
	var req companysrv.CreateCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	return respond(c, h.service.CompleteCompany(requestContext(c), h.mw.ClientFrom(c), auth.AuthFrom(c), req))
}

func respond(c *fiber.Ctx, res auth.Result) error {
	status := res.Status
	if status == 0 {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(res)
}

func badBody(c *fiber.Ctx, err error) error {
	logx.WithError(err).WithField("path", c.Path()).Debug("unparseable request body")
	return respond(c, auth.Fail(auth.ErrValidationFailed().WithCause(err).WithDetail("reason", "malformed JSON body")))
}

func requestContext(c *fiber.Ctx) context.Context {
	id := c.GetRespHeader(fiber.HeaderXRequestID)
	if id == "" {
		id = c.Get(fiber.HeaderXRequestID)
	}
	if id == "" {
		return c.UserContext()
	}
	return logx.ContextWithRequestID(c.UserContext(), id)
}

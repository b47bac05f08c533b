package otpinfra

import (
	"context"

	"github.com/Abraxas-365/relay/pkg/iam/otp"
	"github.com/Abraxas-365/relay/pkg/notifx"
)

// EmailNotifier delivers codes with the sign-in template.
type EmailNotifier struct {
	client *notifx.Client
}

var _ otp.NotificationService = (*EmailNotifier)(nil)

// NewEmailNotifier expects notifx.RegisterRelayTemplates to have run on client.
func NewEmailNotifier(client *notifx.Client) *EmailNotifier {
	return &EmailNotifier{client: client}
}

// SendOTP implements otp.NotificationService.
func (n *EmailNotifier) SendOTP(ctx context.Context, contact string, code string, ttl string) error {
	return n.client.SendTemplatedEmail(ctx, notifx.TemplateSignInCode, notifx.SignInCodeData{
		Code:      code,
		ExpiresIn: ttl,
	}, []string{contact})
}

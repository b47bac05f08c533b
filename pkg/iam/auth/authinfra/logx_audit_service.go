package authinfra

import (
	"context"

	"github.com/Abraxas-365/relay/pkg/iam/auth"
	"github.com/Abraxas-365/relay/pkg/iam/pending"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/Abraxas-365/relay/pkg/logx"
)

// LogxAuditService implements auth.AuditService using structured logx logging.
type LogxAuditService struct{}

var _ auth.AuditService = (*LogxAuditService)(nil)

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{}
}

func (s *LogxAuditService) LogCodeDispatched(ctx context.Context, email string, kind pending.IntentKind, success bool, client auth.Client) {
	event(ctx, "code_dispatched", client, logx.Fields{
		"email":   email,
		"kind":    kind,
		"success": success,
	}).Info("Audit: code dispatched")
}

func (s *LogxAuditService) LogVerification(ctx context.Context, email string, success bool, reason string, client auth.Client) {
	fields := logx.Fields{
		"email":   email,
		"success": success,
	}
	if reason != "" {
		fields["reason"] = reason
	}
	event(ctx, "otp_verification", client, fields).Info("Audit: OTP verification")
}

func (s *LogxAuditService) LogAccountCreated(ctx context.Context, employerID kernel.EmployerID, email string, recovered bool, client auth.Client) {
	event(ctx, "account_created", client, logx.Fields{
		"employer_id": employerID,
		"email":       email,
		"recovered":   recovered,
	}).Info("Audit: account created")
}

func (s *LogxAuditService) LogLogin(ctx context.Context, employerID kernel.EmployerID, client auth.Client) {
	event(ctx, "login", client, logx.Fields{
		"employer_id": employerID,
	}).Info("Audit: login")
}

func (s *LogxAuditService) LogLogout(ctx context.Context, employerID kernel.EmployerID, client auth.Client) {
	event(ctx, "logout", client, logx.Fields{
		"employer_id": employerID,
	}).Info("Audit: logout")
}

func (s *LogxAuditService) LogCompanyLinked(ctx context.Context, employerID kernel.EmployerID, companyID kernel.CompanyID, client auth.Client) {
	event(ctx, "company_linked", client, logx.Fields{
		"employer_id": employerID,
		"company_id":  companyID,
	}).Info("Audit: company linked")
}

func event(ctx context.Context, name string, client auth.Client, fields logx.Fields) *logx.Entry {
	fields["audit_event"] = name
	fields["device_id"] = client.DeviceID
	fields["ip"] = client.IP
	if client.UserAgent != "" {
		fields["user_agent"] = client.UserAgent
	}
	return logx.WithContext(ctx).WithFields(fields)
}

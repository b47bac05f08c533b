package authinfra

import (
	"context"
	"strings"

	"github.com/Abraxas-365/relay/pkg/iam/auth"
	"github.com/Abraxas-365/relay/pkg/jobx"
	"github.com/Abraxas-365/relay/pkg/logx"
	"github.com/Abraxas-365/relay/pkg/notifx"
)

// WelcomeEmailHandler sends the welcome email for auth.JobTypeWelcome jobs.
type WelcomeEmailHandler struct {
	email    *notifx.Client
	appURL   string
	redirect auth.RedirectPolicy
}

func NewWelcomeEmailHandler(email *notifx.Client, appURL string, redirect auth.RedirectPolicy) *WelcomeEmailHandler {
	return &WelcomeEmailHandler{
		email:    email,
		appURL:   strings.TrimRight(appURL, "/"),
		redirect: redirect,
	}
}

// Register binds the handler on the job client.
func (h *WelcomeEmailHandler) Register(jobs *jobx.Client) {
	jobs.Register(auth.JobTypeWelcome, h.Handle)
}

// Handle implements jobx.HandlerFunc.
func (h *WelcomeEmailHandler) Handle(ctx context.Context, job *jobx.JobInfo) error {
	var p auth.WelcomePayload
	if err := job.Decode(&p); err != nil {
		return err
	}

	next := auth.RedirectDashboard
	if p.NeedsCompany {
		next = auth.RedirectCompanySetup
	}

	err := h.email.SendTemplatedEmail(ctx, notifx.TemplateWelcome, notifx.WelcomeData{
		FullName:     p.FullName,
		NextStepURL:  h.appURL + h.redirect.Path(next),
		NeedsCompany: p.NeedsCompany,
	}, []string{p.Email})
	if err != nil {
		return err
	}

	logx.WithFields(logx.Fields{
		"job_id":      job.ID,
		"employer_id": p.EmployerID,
	}).Info("welcome email sent")
	return nil
}

// WelcomeEnqueuer queues welcome jobs for the orchestrator.
type WelcomeEnqueuer struct {
	jobs jobx.JobEnqueuer
}

func NewWelcomeEnqueuer(jobs jobx.JobEnqueuer) *WelcomeEnqueuer {
	return &WelcomeEnqueuer{jobs: jobs}
}

// EnqueueWelcome implements authsrv.WelcomeNotifier.
func (w *WelcomeEnqueuer) EnqueueWelcome(ctx context.Context, p auth.WelcomePayload) error {
	job, err := jobx.NewJob(auth.JobTypeWelcome, auth.QueueEmail, p)
	if err != nil {
		return err
	}
	_, err = w.jobs.Enqueue(ctx, job)
	return err
}

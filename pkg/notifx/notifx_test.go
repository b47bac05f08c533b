package notifx_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/notifx"
	"github.com/Abraxas-365/relay/pkg/notifx/notifxconsole"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSender struct{ err error }

func (f failingSender) SendEmail(context.Context, notifx.EmailMessage, ...notifx.Option) error {
	return f.err
}

func newClient(t *testing.T) (*notifx.Client, *notifxconsole.ConsoleProvider) {
	t.Helper()
	provider := notifxconsole.NewConsoleProvider()
	client := notifx.NewClient(provider, "no-reply@relay.test", "Relay")
	require.NoError(t, notifx.RegisterRelayTemplates(client))
	return client, provider
}

func TestSendEmail_DefaultsSender(t *testing.T) {
	client, provider := newClient(t)

	err := client.SendEmail(context.Background(), notifx.EmailMessage{
		To:       []string{"ana@acme.test"},
		Subject:  "hello",
		TextBody: "hi",
	})
	require.NoError(t, err)

	msg, ok := provider.LastTo("ana@acme.test")
	require.True(t, ok)
	assert.Equal(t, "Relay <no-reply@relay.test>", msg.From)
}

func TestSendEmail_RejectsInvalidMessages(t *testing.T) {
	client, _ := newClient(t)

	err := client.SendEmail(context.Background(), notifx.EmailMessage{Subject: "x"})
	assert.True(t, errx.IsCode(err, notifx.ErrInvalidMessage))

	err = client.SendEmail(context.Background(), notifx.EmailMessage{To: []string{"a@b.test"}})
	assert.True(t, errx.IsCode(err, notifx.ErrInvalidMessage))
}

func TestSendTemplatedEmail_SignInCode(t *testing.T) {
	client, provider := newClient(t)

	err := client.SendTemplatedEmail(context.Background(), notifx.TemplateSignInCode,
		notifx.SignInCodeData{Code: "123456", ExpiresIn: "10 minutes"},
		[]string{"ana@acme.test"})
	require.NoError(t, err)

	msg, ok := provider.LastTo("ANA@acme.test")
	require.True(t, ok)
	assert.Contains(t, msg.Subject, "123456")
	assert.Contains(t, msg.TextBody, "10 minutes")
	assert.Contains(t, msg.HTMLBody, "123456")
}

func TestSendTemplatedEmail_EscapesHTML(t *testing.T) {
	client, provider := newClient(t)

	err := client.SendTemplatedEmail(context.Background(), notifx.TemplateWelcome,
		notifx.WelcomeData{FullName: "<b>Ana</b>", NextStepURL: "https://relay.test/onboarding/company", NeedsCompany: true},
		[]string{"ana@acme.test"})
	require.NoError(t, err)

	msg, _ := provider.LastTo("ana@acme.test")
	assert.NotContains(t, msg.HTMLBody, "<b>Ana</b>")
	assert.Contains(t, msg.TextBody, "Finish setting up your company")
}

func TestSendTemplatedEmail_UnknownTemplate(t *testing.T) {
	client, _ := newClient(t)

	err := client.SendTemplatedEmail(context.Background(), "missing", nil, []string{"a@b.test"})
	assert.True(t, errx.IsCode(err, notifx.ErrTemplateNotFound))
}

func TestRegisterTemplate_ParseError(t *testing.T) {
	client, _ := newClient(t)

	err := client.RegisterTemplate("broken", notifx.Template{Subject: "{{.Code"})
	assert.True(t, errx.IsCode(err, notifx.ErrTemplateParse))
}

func TestSendEmail_ProviderErrorPassesThrough(t *testing.T) {
	boom := errors.New("smtp down")
	client := notifx.NewClient(failingSender{err: boom}, "no-reply@relay.test", "")

	err := client.SendEmail(context.Background(), notifx.EmailMessage{To: []string{"a@b.test"}, Subject: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestApplySendOptions(t *testing.T) {
	so := notifx.ApplySendOptions([]notifx.Option{
		notifx.WithTags(map[string]string{"a": "1"}),
		notifx.WithTags(map[string]string{"b": "2"}),
		notifx.WithConfigID("relay-transactional"),
	})
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, so.Tags)
	assert.Equal(t, "relay-transactional", so.ConfigID)
}

type optionRecorder struct{ got notifx.SendOptions }

func (r *optionRecorder) SendEmail(_ context.Context, _ notifx.EmailMessage, opts ...notifx.Option) error {
	r.got = notifx.ApplySendOptions(opts)
	return nil
}

func TestUseOptions_AppliedBeforeCallOptions(t *testing.T) {
	rec := &optionRecorder{}
	client := notifx.NewClient(rec, "no-reply@relay.test", "").
		UseOptions(notifx.WithConfigID("relay-transactional"))

	err := client.SendEmail(context.Background(),
		notifx.EmailMessage{To: []string{"a@b.test"}, Subject: "x"},
		notifx.WithTags(map[string]string{"kind": "test"}))
	require.NoError(t, err)
	assert.Equal(t, "relay-transactional", rec.got.ConfigID)
	assert.Equal(t, "test", rec.got.Tags["kind"])

	err = client.SendEmail(context.Background(),
		notifx.EmailMessage{To: []string{"a@b.test"}, Subject: "x"},
		notifx.WithConfigID("override"))
	require.NoError(t, err)
	assert.Equal(t, "override", rec.got.ConfigID)
}

package notifxses_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/notifx"
	"github.com/Abraxas-365/relay/pkg/notifx/notifxses"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESProvider_BuildsInput(t *testing.T) {
	api := &fakeSES{}
	p := notifxses.NewSESProvider(api, "no-reply@relay.test")

	err := p.SendEmail(context.Background(), notifx.EmailMessage{
		To:       []string{"ana@acme.test"},
		Subject:  "code",
		TextBody: "123456",
	}, notifx.WithTags(map[string]string{"template": "signin_code"}), notifx.WithConfigID("tx"))
	require.NoError(t, err)

	in := api.input
	require.NotNil(t, in)
	assert.Equal(t, "no-reply@relay.test", aws.ToString(in.Source))
	assert.Equal(t, []string{"ana@acme.test"}, in.Destination.ToAddresses)
	assert.Equal(t, "tx", aws.ToString(in.ConfigurationSetName))
	require.Len(t, in.Tags, 1)
	assert.Equal(t, "template", aws.ToString(in.Tags[0].Name))
	assert.Nil(t, in.Message.Body.Html)
	assert.Equal(t, "123456", aws.ToString(in.Message.Body.Text.Data))
}

func TestSESProvider_WrapsFailure(t *testing.T) {
	p := notifxses.NewSESProvider(&fakeSES{err: errors.New("throttled")}, "no-reply@relay.test")

	err := p.SendEmail(context.Background(), notifx.EmailMessage{To: []string{"a@b.test"}, Subject: "x"})
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, notifxses.ErrSendFailed))
	assert.Equal(t, errx.TypeExternal, errx.TypeOf(err))
}

package notifx

// Built-in relay templates.
const (
	TemplateSignInCode = "signin_code"
	TemplateWelcome    = "welcome"
)

// SignInCodeData feeds TemplateSignInCode.
type SignInCodeData struct {
	Code      string
	ExpiresIn string
}

// WelcomeData feeds TemplateWelcome.
type WelcomeData struct {
	FullName     string
	NextStepURL  string
	NeedsCompany bool
}

var relayTemplates = map[string]Template{
	TemplateSignInCode: {
		Subject: "Your Relay sign-in code: {{.Code}}",
		Text: `Your Relay sign-in code is {{.Code}}.

It expires in {{.ExpiresIn}}. If you did not request it, you can ignore this email.`,
		HTML: `<p>Your Relay sign-in code is</p>
<p style="font-size:28px;font-weight:bold;letter-spacing:6px">{{.Code}}</p>
<p>It expires in {{.ExpiresIn}}. If you did not request it, you can ignore this email.</p>`,
	},
	TemplateWelcome: {
		Subject: "Welcome to Relay, {{.FullName}}",
		Text: `Hi {{.FullName}},

Your Relay account is ready.{{if .NeedsCompany}} Finish setting up your company to start posting jobs:{{else}} Jump back in:{{end}}
{{.NextStepURL}}`,
		HTML: `<p>Hi {{.FullName}},</p>
<p>Your Relay account is ready.{{if .NeedsCompany}} Finish setting up your company to start posting jobs.{{end}}</p>
<p><a href="{{.NextStepURL}}">{{if .NeedsCompany}}Set up your company{{else}}Open Relay{{end}}</a></p>`,
	},
}

// RegisterRelayTemplates registers every built-in template on c.
func RegisterRelayTemplates(c *Client) error {
	for name, t := range relayTemplates {
		if err := c.RegisterTemplate(name, t); err != nil {
			return err
		}
	}
	return nil
}

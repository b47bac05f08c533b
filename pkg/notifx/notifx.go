package notifx

import (
	"context"
	"fmt"
)

// EmailSender sends a single email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage, opts ...Option) error
}

// Client is the main entry point for sending notifications.
type Client struct {
	provider  EmailSender
	templates *TemplateRegistry
	from      string
	defaults  []Option
}

// NewClient creates a new notification client. from is used when a message
// carries no sender; name may be empty.
func NewClient(provider EmailSender, fromAddress, fromName string) *Client {
	from := fromAddress
	if fromName != "" && fromAddress != "" {
		from = fmt.Sprintf("%s <%s>", fromName, fromAddress)
	}
	return &Client{
		provider:  provider,
		templates: NewTemplateRegistry(),
		from:      from,
	}
}

// UseOptions installs options applied ahead of the per-call ones on every send.
func (c *Client) UseOptions(opts ...Option) *Client {
	c.defaults = append(c.defaults, opts...)
	return c
}

// SendEmail sends an email through the configured provider.
func (c *Client) SendEmail(ctx context.Context, msg EmailMessage, opts ...Option) error {
	if len(msg.To) == 0 {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "no recipients")
	}
	if msg.Subject == "" {
		return notifxErrors.New(ErrInvalidMessage).WithDetail("reason", "empty subject")
	}
	if msg.From == "" {
		msg.From = c.from
	}
	if len(c.defaults) > 0 {
		opts = append(append([]Option(nil), c.defaults...), opts...)
	}
	return c.provider.SendEmail(ctx, msg, opts...)
}

// RegisterTemplate parses and stores a named template for later use.
func (c *Client) RegisterTemplate(name string, t Template) error {
	return c.templates.Register(name, t)
}

// SendTemplatedEmail renders a template and sends the resulting email to.
func (c *Client) SendTemplatedEmail(ctx context.Context, templateName string, data any, to []string, opts ...Option) error {
	msg := EmailMessage{To: to}
	if err := c.templates.Render(templateName, data, &msg); err != nil {
		return err
	}
	opts = append([]Option{WithTags(map[string]string{"template": templateName})}, opts...)
	return c.SendEmail(ctx, msg, opts...)
}

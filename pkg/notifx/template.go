package notifx

import (
	"bytes"
	htmltemplate "html/template"
	"sync"
	texttemplate "text/template"
)

type compiled struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

// TemplateRegistry stores and renders named email templates.
type TemplateRegistry struct {
	templates map[string]compiled
	mu        sync.RWMutex
}

// NewTemplateRegistry creates a new template registry.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[string]compiled),
	}
}

// Register parses and stores a template by name.
func (r *TemplateRegistry) Register(name string, t Template) error {
	var c compiled
	var err error

	if c.subject, err = texttemplate.New(name + ".subject").Parse(t.Subject); err != nil {
		return notifxErrors.NewWithCause(ErrTemplateParse, err).WithDetail("template", name)
	}
	if t.HTML != "" {
		if c.html, err = htmltemplate.New(name + ".html").Parse(t.HTML); err != nil {
			return notifxErrors.NewWithCause(ErrTemplateParse, err).WithDetail("template", name)
		}
	}
	if t.Text != "" {
		if c.text, err = texttemplate.New(name + ".text").Parse(t.Text); err != nil {
			return notifxErrors.NewWithCause(ErrTemplateParse, err).WithDetail("template", name)
		}
	}

	r.mu.Lock()
	r.templates[name] = c
	r.mu.Unlock()

	return nil
}

// Render executes a named template and fills subject and bodies of msg.
func (r *TemplateRegistry) Render(name string, data any, msg *EmailMessage) error {
	r.mu.RLock()
	c, ok := r.templates[name]
	r.mu.RUnlock()

	if !ok {
		return notifxErrors.New(ErrTemplateNotFound).WithDetail("template", name)
	}

	var buf bytes.Buffer
	if err := c.subject.Execute(&buf, data); err != nil {
		return notifxErrors.NewWithCause(ErrTemplateRender, err).WithDetail("template", name)
	}
	msg.Subject = buf.String()

	if c.html != nil {
		buf.Reset()
		if err := c.html.Execute(&buf, data); err != nil {
			return notifxErrors.NewWithCause(ErrTemplateRender, err).WithDetail("template", name)
		}
		msg.HTMLBody = buf.String()
	}

	if c.text != nil {
		buf.Reset()
		if err := c.text.Execute(&buf, data); err != nil {
			return notifxErrors.NewWithCause(ErrTemplateRender, err).WithDetail("template", name)
		}
		msg.TextBody = buf.String()
	}

	return nil
}

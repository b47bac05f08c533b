package notifxconsole

import (
	"context"
	"strings"
	"sync"

	"github.com/Abraxas-365/relay/pkg/logx"
	"github.com/Abraxas-365/relay/pkg/notifx"
)

const outboxSize = 50

// ConsoleProvider prints emails through logx instead of delivering them and
// keeps the most recent ones in memory. Intended for development and tests.
type ConsoleProvider struct {
	mu     sync.Mutex
	outbox []notifx.EmailMessage
}

// NewConsoleProvider creates a new console email provider.
func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

// SendEmail logs the email details instead of sending it.
func (p *ConsoleProvider) SendEmail(_ context.Context, msg notifx.EmailMessage, opts ...notifx.Option) error {
	so := notifx.ApplySendOptions(opts)

	logx.WithFields(logx.Fields{
		"from":     msg.From,
		"to":       strings.Join(msg.To, ", "),
		"subject":  msg.Subject,
		"template": so.Tags["template"],
	}).Info("📧 notifx/console: email captured (dev mode)")

	if msg.TextBody != "" {
		logx.Debugf("notifx/console: text body:\n%s", msg.TextBody)
	}

	p.mu.Lock()
	p.outbox = append(p.outbox, msg)
	if len(p.outbox) > outboxSize {
		p.outbox = p.outbox[len(p.outbox)-outboxSize:]
	}
	p.mu.Unlock()

	return nil
}

// Outbox returns a copy of the captured messages, oldest first.
func (p *ConsoleProvider) Outbox() []notifx.EmailMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifx.EmailMessage, len(p.outbox))
	copy(out, p.outbox)
	return out
}

// LastTo returns the most recent message addressed to recipient.
func (p *ConsoleProvider) LastTo(recipient string) (notifx.EmailMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.outbox) - 1; i >= 0; i-- {
		for _, to := range p.outbox[i].To {
			if strings.EqualFold(to, recipient) {
				return p.outbox[i], true
			}
		}
	}
	return notifx.EmailMessage{}, false
}

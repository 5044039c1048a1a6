// Package mailer renders templated notification email and hands it to a
// delivery backend.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/config"
)

// Kind names one of the embedded templates.
type Kind string

const (
	KindIssueAssigned       Kind = "issue_assigned"
	KindNewRequest          Kind = "new_request"
	KindRequestApproved     Kind = "request_approved"
	KindRequestDeclined     Kind = "request_declined"
	KindIssueCompleted      Kind = "issue_completed"
	KindMaintenanceReminder Kind = "maintenance_reminder"
	KindPasswordReset       Kind = "password_reset"
	KindTest                Kind = "test"
	KindTestAdmins          Kind = "test_admins"
)

// Data holds every value a template may reference. Unused fields render
// empty.
type Data struct {
	Title          string
	Description    string
	Location       string
	Category       string
	Priority       string
	AssignedBy     string
	ClientName     string
	ClientEmail    string
	ManagerName    string
	Reason         string
	TechnicianName string
	Feedback       string
	AfterImage     string
	Name           string
	NextDate       string
	Frequency      string
	Interval       string
	ResetURL       string
	ExpiresIn      string
	Recipients     string
	Count          int
	Date           string

	SiteName    string
	FrontendURL string
	BackendURL  string
}

// Email is a rendered message ready for delivery.
type Email struct {
	From     string
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// Mailer renders a template and sends it.
type Mailer struct {
	renderer *Renderer
	sender   Sender
	from     string
}

// New builds a Mailer. A config without an SMTP host logs messages instead
// of sending them.
func New(cfg config.MailConfig, logger *zap.Logger) (*Mailer, error) {
	renderer, err := NewRenderer(Site{
		Name:        cfg.SiteName,
		FrontendURL: cfg.FrontendURL,
		BackendURL:  cfg.BackendURL,
	})
	if err != nil {
		return nil, err
	}
	var sender Sender
	if strings.TrimSpace(cfg.Host) == "" {
		sender = NewLogSender(logger)
	} else {
		sender = NewSMTPSender(cfg)
	}
	return NewWithSender(renderer, sender, cfg.From), nil
}

// NewWithSender wires an explicit backend.
func NewWithSender(renderer *Renderer, sender Sender, from string) *Mailer {
	return &Mailer{renderer: renderer, sender: sender, from: from}
}

// Send renders kind with data and delivers it to every recipient in one
// message. Blank and duplicate addresses are dropped.
func (m *Mailer) Send(ctx context.Context, kind Kind, to []string, data Data) error {
	recipients := DedupeAddresses(to)
	if len(recipients) == 0 {
		return fmt.Errorf("mailer: no recipients for %s", kind)
	}
	email, err := m.renderer.Render(kind, data)
	if err != nil {
		return err
	}
	email.From = m.from
	email.To = recipients
	return m.sender.Send(ctx, email)
}

// DedupeAddresses trims, drops empties and removes case-insensitive
// duplicates while keeping first-seen order.
func DedupeAddresses(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, addr := range in {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

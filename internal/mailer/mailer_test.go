package mailer

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/maintenance-service/internal/config"
)

type captureSender struct {
	sent []Email
}

func (c *captureSender) Send(_ context.Context, email Email) error {
	c.sent = append(c.sent, email)
	return nil
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(Site{Name: "MMS", FrontendURL: "http://front/", BackendURL: "http://back"})
	if err != nil {
		t.Fatal(err)
	}
	r.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return r
}

func TestEveryKindRenders(t *testing.T) {
	r := newTestRenderer(t)
	kinds := []Kind{
		KindIssueAssigned, KindNewRequest, KindRequestApproved, KindRequestDeclined,
		KindIssueCompleted, KindMaintenanceReminder, KindPasswordReset, KindTest, KindTestAdmins,
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			email, err := r.Render(kind, Data{Title: "Leak", Name: "Boiler check"})
			if err != nil {
				t.Fatal(err)
			}
			if email.Subject == "" || email.HTMLBody == "" {
				t.Errorf("empty render: %+v", email)
			}
			if strings.Contains(email.TextBody, "<no value>") {
				t.Errorf("unfilled value in %s", email.TextBody)
			}
		})
	}
}

func TestSubjects(t *testing.T) {
	r := newTestRenderer(t)
	tests := []struct {
		kind Kind
		data Data
		want string
	}{
		{KindIssueAssigned, Data{Title: "Leak"}, "New Issue Assigned: Leak"},
		{KindNewRequest, Data{Title: "Leak"}, "New Maintenance Request: Leak"},
		{KindMaintenanceReminder, Data{Name: "Boiler"}, "Maintenance Reminder: Boiler"},
	}
	for _, tc := range tests {
		email, err := r.Render(tc.kind, tc.data)
		if err != nil {
			t.Fatal(err)
		}
		if email.Subject != tc.want {
			t.Errorf("%s subject = %q, want %q", tc.kind, email.Subject, tc.want)
		}
	}
}

func TestRenderSanitizesAndDefaults(t *testing.T) {
	r := newTestRenderer(t)
	email, err := r.Render(KindRequestDeclined, Data{
		Title:       "Door",
		Description: `<script>alert(1)</script> broken`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(email.HTMLBody, "<script>") {
		t.Error("script survived sanitizing")
	}
	if !strings.Contains(email.HTMLBody, "No reason provided") {
		t.Error("missing default reason")
	}
	if !strings.Contains(email.HTMLBody, "<strong>Status:</strong>") {
		t.Error("markdown not converted")
	}
}

func TestMailerSendDedupesRecipients(t *testing.T) {
	capture := &captureSender{}
	m := NewWithSender(newTestRenderer(t), capture, "noreply@example.com")

	err := m.Send(context.Background(), KindTest, []string{"a@x.io", " A@x.io ", "", "b@x.io"}, Data{})
	if err != nil {
		t.Fatal(err)
	}
	if len(capture.sent) != 1 {
		t.Fatalf("sent %d emails", len(capture.sent))
	}
	got := capture.sent[0]
	if len(got.To) != 2 || got.From != "noreply@example.com" {
		t.Errorf("email = %+v", got)
	}

	if err := m.Send(context.Background(), KindTest, []string{" "}, Data{}); err == nil {
		t.Error("expected error for no recipients")
	}
}

func TestSMTPSenderBuildsMultipart(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{Host: "smtp.example.com", Port: 2525, Username: "u", Password: "p"})
	var gotAddr string
	var gotMsg []byte
	s.send = func(addr string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotAddr, gotMsg = addr, msg
		return nil
	}
	err := s.Send(context.Background(), Email{
		From: "f@x.io", To: []string{"t@x.io"}, Subject: "Hi", TextBody: "plain", HTMLBody: "<p>html</p>",
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotAddr != "smtp.example.com:2525" {
		t.Errorf("addr = %s", gotAddr)
	}
	msg := string(gotMsg)
	for _, want := range []string{"Subject: Hi", "multipart/alternative", "text/plain", "<p>html</p>"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

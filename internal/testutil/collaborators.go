package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/maintenance-service/internal/ai"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/mailer"
	"github.com/spec-kit/maintenance-service/internal/payment"
)

// SentMail is one recorded Mailer.Send call.
type SentMail struct {
	Kind mailer.Kind
	To   []string
	Data mailer.Data
}

// Mailer records sends. Err, when set, is returned from every Send.
type Mailer struct {
	mu   sync.Mutex
	Sent []SentMail
	Err  error
}

func (m *Mailer) Send(_ context.Context, kind mailer.Kind, to []string, data mailer.Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{Kind: kind, To: append([]string(nil), to...), Data: data})
	return nil
}

// OfKind returns the recorded sends of one kind.
func (m *Mailer) OfKind(kind mailer.Kind) []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SentMail
	for _, s := range m.Sent {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Dispatcher records published events and forwards them to subscribers
// synchronously.
type Dispatcher struct {
	mu        sync.Mutex
	Published []events.Event
	handlers  map[events.EventType][]events.EventHandler
}

// NewDispatcher constructs a recording dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: map[events.EventType][]events.EventHandler{}}
}

func (d *Dispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.Published = append(d.Published, event)
	handlers := append([]events.EventHandler(nil), d.handlers[event.Type]...)
	d.mu.Unlock()
	for _, h := range handlers {
		_ = h(ctx, event)
	}
	return nil
}

func (d *Dispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *Dispatcher) Drain() {}

// Types returns the published event types in order.
func (d *Dispatcher) Types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.Published))
	for _, e := range d.Published {
		out = append(out, e.Type)
	}
	return out
}

// Model is a scripted ai.Model.
type Model struct {
	mu       sync.Mutex
	Reply    string
	Err      error
	Prompts  []string
	Messages []string
}

func (m *Model) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	return m.Reply, m.Err
}

func (m *Model) Chat(_ context.Context, _ []ai.Message, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, message)
	return m.Reply, m.Err
}

// Gateway is a scripted payment.Gateway.
type Gateway struct {
	mu       sync.Mutex
	Response payment.InitiateResponse
	Err      error
	Requests []payment.InitiateRequest
}

func (g *Gateway) Initiate(_ context.Context, req payment.InitiateRequest) (*payment.InitiateResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Requests = append(g.Requests, req)
	if g.Err != nil {
		return nil, g.Err
	}
	resp := g.Response
	return &resp, nil
}

// Charger returns a fixed simulated charge outcome.
type Charger bool

func (c Charger) Charge() bool { return bool(c) }

// Tokens issues predictable tokens.
type Tokens struct{}

func (Tokens) GenerateToken(userID string, role domain.Role) (string, time.Time, error) {
	return "token-" + userID + "-" + string(role), time.Unix(0, 0).UTC(), nil
}

// FixedClock returns a clock pinned to t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Compile-time checks.
var (
	_ events.Dispatcher = (*Dispatcher)(nil)
	_ ai.Model          = (*Model)(nil)
	_ payment.Gateway   = (*Gateway)(nil)
)

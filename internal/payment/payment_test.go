package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/payment"
)

func TestSignatureRoundTrip(t *testing.T) {
	fields := map[string]any{"transaction_id": "p1", "status": "success", "amount": float64(100)}
	if got := payment.CanonicalString(fields); got != "amount=100&status=success&transaction_id=p1" {
		t.Fatalf("canonical = %q", got)
	}
	fields["signature"] = payment.Sign("s3cret", fields)
	if !payment.VerifySignature("s3cret", fields) {
		t.Error("valid signature rejected")
	}
	fields["status"] = "failed"
	if payment.VerifySignature("s3cret", fields) {
		t.Error("tampered payload accepted")
	}
}

func TestInitiate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions" || r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "gw-1", "status": "pending"})
	}))
	defer srv.Close()

	c := payment.NewPayPackClient(config.PaymentConfig{
		APIURL: srv.URL + "/", APIKey: "key", SecretKey: "sec", CallbackURL: "https://api.example.com/cb",
	})
	resp, err := c.Initiate(context.Background(), payment.InitiateRequest{Amount: 29.99, Phone: "0788", Reference: "pay-1"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.TransactionID != "gw-1" || resp.Status != "pending" {
		t.Errorf("resp = %+v", resp)
	}
	if got["amount"] != float64(30) || got["reference"] != "pay-1" || got["phone"] != "0788" {
		t.Errorf("payload = %v", got)
	}
}

func TestInitiateErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad phone"}`))
	}))
	defer srv.Close()

	tests := []struct {
		name string
		cfg  config.PaymentConfig
		want string
	}{
		{"no credentials", config.PaymentConfig{APIURL: srv.URL}, "credentials"},
		{"localhost callback", config.PaymentConfig{APIURL: srv.URL, APIKey: "k", SecretKey: "s", CallbackURL: "http://localhost/cb"}, "callback"},
		{"gateway rejects", config.PaymentConfig{APIURL: srv.URL, APIKey: "k", SecretKey: "s", CallbackURL: "https://x/cb"}, "bad phone"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := payment.NewPayPackClient(tc.cfg).Initiate(context.Background(), payment.InitiateRequest{Amount: 1})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestIdentifiers(t *testing.T) {
	now := time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC)
	if !regexp.MustCompile(`^TXN-\d+-[A-Z0-9]{9}$`).MatchString(payment.NewTransactionID(now)) {
		t.Error("bad transaction id")
	}
	if !regexp.MustCompile(`^INV-202407-[A-Z0-9]{9}$`).MatchString(payment.NewInvoiceNumber(now)) {
		t.Error("bad invoice number")
	}
	if got := payment.BillingPeriod(now, domain.CycleMonthly); got != "Jul 2024 - Aug 2024" {
		t.Errorf("monthly period = %q", got)
	}
	if got := payment.BillingPeriod(now, domain.CycleYearly); got != "2024 - 2025" {
		t.Errorf("yearly period = %q", got)
	}
}

func TestSimulator(t *testing.T) {
	if !payment.NewSimulator(0.95, func() float64 { return 0.94 }).Charge() {
		t.Error("0.94 should succeed")
	}
	if payment.NewSimulator(0.95, func() float64 { return 0.95 }).Charge() {
		t.Error("0.95 should fail")
	}
}

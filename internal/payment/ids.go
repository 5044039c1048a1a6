package payment

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

const alnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomCode(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alnum)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			out[i] = alnum[i%len(alnum)]
			continue
		}
		out[i] = alnum[idx.Int64()]
	}
	return string(out)
}

// NewTransactionID returns TXN-<unix ms>-<9 upper alphanumerics>.
func NewTransactionID(now time.Time) string {
	return fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), randomCode(9))
}

// NewInvoiceNumber returns INV-YYYYMM-<9 upper alphanumerics>.
func NewInvoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%s-%s", now.Format("200601"), randomCode(9))
}

// BillingPeriod renders the human period an invoice covers.
func BillingPeriod(now time.Time, cycle domain.BillingCycle) string {
	switch cycle {
	case domain.CycleWeekly:
		return now.Format("1/2/2006") + " - " + now.AddDate(0, 0, 7).Format("1/2/2006")
	case domain.CycleMonthly:
		next := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
		return now.Format("Jan 2006") + " - " + next.Format("Jan 2006")
	case domain.CycleYearly:
		return fmt.Sprintf("%d - %d", now.Year(), now.Year()+1)
	}
	return ""
}

// Simulator stands in for a gateway on non-card, non-mobile methods.
type Simulator struct {
	successRate float64
	rand        func() float64
}

// NewSimulator succeeds with the given probability using rnd, which
// returns values in [0,1).
func NewSimulator(successRate float64, rnd func() float64) *Simulator {
	return &Simulator{successRate: successRate, rand: rnd}
}

// Charge reports whether the simulated charge went through.
func (s *Simulator) Charge() bool {
	return s.rand() < s.successRate
}

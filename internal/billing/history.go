// Package billing builds a user's billing history from processor data.
package billing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/gigboard/internal/models"
	"github.com/mmynk/gigboard/internal/payments"
)

// HistoryLimit is how many invoices and how many payment attempts are fetched.
const HistoryLimit = 10

// MinorToDecimal converts minor currency units to decimal units (cents / 100).
func MinorToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// MergeHistory combines paid invoices and failed payment attempts into one
// list, newest first.
//
// Every invoice becomes a succeeded event linking to its document. Only
// attempts whose status is "failed" are kept; they carry no invoice link.
// Events with the same date keep their relative order (invoices before
// attempts).
func MergeHistory(invoices []payments.Invoice, attempts []payments.PaymentAttempt) []models.BillingEvent {
	events := make([]models.BillingEvent, 0, len(invoices)+len(attempts))

	for _, inv := range invoices {
		events = append(events, models.BillingEvent{
			ID:         inv.ID,
			Date:       time.Unix(inv.Created, 0).UTC(),
			Amount:     MinorToDecimal(inv.AmountPaid),
			Status:     models.BillingSucceeded,
			InvoiceURL: invoiceURL(inv),
		})
	}

	for _, att := range attempts {
		if att.Status != payments.AttemptFailed {
			continue
		}
		events = append(events, models.BillingEvent{
			ID:     att.ID,
			Date:   time.Unix(att.Created, 0).UTC(),
			Amount: MinorToDecimal(att.Amount),
			Status: models.BillingFailed,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.After(events[j].Date)
	})

	return events
}

// invoiceURL prefers the PDF, falling back to the hosted page.
func invoiceURL(inv payments.Invoice) *string {
	switch {
	case inv.PDFURL != "":
		return &inv.PDFURL
	case inv.HostedURL != "":
		return &inv.HostedURL
	default:
		return nil
	}
}

package entitlement

import (
	"errors"
	"time"

	"github.com/MrJamesThe3rd/dinherin/internal/account"
)

var errNoLineItems = errors.New("invoice has no line items")

type checkoutSessionObject struct {
	ID              string `json:"id"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

type invoiceObject struct {
	Customer         string  `json:"customer"`
	CustomerEmail    string  `json:"customer_email"`
	CustomerName     *string `json:"customer_name"`
	AmountPaid       *int64  `json:"amount_paid"`
	HostedInvoiceURL string  `json:"hosted_invoice_url"`
	InvoicePDF       string  `json:"invoice_pdf"`
	Lines            struct {
		Data []struct {
			Period struct {
				Start int64 `json:"start"`
				End   int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

// period returns the billing window of the first line item.
func (o *invoiceObject) period() (account.Period, error) {
	if len(o.Lines.Data) == 0 {
		return account.Period{}, errNoLineItems
	}

	p := o.Lines.Data[0].Period

	return account.Period{
		Start: time.Unix(p.Start, 0).UTC(),
		End:   time.Unix(p.End, 0).UTC(),
	}, nil
}

type subscriptionObject struct {
	Customer            string `json:"customer"`
	Status              string `json:"status"`
	CancelAt            *int64 `json:"cancel_at"`
	CanceledAt          *int64 `json:"canceled_at"`
	CancelAtPeriodEnd   bool   `json:"cancel_at_period_end"`
	CancellationDetails *struct {
		Comment  *string `json:"comment"`
		Feedback *string `json:"feedback"`
		Reason   *string `json:"reason"`
	} `json:"cancellation_details"`
}

// cancels reports whether the update carries any cancellation signal. Updates
// without one are plan changes or a withdrawn cancellation.
func (o *subscriptionObject) cancels() bool {
	if o.CancelAt != nil || o.CanceledAt != nil || o.CancelAtPeriodEnd || o.Status == "canceled" {
		return true
	}

	return o.CancellationDetails != nil && o.CancellationDetails.Reason != nil
}

func (o *subscriptionObject) cancellation() account.Cancellation {
	c := account.Cancellation{
		CancelAt:   unixPtr(o.CancelAt),
		CanceledAt: unixPtr(o.CanceledAt),
		Ended:      o.Status == "canceled",
	}

	if d := o.CancellationDetails; d != nil {
		c.Comment = d.Comment
		c.Feedback = d.Feedback
		c.Reason = d.Reason
	}

	return c
}

func (o *subscriptionObject) live() bool {
	return o.Status == "active" || o.Status == "trialing"
}

func unixPtr(sec *int64) *time.Time {
	if sec == nil || *sec == 0 {
		return nil
	}

	t := time.Unix(*sec, 0).UTC()

	return &t
}

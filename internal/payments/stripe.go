// Package payments creates Stripe payment sheets for clinic invoices.
package payments

import (
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/vetcontrol/companion/internal/model"
)

type Config struct {
	SecretKey      string
	PublishableKey string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

// Enabled reports whether Stripe keys are configured.
func (c *Client) Enabled() bool {
	return c.cfg.SecretKey != "" && c.cfg.PublishableKey != ""
}

// PaymentSheet is everything the UI needs to present a Stripe payment sheet.
type PaymentSheet struct {
	ClientSecret   string `json:"client_secret"`
	PublishableKey string `json:"publishable_key"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
}

// CreatePaymentSheet creates a payment intent for an unpaid invoice and
// returns the sheet parameters.
func (c *Client) CreatePaymentSheet(inv *model.Invoice) (*PaymentSheet, error) {
	if inv.TotalCents <= 0 {
		return nil, fmt.Errorf("invoice %s has no payable amount", inv.ID)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(inv.TotalCents),
		Currency: stripe.String(inv.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String(inv.Description),
	}
	params.AddMetadata("invoice_id", inv.ID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return &PaymentSheet{
		ClientSecret:   intent.ClientSecret,
		PublishableKey: c.cfg.PublishableKey,
		AmountCents:    inv.TotalCents,
		Currency:       inv.Currency,
	}, nil
}

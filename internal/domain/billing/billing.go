// Package billing builds the payment-provider payloads for Pix charges.
package billing

import (
	"encoding/json"
	"fmt"
	"time"
)

// MinAmount is the smallest charge accepted, in centavos (R$ 1,00).
const MinAmount = 100

// DefaultProductName is used when a charge has no description.
const DefaultProductName = "Plano Premium"

// ChargeRequest is the body accepted by the create-pix-charge function.
type ChargeRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Cellphone   string `json:"cellphone,omitempty"`
	TaxID       string `json:"taxId,omitempty"`
	ExpiresIn   int    `json:"expiresIn,omitempty"`
}

// Customer identifies the payer.
type Customer struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Cellphone string `json:"cellphone"`
	TaxID     string `json:"taxId"`
}

// Product is one line of a billing.
type Product struct {
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Price      int64  `json:"price"`
}

// Billing is the provider's one-time billing payload.
type Billing struct {
	Frequency   string    `json:"frequency"`
	Methods     []string  `json:"methods"`
	Products    []Product `json:"products"`
	ExpiresIn   int       `json:"expiresIn,omitempty"`
	Description string    `json:"description,omitempty"`
	Customer    *Customer `json:"customer,omitempty"`
}

// NewBilling builds a one-time Pix billing for the premium plan. The
// customer block is only sent when every customer field is present.
func NewBilling(req ChargeRequest, now time.Time) Billing {
	name := req.Description
	if name == "" {
		name = DefaultProductName
	}
	b := Billing{
		Frequency: "ONE_TIME",
		Methods:   []string{"PIX"},
		Products: []Product{{
			ExternalID: fmt.Sprintf("plano-premium-%d", now.UnixMilli()),
			Name:       name,
			Quantity:   1,
			Price:      req.Amount,
		}},
		ExpiresIn:   req.ExpiresIn,
		Description: req.Description,
	}
	if req.Name != "" && req.Email != "" && req.Cellphone != "" && req.TaxID != "" {
		b.Customer = &Customer{
			Name:      req.Name,
			Email:     req.Email,
			Cellphone: req.Cellphone,
			TaxID:     req.TaxID,
		}
	}
	return b
}

// AmountOf extracts the "amount" field of a raw QR-code payload. It reports
// false when the field is missing or not a number.
func AmountOf(payload json.RawMessage) (float64, bool) {
	var body struct {
		Amount *float64 `json:"amount"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Amount == nil {
		return 0, false
	}
	return *body.Amount, true
}

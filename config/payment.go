package config

import "strings"

const defaultAbacatePayURL = "https://api.abacatepay.com/v1"

// PaymentConfig configures the AbacatePay pass-through proxy.
type PaymentConfig struct {
	// APIKey is the provider bearer token. Without it the proxy answers 500.
	APIKey string `env:"ABACATEPAY_API_KEY"`

	// APIURL is the provider base URL.
	APIURL string `env:"ABACATEPAY_API_URL" envDefault:"https://api.abacatepay.com/v1"`

	// StatusExpr is a JMESPath expression that extracts the payment status
	// from check responses for logging and metrics.
	StatusExpr string `env:"PIX_STATUS_EXPR" envDefault:"data.status"`
}

// Sanitize applies guardrails to payment configuration values.
func (p *PaymentConfig) Sanitize() {
	p.APIKey = strings.TrimSpace(p.APIKey)
	p.APIURL = strings.TrimRight(strings.TrimSpace(p.APIURL), "/")
	if p.APIURL == "" {
		p.APIURL = defaultAbacatePayURL
	}
	if strings.TrimSpace(p.StatusExpr) == "" {
		p.StatusExpr = "data.status"
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/gelatohub/painel/internal/domain/billing"
	apperrors "github.com/gelatohub/painel/internal/errors"
	"github.com/gelatohub/painel/internal/observability/metrics"
	"github.com/gelatohub/painel/internal/ports"
)

// DefaultPixStatusExpr extracts the charge status from a provider response.
const DefaultPixStatusExpr = "data.status"

// Validation messages returned to the browser.
const (
	MsgMinAmount         = "Valor mínimo é R$ 1,00 (100 centavos)"
	MsgMissingID         = "Missing id parameter"
	MsgBillingIDRequired = "billingId é obrigatório"
)

// ErrPaymentNotConfigured is returned when no provider API key is configured.
var ErrPaymentNotConfigured = errors.New("payment provider not configured")

// StatusEvaluator abstracts JMESPath operations for testability.
type StatusEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

type jmespathEvaluator struct{}

func (jmespathEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (jmespathEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// PixServiceOptions groups dependencies for PixService.
type PixServiceOptions struct {
	// Gateway is nil when the provider API key is not configured.
	Gateway    ports.PaymentGateway
	StatusExpr string
	Evaluator  StatusEvaluator
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// PixService relays Pix charge requests to the payment provider. Provider
// responses are returned verbatim; the service only validates inputs and
// observes the reported status.
type PixService struct {
	gateway ports.PaymentGateway
	expr    string
	jems    StatusEvaluator
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewPixService constructs a PixService. It fails when the status
// expression does not compile.
func NewPixService(opts PixServiceOptions) (*PixService, error) {
	s := &PixService{
		gateway: opts.Gateway,
		expr:    strings.TrimSpace(opts.StatusExpr),
		jems:    opts.Evaluator,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if s.expr == "" {
		s.expr = DefaultPixStatusExpr
	}
	if s.jems == nil {
		s.jems = jmespathEvaluator{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if err := s.jems.Validate(s.expr); err != nil {
		return nil, fmt.Errorf("invalid pix status expression %q: %w", s.expr, err)
	}
	return s, nil
}

// Configured reports whether a provider is available.
func (s *PixService) Configured() bool {
	return s != nil && s.gateway != nil
}

// CreateQRCode forwards a raw QR-code payload. Payloads whose amount is
// missing, non-numeric or below billing.MinAmount are rejected.
func (s *PixService) CreateQRCode(ctx context.Context, payload json.RawMessage) (ports.ProviderResponse, error) {
	if !s.Configured() {
		return ports.ProviderResponse{}, ErrPaymentNotConfigured
	}
	amount, ok := billing.AmountOf(payload)
	if !ok || amount < billing.MinAmount {
		return ports.ProviderResponse{}, apperrors.ValidationField("amount", MsgMinAmount)
	}
	resp, err := s.gateway.CreatePixQRCode(ctx, payload)
	if err != nil {
		return resp, fmt.Errorf("create pix qr code: %w", err)
	}
	return resp, nil
}

// CheckQRCode fetches the status of a QR code.
func (s *PixService) CheckQRCode(ctx context.Context, id string) (ports.ProviderResponse, error) {
	if !s.Configured() {
		return ports.ProviderResponse{}, ErrPaymentNotConfigured
	}
	if strings.TrimSpace(id) == "" {
		return ports.ProviderResponse{}, apperrors.ValidationField("id", MsgMissingID)
	}
	resp, err := s.gateway.CheckPixQRCode(ctx, id)
	if err != nil {
		return resp, fmt.Errorf("check pix qr code: %w", err)
	}
	s.observeStatus(ctx, id, resp)
	return resp, nil
}

// CreateCharge creates a one-time Pix billing for the premium plan.
func (s *PixService) CreateCharge(ctx context.Context, req billing.ChargeRequest) (ports.ProviderResponse, error) {
	if !s.Configured() {
		return ports.ProviderResponse{}, ErrPaymentNotConfigured
	}
	if req.Amount < billing.MinAmount {
		return ports.ProviderResponse{}, apperrors.ValidationField("amount", MsgMinAmount)
	}
	resp, err := s.gateway.CreateBilling(ctx, billing.NewBilling(req, s.now()))
	if err != nil {
		return resp, fmt.Errorf("create billing: %w", err)
	}
	return resp, nil
}

// CheckCharge fetches a billing by id.
func (s *PixService) CheckCharge(ctx context.Context, billingID string) (ports.ProviderResponse, error) {
	if !s.Configured() {
		return ports.ProviderResponse{}, ErrPaymentNotConfigured
	}
	if strings.TrimSpace(billingID) == "" {
		return ports.ProviderResponse{}, apperrors.ValidationField("billingId", MsgBillingIDRequired)
	}
	resp, err := s.gateway.GetBilling(ctx, billingID)
	if err != nil {
		return resp, fmt.Errorf("get billing: %w", err)
	}
	s.observeStatus(ctx, billingID, resp)
	return resp, nil
}

// Status extracts the charge status from a provider body, or "" when absent.
func (s *PixService) Status(body json.RawMessage) string {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return ""
	}
	v, err := s.jems.Evaluate(s.expr, data)
	if err != nil {
		return ""
	}
	status, _ := v.(string)
	return status
}

func (s *PixService) observeStatus(ctx context.Context, id string, resp ports.ProviderResponse) {
	status := s.Status(resp.Body)
	if status == "" {
		return
	}
	s.metrics.PixStatus(status)
	s.logger.InfoContext(ctx, "pix status", "id", id, "status", status, "http_status", resp.Status)
}

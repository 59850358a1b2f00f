package ports

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/gelatohub/painel/internal/domain/presence"
	"github.com/gelatohub/painel/internal/domain/settings"
)

// FilterOp is a comparison understood by RecordClient.
type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpNeq FilterOp = "neq"
	OpGte FilterOp = "gte"
	OpLte FilterOp = "lte"
	OpIn  FilterOp = "in"
)

// Filter restricts a select or count.
type Filter struct {
	Column string
	Op     FilterOp
	Value  string
}

// Eq is shorthand for an equality filter.
func Eq(column, value string) Filter { return Filter{Column: column, Op: OpEq, Value: value} }

// SelectOptions tunes a RecordClient.Select call.
type SelectOptions struct {
	Filters []Filter
	Order   string // e.g. "created_at.desc"
	Limit   int
}

// RecordClient performs row operations on behalf of one caller so that
// row-level security applies.
type RecordClient interface {
	Select(ctx context.Context, table string, opts SelectOptions) (json.RawMessage, error)
	Insert(ctx context.Context, table string, record map[string]any) (json.RawMessage, error)
	Update(ctx context.Context, table, id string, patch map[string]any) (json.RawMessage, error)
	Delete(ctx context.Context, table, id string) error
	Count(ctx context.Context, table string, filters ...Filter) (int, error)
}

// RecordBackend produces record clients bound to a caller.
type RecordBackend interface {
	Records(accessToken string) RecordClient
}

// ConfigRepository stores business configuration rows.
type ConfigRepository interface {
	Get(ctx context.Context, key string) (settings.Entry, error)
	GetMany(ctx context.Context, keys []string) ([]settings.Entry, error)
	ByCategory(ctx context.Context, category string) ([]settings.Entry, error)
	List(ctx context.Context) ([]settings.Entry, error)
	Upsert(ctx context.Context, e settings.Entry) error
	Delete(ctx context.Context, key string) error
}

// PresenceStore keeps online-user heartbeats.
type PresenceStore interface {
	Track(ctx context.Context, e presence.Entry) error
	Remove(ctx context.Context, userID string) error
	Online(ctx context.Context, since time.Time) ([]presence.Entry, error)
	Count(ctx context.Context, since time.Time) (int, error)
	Prune(ctx context.Context, before time.Time) (int, error)
}

// ObjectStorage stores uploaded files.
type ObjectStorage interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, bucket, key string) error
}

// ProviderResponse is a relayed payment-provider response.
type ProviderResponse struct {
	Status int
	Body   json.RawMessage
}

// PaymentGateway forwards calls to the payment provider verbatim.
type PaymentGateway interface {
	CreatePixQRCode(ctx context.Context, payload json.RawMessage) (ProviderResponse, error)
	CheckPixQRCode(ctx context.Context, id string) (ProviderResponse, error)
	CreateBilling(ctx context.Context, payload any) (ProviderResponse, error)
	GetBilling(ctx context.Context, id string) (ProviderResponse, error)
}

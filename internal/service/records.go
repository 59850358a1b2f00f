package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	apperrors "github.com/gelatohub/painel/internal/errors"
	"github.com/gelatohub/painel/internal/ports"
)

// DefaultRecordTables are the tables exposed when none are configured.
var DefaultRecordTables = []string{"produtos", "receitas", "categorias", "pedidos", "insumos", "despesas"}

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidIdentifier reports whether s is safe to use as a table or column name.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Caller identifies who a record operation runs for.
type Caller struct {
	AccessToken string
	UserID      string
}

// RecordServiceOptions groups dependencies for RecordService.
type RecordServiceOptions struct {
	Backend ports.RecordBackend
	Tables  []string
	Logger  *slog.Logger
}

// RecordService performs row CRUD with the caller's token so that row-level
// security decides what is visible. Only allow-listed tables are reachable.
type RecordService struct {
	backend ports.RecordBackend
	tables  map[string]struct{}
	logger  *slog.Logger
}

// NewRecordService constructs a RecordService. Invalid table names are dropped.
func NewRecordService(opts RecordServiceOptions) *RecordService {
	names := opts.Tables
	if len(names) == 0 {
		names = DefaultRecordTables
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &RecordService{backend: opts.Backend, tables: make(map[string]struct{}, len(names)), logger: logger}
	for _, t := range names {
		t = strings.TrimSpace(t)
		if !ValidIdentifier(t) {
			logger.Warn("ignoring invalid record table", "table", t)
			continue
		}
		s.tables[t] = struct{}{}
	}
	return s
}

// List returns every row of table visible to the caller.
func (s *RecordService) List(ctx context.Context, c Caller, table string) (json.RawMessage, error) {
	return s.Where(ctx, c, table, nil)
}

// Where returns the rows of table matching every equality filter.
func (s *RecordService) Where(ctx context.Context, c Caller, table string, filters map[string]string) (json.RawMessage, error) {
	client, err := s.client(c, table)
	if err != nil {
		return nil, err
	}
	opts := ports.SelectOptions{}
	for col, val := range filters {
		if !ValidIdentifier(col) {
			return nil, apperrors.ValidationField(col, fmt.Sprintf("coluna inválida: %s", col))
		}
		opts.Filters = append(opts.Filters, ports.Eq(col, val))
	}
	rows, err := client.Select(ctx, table, opts)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return rows, nil
}

// Get returns the row of table with id.
func (s *RecordService) Get(ctx context.Context, c Caller, table, id string) (json.RawMessage, error) {
	client, err := s.client(c, table)
	if err != nil {
		return nil, err
	}
	rows, err := client.Select(ctx, table, ports.SelectOptions{Filters: []ports.Filter{ports.Eq("id", id)}, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("select %s/%s: %w", table, id, err)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(rows, &list); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", table, id, err)
	}
	if len(list) == 0 {
		return nil, apperrors.NotFoundf("registro %s não encontrado em %s", id, table)
	}
	return list[0], nil
}

// Insert creates a row. user_id is set to the caller when absent.
func (s *RecordService) Insert(ctx context.Context, c Caller, table string, record map[string]any) (json.RawMessage, error) {
	client, err := s.client(c, table)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = map[string]any{}
	}
	if v, ok := record["user_id"]; !ok || v == nil || v == "" {
		if c.UserID != "" {
			record["user_id"] = c.UserID
		} else {
			s.logger.WarnContext(ctx, "could not determine user_id for insert", "table", table)
		}
	}
	rows, err := client.Insert(ctx, table, record)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	s.logger.InfoContext(ctx, "record inserted", "table", table)
	return rows, nil
}

// Update patches the row of table with id.
func (s *RecordService) Update(ctx context.Context, c Caller, table, id string, patch map[string]any) (json.RawMessage, error) {
	client, err := s.client(c, table)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, apperrors.Validation("nenhum campo para atualizar")
	}
	rows, err := client.Update(ctx, table, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", table, id, err)
	}
	return rows, nil
}

// Delete removes the row of table with id.
func (s *RecordService) Delete(ctx context.Context, c Caller, table, id string) error {
	client, err := s.client(c, table)
	if err != nil {
		return err
	}
	if err := client.Delete(ctx, table, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, id, err)
	}
	return nil
}

// Tables returns the exposed table names.
func (s *RecordService) Tables() []string {
	out := make([]string, 0, len(s.tables))
	for t := range s.tables {
		out = append(out, t)
	}
	return out
}

func (s *RecordService) client(c Caller, table string) (ports.RecordClient, error) {
	if s.backend == nil {
		return nil, apperrors.Unavailable("Supabase não configurado")
	}
	if _, ok := s.tables[table]; !ok {
		return nil, apperrors.NotFoundf("tabela %s não disponível", table)
	}
	return s.backend.Records(c.AccessToken), nil
}

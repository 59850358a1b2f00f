package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// reKeyField extracts field name from unique violation detail: "Key (field)=(value) already exists.".
	reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)
	// reReferencedFrom detects parent deletion: "... is still referenced from table ...".
	reReferencedFrom = regexp.MustCompile(`is still referenced from table "?([^"]+)"?`)
)

// MapDBError maps database errors to AppError instances.
// It handles:
// - pgx.ErrNoRows → NotFound
// - Unique constraint violations → Conflict
// - Foreign key violations → ForeignKey
// - Check and NOT NULL violations → Validation
// - Insufficient privilege → Permission
// - Context timeouts/cancellations → Timeout/Canceled
//
// If the error is not a recognized database error, it returns the original error.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: ErrCodeTimeout, Message: "Tempo esgotado. Tente novamente.", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{Code: ErrCodeCanceled, Message: "Operação cancelada.", Cause: err}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{Code: ErrCodeNotFound, Message: "Registro não encontrado", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapSQLState(pgErr.Code, pgErr.ColumnName, pgErr.Detail, pgErr.TableName, pgErr)
	}

	return err
}

// mapSQLState maps a SQLSTATE to an AppError. It is shared by the direct
// Postgres path and the REST path, where PostgREST relays the same codes.
func mapSQLState(code, column, detail, table string, cause error) error {
	switch code {
	case pgerrcode.UniqueViolation:
		field := column
		if field == "" && detail != "" {
			if m := reKeyField.FindStringSubmatch(detail); len(m) == 2 {
				field = m[1]
			}
		}
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "Este valor já existe.",
			Field:   field,
			Cause:   cause,
		}
	case pgerrcode.ForeignKeyViolation:
		if m := reReferencedFrom.FindStringSubmatch(detail); len(m) == 2 {
			table = m[1]
		}
		msg := "Não é possível concluir: o registro está em uso."
		if table != "" {
			msg = "Não é possível concluir: o registro está em uso por " + tableLabel(table) + "."
		}
		return &AppError{Code: ErrCodeForeignKey, Message: msg, Cause: cause}
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		msg := "Dados inválidos. Verifique os campos."
		if column != "" {
			msg = "Campo inválido ou obrigatório."
		}
		return &AppError{Code: ErrCodeValidation, Message: msg, Field: column, Cause: cause}
	case pgerrcode.InsufficientPrivilege:
		return &AppError{Code: ErrCodePermission, Message: "Permissão negada", Cause: cause}
	default:
		return &AppError{
			Code:    ErrCodeInternal,
			Message: "Erro no banco de dados. Tente novamente.",
			Cause:   cause,
		}
	}
}

// tableLabel maps table names to the labels shown in the back office.
func tableLabel(table string) string {
	table = strings.ToLower(strings.TrimSpace(table))
	labels := map[string]string{
		"produtos":        "Produtos",
		"receitas":        "Receitas",
		"categorias":      "Categorias",
		"pedidos":         "Pedidos",
		"insumos":         "Insumos",
		"despesas":        "Despesas",
		"perfis_usuarios": "Usuários",
		"configuracoes":   "Configurações",
	}
	if label, ok := labels[table]; ok {
		return label
	}
	return strings.ReplaceAll(table, "_", " ")
}

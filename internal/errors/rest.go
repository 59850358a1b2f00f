package errors

import (
	"fmt"
	"net/http"
)

// PostgREST error codes that do not map to a SQLSTATE.
const (
	// RESTNoRows is returned when a singular response was requested and no row matched.
	RESTNoRows = "PGRST116"
	// RESTJWTExpired is returned when the bearer token has expired.
	RESTJWTExpired = "PGRST301"
)

// RESTError is the error body returned by PostgREST and GoTrue.
type RESTError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *RESTError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

// MapRESTError maps a backend error response to an AppError. SQLSTATE codes
// relayed by PostgREST are mapped the same way MapDBError maps them.
func MapRESTError(e *RESTError) error {
	if e == nil {
		return nil
	}
	switch {
	case e.Code == RESTNoRows:
		return &AppError{Code: ErrCodeNotFound, Message: "Registro não encontrado", Cause: e}
	case e.Status == http.StatusNotFound:
		return &AppError{Code: ErrCodeNotFound, Message: "Recurso não encontrado", Cause: e}
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return &AppError{Code: ErrCodePermission, Message: "Permissão negada", Cause: e}
	case len(e.Code) == 5:
		return mapSQLState(e.Code, "", e.Details, "", e)
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return &AppError{Code: ErrCodeValidation, Message: e.Message, Cause: e}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "Erro ao comunicar com o backend", Cause: e}
	}
}

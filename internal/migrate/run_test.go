package migrate

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles(t *testing.T) {
	files, err := Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_configuracoes.sql", "0002_get_user_role.sql"}, files)
}

func TestRun_AppliesPendingOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	exists := regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM painel_schema_migrations WHERE version = $1)")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS painel_schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery(exists).WithArgs("0001_configuracoes").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery(exists).WithArgs("0002_get_user_role").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE OR REPLACE FUNCTION public.get_user_role").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO painel_schema_migrations (version) VALUES ($1)")).
		WithArgs("0002_get_user_role").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, Run(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS painel_schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("0001_configuracoes").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS configuracoes").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = Run(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_configuracoes.sql")
	require.NoError(t, mock.ExpectationsWereMet())
}

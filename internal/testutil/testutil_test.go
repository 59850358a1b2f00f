package testutil

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestRedis_InProcess(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "")
	client := SetupTestRedis(t)

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	v, err := client.Get(context.Background(), "k").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestFixedTimeFunc(t *testing.T) {
	now := FixedTimeFunc(TestTime())
	assert.Equal(t, TestTime(), now())
	assert.Equal(t, now(), now())
}

func TestNewMockDB(t *testing.T) {
	db, mock := NewMockDB(t)
	mock.ExpectExec("DELETE FROM presence").WillReturnResult(sqlmock.NewResult(0, 2))
	res, err := db.Exec("DELETE FROM presence")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

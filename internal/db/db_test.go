package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyRows_EmptyRows(t *testing.T) {
	assert.NoError(t, CopyRows(context.TODO(), nil, "run_outcomes", []string{"a", "b"}, nil))
}

func TestCopyRows_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"run_outcomes"}, []string{"a", "b"}).WillReturnResult(3)

	rows := [][]any{{1, "x"}, {2, "y"}, {3, "z"}}
	require.NoError(t, CopyRows(context.Background(), mock, "run_outcomes", []string{"a", "b"}, rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyRows_ShortWrite(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"run_outcomes"}, []string{"a"}).WillReturnResult(1)

	err = CopyRows(context.Background(), mock, "run_outcomes", []string{"a"}, [][]any{{1}, {2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrote 1 of 2 rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyRows_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"run_outcomes"}, []string{"a"}).WillReturnError(fmt.Errorf("permission denied"))

	err = CopyRows(context.Background(), mock, "run_outcomes", []string{"a"}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO run_outcomes")
	assert.NoError(t, mock.ExpectationsWereMet())
}

package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/rootscan/internal/config"
)

func TestPostgresBackendReadOnlySkipsSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	be, err := newPostgresBackend(context.Background(), mock, false)
	require.NoError(t, err)
	require.NotNil(t, be.records)
	require.NotNil(t, be.runs)
	// No statement may run: any Exec would be unexpected.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendEnsuresBothTables(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS root_documents").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS scan_runs").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	_, err = newPostgresBackend(context.Background(), mock, true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendSchemaError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("permission denied")
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS root_documents").WillReturnError(boom)

	_, err = newPostgresBackend(context.Background(), mock, true)
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRequiresDatabaseSettings(t *testing.T) {
	useApp(t, func(c *config.Config) { c.DB = config.DBConfig{} })
	_, err := execute(t, "ledger", "7b0c3f4e-2d57-4a53-9a0f-0f4a2f9a1c11")
	require.ErrorIs(t, err, config.ErrMissingSetting)
}

package postgres

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/rootscan/internal/scanner"
)

func TestStoreSuccessInsertsAllColumns(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStore(mock)
	require.NoError(t, err)

	out := successOutcome("example.com", 443)
	mock.ExpectExec(regexp.QuoteMeta(insertSuccessSQL)).
		WithArgs(
			"example.com",
			out.IPAddr,
			ptr(int16(443)),
			true,
			out.Date,
			out.Status,
			out.ResultingURL,
			out.Server,
			out.ContentSecurityPolicy,
			out.ContentType,
			out.Body,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res := store.Store(context.Background(), out)
	require.Equal(t, scanner.Stored(), res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreFailureWritesMinimalRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStore(mock)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(insertFailureSQL)).
		WithArgs("down.example").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res := store.Store(context.Background(), scanner.Failed("down.example"))
	require.Equal(t, scanner.StoreStored, res.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreConflictIsIgnored(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStore(mock)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(insertFailureSQL)).
		WithArgs("example.com").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	res := store.Store(context.Background(), scanner.Failed("example.com"))
	require.Equal(t, scanner.Ignored(), res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreErrorIsDropped(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStore(mock)
	require.NoError(t, err)

	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta(insertSuccessSQL)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(boom)

	res := store.Store(context.Background(), successOutcome("example.com", 443))
	require.Equal(t, scanner.StoreDropped, res.Status)
	require.ErrorIs(t, res.Err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreWithoutPoolIsDropped(t *testing.T) {
	t.Parallel()

	var store *RecordStore
	res := store.Store(context.Background(), scanner.Failed("example.com"))
	require.Equal(t, scanner.StoreDropped, res.Status)
	require.Error(t, res.Err)

	_, err := NewRecordStore(nil)
	require.Error(t, err)
}

func TestEnsureSchemaCreatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS root_documents").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, EnsureSchema(context.Background(), mock))

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS root_documents").
		WillReturnError(errors.New("permission denied"))
	err = EnsureSchema(context.Background(), mock)
	require.ErrorContains(t, err, "create root_documents table")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPortParamWrapsHighPorts(t *testing.T) {
	t.Parallel()

	require.Nil(t, portParam(nil))
	require.Equal(t, int16(443), *portParam(ptr(uint16(443))))
	require.Equal(t, int16(-1), *portParam(ptr(uint16(65535))))
}

func TestConfigDSN(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Host:     "db.internal",
		Database: "scans",
		User:     "scanner",
		Password: "p@ss word",
		SSLMode:  "disable",
	}
	dsn := cfg.DSN()
	require.True(t, strings.HasPrefix(dsn, "postgres://scanner:"), dsn)
	require.Contains(t, dsn, "@db.internal:5432/scans")
	require.Contains(t, dsn, "sslmode=disable")
	require.NotContains(t, dsn, "p@ss word")

	cfg.Port = 6543
	require.Contains(t, cfg.DSN(), "db.internal:6543")
}

func TestOpenRequiresSettings(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Host: "localhost"})
	require.Error(t, err)
}

func successOutcome(domain string, port uint16) scanner.Outcome {
	return scanner.Outcome{
		Domain:                domain,
		Success:               true,
		IPAddr:                ptr("192.0.2.10"),
		Port:                  ptr(port),
		Status:                ptr(int16(200)),
		ResultingURL:          ptr("https://" + domain + "/"),
		Date:                  ptr("Mon, 19 Oct 2026 10:00:00 GMT"),
		Server:                ptr("nginx"),
		ContentSecurityPolicy: nil,
		ContentType:           ptr("text/html"),
		Body:                  ptr("PGh0bWw+"),
	}
}

func ptr[T any](v T) *T {
	return &v
}

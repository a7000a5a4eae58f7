package opentracing

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fyerfyer/fyer-repo/logger"
	"github.com/fyerfyer/fyer-repo/repo"
	"github.com/fyerfyer/fyer-repo/repo/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMiddlewareBuilder_Build(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	builder := &MiddlewareBuilder{Tracer: provider.Tracer("test")}

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	store, err := sqlstore.New(sqlDB)
	require.NoError(t, err)
	db, err := repo.Open(store, repo.WithLogger(logger.NewNop()), repo.WithMiddlewares(builder.Build()))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM users").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	ctx := repo.WithOperation(context.Background(), repo.OpDeleteByID)
	err = repo.RunInTransaction(ctx, db, func(ctx context.Context, tx *repo.Tx) error {
		_, err := tx.Exec(ctx, repo.NewQuery("DELETE FROM users WHERE id = ?", 1))
		return err
	})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "repo.delete_by_id", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Contains(t, span.Attributes(), attribute.String("db.statement", "DELETE FROM users WHERE id = ?"))
	assert.Contains(t, span.Attributes(), attribute.Bool("db.in_tx", true))
	require.NoError(t, mock.ExpectationsWereMet())
}

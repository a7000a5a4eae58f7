package opentracing

import (
	"context"

	"github.com/fyerfyer/fyer-repo/repo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type MiddlewareBuilder struct {
	Tracer trace.Tracer
}

var defaultInstrumentationName = "fyer-repo"

func (m *MiddlewareBuilder) Build() repo.Middleware {
	if m.Tracer == nil {
		m.Tracer = otel.GetTracerProvider().Tracer(defaultInstrumentationName)
	}

	return func(next repo.Handler) repo.Handler {
		return repo.HandlerFunc(func(ctx context.Context, qc *repo.QueryContext) (*repo.QueryResult, error) {
			ctx, span := m.Tracer.Start(ctx, "repo."+qc.Operation, trace.WithSpanKind(trace.SpanKindClient))
			defer span.End()

			span.SetAttributes(attribute.String("db.operation", qc.Operation))
			span.SetAttributes(attribute.String("db.query_type", qc.QueryType))
			span.SetAttributes(attribute.String("db.statement", qc.Query.SQL))
			span.SetAttributes(attribute.Bool("db.in_tx", qc.InTx()))
			if qc.InTx() {
				span.SetAttributes(attribute.String("db.tx_id", qc.TxID))
			}
			span.SetAttributes(attribute.String("component", "repo"))

			res, err := next.QueryHandler(ctx, qc)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return res, err
		})
	}
}

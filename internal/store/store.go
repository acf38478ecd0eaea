package store

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/flaskr-go/flaskr/internal/store"

// ConnFunc resolves the database handle for the current request.
type ConnFunc func(ctx context.Context) (*sqlx.DB, error)

// StaticConn always returns db. Useful for commands and tests that own a
// single handle.
func StaticConn(db *sqlx.DB) ConnFunc {
	return func(context.Context) (*sqlx.DB, error) {
		return db, nil
	}
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("db.system", "sqlite"))...),
	)
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

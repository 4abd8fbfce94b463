package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/metrics"
	"github.com/Leganyst/fitness-booking/internal/repository/reperrors"
	"github.com/Leganyst/fitness-booking/internal/service/serverrors"
)

// classify превращает ошибку операции в то, что увидит вызывающий:
// отказы проходят как есть, конфликты блокировок становятся ErrTransient,
// всё остальное логируется и скрывается за ErrInternal.
func classify(ctx context.Context, log *slog.Logger, op string, err error) error {
	if err == nil {
		return nil
	}

	span := trace.SpanFromContext(ctx)

	if rej, ok := calendar.AsRejection(err); ok {
		span.SetAttributes(attribute.String("rejection.reason", string(rej.Reason)))
		return rej
	}

	if reperrors.IsTransient(err) {
		metrics.TransientConflicts.WithLabelValues(op).Inc()
		span.SetStatus(otelcodes.Error, "transient conflict")
		log.WarnContext(ctx, "transient conflict",
			slog.String("op", op),
			slog.Any("error", err),
		)
		return fmt.Errorf("%s: %w", op, serverrors.ErrTransient)
	}

	span.RecordError(err)
	span.SetStatus(otelcodes.Error, "internal failure")
	log.ErrorContext(ctx, "operation failed",
		slog.String("op", op),
		slog.Any("error", err),
	)
	return serverrors.ErrInternal
}

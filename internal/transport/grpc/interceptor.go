package grpcx

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/Leganyst/fitness-booking/internal/service/serverrors"
)

// LoggingInterceptor пишет по строке на вызов и превращает панику
// обработчика в codes.Internal.
func LoggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		started := time.Now()
		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(ctx, "grpc handler panicked",
					slog.String("method", info.FullMethod),
					slog.Any("panic", r),
				)
				resp, err = nil, status.Error(codes.Internal, serverrors.ErrInternal.Error())
			}

			code := status.Code(err)
			level := slog.LevelInfo
			switch code {
			case codes.OK:
			case codes.Internal, codes.Unknown:
				level = slog.LevelError
			default:
				level = slog.LevelWarn
			}
			log.Log(ctx, level, "grpc request",
				slog.String("method", info.FullMethod),
				slog.String("code", code.String()),
				slog.Duration("duration", time.Since(started)),
			)
		}()
		return handler(ctx, req)
	}
}

// NewGRPCServer собирает сервер с BookingService и стандартным health-сервисом.
func NewGRPCServer(srv BookingServiceServer, log *slog.Logger) (*grpc.Server, *health.Server) {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(LoggingInterceptor(log.With(slog.String("component", "grpc")))),
	)
	RegisterBookingServiceServer(gs, srv)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return gs, hs
}

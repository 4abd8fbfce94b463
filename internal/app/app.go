package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"gorm.io/gorm"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/clock"
	"github.com/Leganyst/fitness-booking/internal/config"
	"github.com/Leganyst/fitness-booking/internal/db"
	"github.com/Leganyst/fitness-booking/internal/events"
	"github.com/Leganyst/fitness-booking/internal/metrics"
	"github.com/Leganyst/fitness-booking/internal/model"
	"github.com/Leganyst/fitness-booking/internal/obs"
	"github.com/Leganyst/fitness-booking/internal/repository"
	"github.com/Leganyst/fitness-booking/internal/scheduler"
	"github.com/Leganyst/fitness-booking/internal/seed"
	"github.com/Leganyst/fitness-booking/internal/service"
	grpcx "github.com/Leganyst/fitness-booking/internal/transport/grpc"
	httpx "github.com/Leganyst/fitness-booking/internal/transport/http"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	db         *gorm.DB
	publisher  events.Publisher
	scheduler  *scheduler.Scheduler
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server

	shutdownTracer func(context.Context) error
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	// init metrics Prometheus
	metrics.Register()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.Tracing, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	gormDB, err := db.NewGormDB(&cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := model.AutoMigrate(gormDB); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("sql DB: %w", err)
	}

	publisher, err := newPublisher(cfg.Events, log)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("init events publisher: %w", err)
	}

	loc, rej := calendar.LoadLocation(cfg.Booking.TimeZone)
	if rej != nil {
		return nil, fmt.Errorf("booking timezone: %w", rej)
	}
	clk := clock.NewSystem(loc)

	// Репозитории (реализации на GORM).
	classRepo := repository.NewGormClassRepository(gormDB)
	bookingRepo := repository.NewGormBookingRepository(gormDB)
	eventRepo := repository.NewGormEventRepository(gormDB)
	tx := repository.NewGormTransactor(gormDB, cfg.Booking.LockTimeout)

	reconciler := service.NewReconciler(tx, classRepo, bookingRepo, eventRepo, publisher, log)
	bookingSvc := service.NewBookingService(tx, classRepo, bookingRepo, eventRepo, publisher, clk, log)
	classSvc := service.NewClassService(tx, classRepo, bookingRepo, eventRepo, reconciler, publisher, clk, cfg.Booking.TimeZone, log)

	if cfg.Seed.Enabled {
		if _, err := seed.SampleClasses(ctx, classRepo, classSvc, clk, log); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	a := &App{
		cfg:            cfg,
		log:            log,
		db:             gormDB,
		publisher:      publisher,
		shutdownTracer: shutdownTracer,
	}

	if cfg.Scheduler.Enabled {
		a.scheduler, err = scheduler.New(cfg.Scheduler, reconciler, clk, loc, log)
		if err != nil {
			return nil, fmt.Errorf("init scheduler: %w", err)
		}
	}

	a.grpcServer, a.health = grpcx.NewGRPCServer(grpcx.NewServer(bookingSvc, classSvc), log)

	router := httpx.NewRouter(httpx.Deps{
		Bookings:       bookingSvc,
		Classes:        classSvc,
		Health:         sqlDB.PingContext,
		Log:            log,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})
	a.httpServer = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return a, nil
}

func newPublisher(cfg config.Events, log *slog.Logger) (events.Publisher, error) {
	switch cfg.Broker {
	case config.BrokerRabbitMQ:
		p, err := events.NewRabbitPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			return nil, err
		}
		log.Info("publishing events to rabbitmq", slog.String("exchange", cfg.Rabbit.Exchange))
		return p, nil
	case config.BrokerKafka:
		p, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Version, cfg.Kafka.Topic, log)
		if err != nil {
			return nil, err
		}
		log.Info("publishing events to kafka", slog.String("topic", cfg.Kafka.Topic))
		return p, nil
	default:
		return events.Noop{}, nil
	}
}

// Run запускает планировщик и оба сервера; возвращается при падении любого из серверов.
func (a *App) Run() error {
	lis, err := net.Listen("tcp", a.cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.GRPC.Addr, err)
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	errCh := make(chan error, 2)
	go func() {
		a.log.Info("grpc server listening", slog.String("address", a.cfg.GRPC.Addr))
		if err := a.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		a.log.Info("http server listening", slog.String("address", a.cfg.HTTP.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	return <-errCh
}

// Shutdown останавливает приём запросов, дожидается текущих и закрывает ресурсы.
func (a *App) Shutdown(ctx context.Context) error {
	a.health.Shutdown()

	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.log.Error("failed to stop scheduler", slog.Any("error", err))
		}
	}

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("failed to stop http server", slog.Any("error", err))
	}

	stopped := make(chan struct{})
	go func() {
		a.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		a.log.Warn("grpc graceful stop timed out, forcing")
		a.grpcServer.Stop()
	}

	// Публикатор закрывается после серверов: последние события успевают уйти.
	if err := a.publisher.Close(); err != nil {
		a.log.Error("failed to close events publisher", slog.Any("error", err))
	}

	if err := a.shutdownTracer(ctx); err != nil {
		a.log.Error("failed to flush traces", slog.Any("error", err))
	}

	sqlDB, err := a.db.DB()
	if err != nil {
		return fmt.Errorf("sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

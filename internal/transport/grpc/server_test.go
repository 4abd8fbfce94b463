package grpcx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/model"
	"github.com/Leganyst/fitness-booking/internal/service/serverrors"
	"github.com/Leganyst/fitness-booking/internal/transport"
	"github.com/Leganyst/fitness-booking/internal/transport/transporttest"
)

func sampleClass() *model.FitnessClass {
	start := time.Date(2025, 3, 12, 7, 0, 0, 0, time.UTC)
	return &model.FitnessClass{
		ID:             uuid.New(),
		Name:           "Yoga",
		Instructor:     "Jane Smith",
		StartTime:      start,
		EndTime:        start.Add(time.Hour),
		TimeZone:       "Asia/Kolkata",
		Capacity:       20,
		AvailableSlots: 19,
		Status:         model.ClassStatusUpcoming,
		IsActive:       true,
	}
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   codes.Code
		reason string
	}{
		{"not found", calendar.Reject(calendar.ReasonClassNotFound, "class x not found"), codes.NotFound, "CLASS_NOT_FOUND"},
		{"validation", calendar.Invalid("bad email"), codes.InvalidArgument, "INVALID_ARGUMENT"},
		{"no slots", calendar.Reject(calendar.ReasonNoSlots, "full"), codes.FailedPrecondition, "NO_SLOTS"},
		{"too late", calendar.Reject(calendar.ReasonTooLate, "soon"), codes.FailedPrecondition, "TOO_LATE"},
		{"duplicate", calendar.Reject(calendar.ReasonDuplicateBooking, "dup"), codes.AlreadyExists, "DUPLICATE_BOOKING"},
		{"transient", fmt.Errorf("create_booking: %w", serverrors.ErrTransient), codes.Unavailable, transport.ReasonTransient},
		{"internal", serverrors.ErrInternal, codes.Internal, transport.ReasonInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := toStatus(tc.err)
			if got := status.Code(err); got != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, got)
			}
			if got := ReasonOf(err); got != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, got)
			}
		})
	}
}

func TestToStatus_HidesInternalDetails(t *testing.T) {
	err := toStatus(fmt.Errorf("dial tcp 10.0.0.1:5432: %w", serverrors.ErrInternal))
	st, _ := status.FromError(err)
	if st.Message() != serverrors.ErrInternal.Error() {
		t.Fatalf("expected generic message, got %q", st.Message())
	}
}

func TestServer_CreateBooking_RejectsBadClassID(t *testing.T) {
	fake := &transporttest.Service{}
	srv := NewServer(fake, fake)

	_, err := srv.CreateBooking(context.Background(), &transport.CreateBookingRequest{
		ClassID:     "not-a-uuid",
		ClientName:  "Ann",
		ClientEmail: "ann@example.com",
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if fake.Called("CreateBooking") {
		t.Fatalf("service must not be called for an invalid request")
	}
}

func TestServer_ListClasses_PassesPaging(t *testing.T) {
	fake := &transporttest.Service{}
	srv := NewServer(fake, fake)

	_, err := srv.ListClasses(context.Background(), &transport.ListClassesRequest{
		TimeZone: "Europe/Moscow",
		Page:     2,
		PageSize: 5,
	})
	if err != nil {
		t.Fatalf("ListClasses returned error: %v", err)
	}
	if fake.LastList.TimeZone != "Europe/Moscow" || fake.LastList.Page != 2 || fake.LastList.PageSize != 5 {
		t.Fatalf("unexpected input: %+v", fake.LastList)
	}
}

// dial поднимает сервер на bufconn и возвращает клиентское соединение.
func dial(t *testing.T, fake *transporttest.Service) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	gs, _ := NewGRPCServer(NewServer(fake, fake), slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestBookingService_OverTheWire(t *testing.T) {
	class := sampleClass()
	booking := &model.Booking{
		ID:          uuid.New(),
		ClassID:     class.ID,
		ClientName:  "Ann",
		ClientEmail: "ann@example.com",
		BookingTime: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Class:       class,
	}
	fake := &transporttest.Service{Booking: booking}
	conn := dial(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out transport.Booking
	err := conn.Invoke(ctx, "/"+ServiceName+"/CreateBooking", &transport.CreateBookingRequest{
		ClassID:     class.ID.String(),
		ClientName:  "Ann",
		ClientEmail: "ann@example.com",
	}, &out, grpc.ForceCodec(Codec()))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if out.ID != booking.ID.String() || out.ClientEmail != "ann@example.com" {
		t.Fatalf("unexpected booking: %+v", out)
	}
	if out.Class == nil || out.Class.TimeZone != "Asia/Kolkata" {
		t.Fatalf("expected class rendered in its own zone, got %+v", out.Class)
	}
	if fake.LastBooking.ClassID != class.ID {
		t.Fatalf("service got class %s, want %s", fake.LastBooking.ClassID, class.ID)
	}
}

func TestBookingService_OverTheWire_Rejection(t *testing.T) {
	fake := &transporttest.Service{Err: calendar.Reject(calendar.ReasonNoSlots, "no slots available")}
	conn := dial(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out transport.Booking
	err := conn.Invoke(ctx, "/"+ServiceName+"/CreateBooking", &transport.CreateBookingRequest{
		ClassID:     uuid.NewString(),
		ClientName:  "Ann",
		ClientEmail: "ann@example.com",
	}, &out, grpc.ForceCodec(Codec()))

	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
	if ReasonOf(err) != "NO_SLOTS" {
		t.Fatalf("expected NO_SLOTS reason, got %q", ReasonOf(err))
	}
}

func TestHealth_Serving(t *testing.T) {
	conn := dial(t, &transporttest.Service{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", resp.GetStatus())
	}
}

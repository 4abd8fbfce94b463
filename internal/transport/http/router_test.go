package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/model"
	"github.com/Leganyst/fitness-booking/internal/service"
	"github.com/Leganyst/fitness-booking/internal/service/serverrors"
	"github.com/Leganyst/fitness-booking/internal/transport/transporttest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type errorBody struct {
	Error struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error"`
}

func newRouter(fake *transporttest.Service) *gin.Engine {
	return NewRouter(Deps{
		Bookings:       fake,
		Classes:        fake,
		Log:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		RequestTimeout: time.Second,
	})
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestCreateBooking_Created(t *testing.T) {
	classID := uuid.New()
	fake := &transporttest.Service{Booking: &model.Booking{
		ID:          uuid.New(),
		ClassID:     classID,
		ClientName:  "Ann",
		ClientEmail: "ann@example.com",
		BookingTime: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}}

	body := fmt.Sprintf(`{"class_id":%q,"client_name":"Ann","client_email":"Ann@Example.com"}`, classID)
	rec := do(t, newRouter(fake), http.MethodPost, "/bookings", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if fake.LastBooking.ClassID != classID || fake.LastBooking.ClientEmail != "Ann@Example.com" {
		t.Fatalf("unexpected service input: %+v", fake.LastBooking)
	}

	var out struct {
		ID          string `json:"id"`
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ClientEmail != "ann@example.com" || out.ID == "" {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}
}

func TestCreateBooking_MalformedBody(t *testing.T) {
	fake := &transporttest.Service{}
	rec := do(t, newRouter(fake), http.MethodPost, "/bookings", `{"class_id":`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeError(t, rec).Error.Reason; got != "INVALID_ARGUMENT" {
		t.Fatalf("expected INVALID_ARGUMENT, got %q", got)
	}
	if fake.Called("CreateBooking") {
		t.Fatalf("service must not be called")
	}
}

func TestCreateBooking_MissingField(t *testing.T) {
	fake := &transporttest.Service{}
	body := fmt.Sprintf(`{"class_id":%q,"client_name":"Ann"}`, uuid.New())
	rec := do(t, newRouter(fake), http.MethodPost, "/bookings", body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec).Error.Message; !strings.Contains(msg, "client_email") {
		t.Fatalf("expected message to name client_email, got %q", msg)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   int
		reason string
	}{
		{"not found", calendar.Reject(calendar.ReasonClassNotFound, "missing"), http.StatusNotFound, "CLASS_NOT_FOUND"},
		{"validation", calendar.Invalid("bad email"), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"no slots", calendar.Reject(calendar.ReasonNoSlots, "full"), http.StatusConflict, "NO_SLOTS"},
		{"limit", calendar.Reject(calendar.ReasonBookingLimitExceeded, "3 upcoming"), http.StatusConflict, "BOOKING_LIMIT_EXCEEDED"},
		{"transient", fmt.Errorf("create_booking: %w", serverrors.ErrTransient), http.StatusServiceUnavailable, "TRANSIENT_CONFLICT"},
		{"internal", serverrors.ErrInternal, http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &transporttest.Service{Err: tc.err}
			body := fmt.Sprintf(`{"class_id":%q,"client_name":"Ann","client_email":"ann@example.com"}`, uuid.New())
			rec := do(t, newRouter(fake), http.MethodPost, "/bookings", body)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if got := decodeError(t, rec).Error.Reason; got != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, got)
			}
			retry := rec.Header().Get("Retry-After")
			if tc.code == http.StatusServiceUnavailable && retry == "" {
				t.Fatalf("expected Retry-After on 503")
			}
			if tc.code != http.StatusServiceUnavailable && retry != "" {
				t.Fatalf("unexpected Retry-After %q", retry)
			}
		})
	}
}

func TestListClasses_Query(t *testing.T) {
	fake := &transporttest.Service{Page: calendar.Page[service.ClassView]{
		Items:    []service.ClassView{{ID: uuid.New(), Name: "Yoga", TimeZone: "Europe/Moscow"}},
		Page:     2,
		PageSize: 1,
		Total:    3,
		HasNext:  true,
		HasPrev:  true,
	}}

	rec := do(t, newRouter(fake), http.MethodGet, "/classes?timezone=Europe/Moscow&page=2&page_size=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fake.LastList.TimeZone != "Europe/Moscow" || fake.LastList.Page != 2 || fake.LastList.PageSize != 1 {
		t.Fatalf("unexpected input: %+v", fake.LastList)
	}

	var out struct {
		Items []struct {
			Name     string `json:"name"`
			TimeZone string `json:"timezone"`
		} `json:"items"`
		Total   int  `json:"total"`
		HasNext bool `json:"has_next"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].TimeZone != "Europe/Moscow" || out.Total != 3 || !out.HasNext {
		t.Fatalf("unexpected page: %s", rec.Body.String())
	}
}

func TestListClasses_BadPageSize(t *testing.T) {
	fake := &transporttest.Service{}
	rec := do(t, newRouter(fake), http.MethodGet, "/classes?page_size=500", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckIn_PathParams(t *testing.T) {
	classID, bookingID := uuid.New(), uuid.New()
	fake := &transporttest.Service{Booking: &model.Booking{ID: bookingID, ClassID: classID, CheckedIn: true}}

	rec := do(t, newRouter(fake), http.MethodPost, "/classes/"+classID.String()+"/check-in/"+bookingID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fake.LastID != classID || fake.LastBookingID != bookingID {
		t.Fatalf("unexpected ids: class=%s booking=%s", fake.LastID, fake.LastBookingID)
	}
}

func TestGetClass_BadID(t *testing.T) {
	rec := do(t, newRouter(&transporttest.Service{}), http.MethodGet, "/classes/42", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateClass_PartialBody(t *testing.T) {
	start := time.Date(2025, 3, 12, 7, 0, 0, 0, time.UTC)
	class := &model.FitnessClass{
		ID: uuid.New(), Name: "Yoga", StartTime: start, EndTime: start.Add(time.Hour),
		TimeZone: "UTC", Capacity: 25, Status: model.ClassStatusUpcoming, IsActive: true,
	}
	fake := &transporttest.Service{Class: class}

	rec := do(t, newRouter(fake), http.MethodPatch, "/classes/"+class.ID.String(), `{"capacity":25}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fake.LastUpdate.Capacity == nil || *fake.LastUpdate.Capacity != 25 {
		t.Fatalf("expected capacity 25, got %+v", fake.LastUpdate.Capacity)
	}
	if fake.LastUpdate.Name != nil || fake.LastUpdate.StartTime != nil {
		t.Fatalf("unset fields must stay nil: %+v", fake.LastUpdate)
	}
}

func TestHealth(t *testing.T) {
	ok := NewRouter(Deps{
		Bookings: &transporttest.Service{},
		Classes:  &transporttest.Service{},
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if rec := do(t, ok, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	down := NewRouter(Deps{
		Bookings: &transporttest.Service{},
		Classes:  &transporttest.Service{},
		Health:   func(context.Context) error { return errors.New("db down") },
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if rec := do(t, down, http.MethodGet, "/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newRouter(&transporttest.Service{}), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

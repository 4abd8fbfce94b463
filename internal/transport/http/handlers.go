package httpx

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/service"
	"github.com/Leganyst/fitness-booking/internal/service/serverrors"
	"github.com/Leganyst/fitness-booking/internal/transport"
)

type Handler struct {
	bookings transport.Bookings
	classes  transport.Classes
}

// Секунды до повтора после конфликта блокировок.
const retryAfterSeconds = 1

// GET /classes?timezone=&page=&page_size=
func (h *Handler) ListClasses(c *gin.Context) {
	var in transport.ListClassesRequest
	if err := c.ShouldBindQuery(&in); err != nil {
		writeError(c, calendar.Invalid("malformed query: %v", err))
		return
	}
	if err := transport.Validate(in); err != nil {
		writeError(c, err)
		return
	}

	page, err := h.classes.ListClasses(c.Request.Context(), service.ListClassesInput{
		TimeZone: in.TimeZone,
		Page:     in.Page,
		PageSize: in.PageSize,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.ClassPageFrom(page))
}

// GET /classes/:id
func (h *Handler) GetClass(c *gin.Context) {
	id, err := transport.ParseID("id", c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	class, err := h.classes.GetClass(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.ClassFromModel(class))
}

// POST /classes
func (h *Handler) CreateClass(c *gin.Context) {
	var in transport.CreateClassRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, calendar.Invalid("malformed body: %v", err))
		return
	}
	if err := transport.Validate(in); err != nil {
		writeError(c, err)
		return
	}

	class, err := h.classes.CreateClass(c.Request.Context(), in.Input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transport.ClassFromModel(class))
}

// PATCH /classes/:id
func (h *Handler) UpdateClass(c *gin.Context) {
	id, err := transport.ParseID("id", c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var in transport.UpdateClassRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, calendar.Invalid("malformed body: %v", err))
		return
	}

	class, err := h.classes.UpdateClass(c.Request.Context(), id, in.Input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.ClassFromModel(class))
}

// POST /classes/:id/cancel
func (h *Handler) CancelClass(c *gin.Context) {
	id, err := transport.ParseID("id", c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	class, err := h.classes.CancelClass(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.ClassFromModel(class))
}

// GET /classes/:id/events
func (h *Handler) ListClassEvents(c *gin.Context) {
	id, err := transport.ParseID("id", c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	evs, err := h.classes.AuditTrail(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	out := transport.ClassEventsResponse{Events: make([]transport.ClassEvent, 0, len(evs))}
	for i := range evs {
		out.Events = append(out.Events, transport.ClassEventFromModel(&evs[i]))
	}
	c.JSON(http.StatusOK, out)
}

// POST /classes/:id/check-in/:booking_id
func (h *Handler) CheckIn(c *gin.Context) {
	classID, err := transport.ParseID("id", c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	bookingID, err := transport.ParseID("booking_id", c.Param("booking_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	b, err := h.bookings.CheckIn(c.Request.Context(), classID, bookingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transport.BookingFromModel(b))
}

// POST /bookings
func (h *Handler) CreateBooking(c *gin.Context) {
	var in transport.CreateBookingRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, calendar.Invalid("malformed body: %v", err))
		return
	}
	if err := transport.Validate(in); err != nil {
		writeError(c, err)
		return
	}
	classID, err := transport.ParseID("class_id", in.ClassID)
	if err != nil {
		writeError(c, err)
		return
	}

	b, err := h.bookings.CreateBooking(c.Request.Context(), service.CreateBookingInput{
		ClassID:     classID,
		ClientName:  in.ClientName,
		ClientEmail: in.ClientEmail,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transport.BookingFromModel(b))
}

// GET /bookings?email=
func (h *Handler) ListBookings(c *gin.Context) {
	var in transport.ListBookingsRequest
	if err := c.ShouldBindQuery(&in); err != nil {
		writeError(c, calendar.Invalid("malformed query: %v", err))
		return
	}
	if err := transport.Validate(in); err != nil {
		writeError(c, err)
		return
	}

	bookings, err := h.bookings.ListBookingsByEmail(c.Request.Context(), in.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	out := transport.ListBookingsResponse{Bookings: make([]transport.Booking, 0, len(bookings))}
	for i := range bookings {
		out.Bookings = append(out.Bookings, transport.BookingFromModel(&bookings[i]))
	}
	c.JSON(http.StatusOK, out)
}

// writeError отвечает {"error": {"reason", "message"}} с кодом по категории ошибки.
func writeError(c *gin.Context, err error) {
	p := transport.Describe(err)
	if p.Kind == serverrors.KindTransient {
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	c.AbortWithStatusJSON(statusFor(p.Kind), gin.H{
		"error": gin.H{
			"reason":  p.Reason,
			"message": p.Message,
		},
	})
}

func statusFor(kind serverrors.Kind) int {
	switch kind {
	case serverrors.KindNotFound:
		return http.StatusNotFound
	case serverrors.KindValidation:
		return http.StatusBadRequest
	case serverrors.KindBusinessRule:
		return http.StatusConflict
	case serverrors.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

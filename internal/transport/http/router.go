package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Leganyst/fitness-booking/internal/transport"
)

type Deps struct {
	Bookings transport.Bookings
	Classes  transport.Classes
	// Health проверяет зависимости (БД); при nil всегда ok.
	Health         func(ctx context.Context) error
	Log            *slog.Logger
	RequestTimeout time.Duration
}

// NewRouter собирает HTTP-API поверх сервисов.
func NewRouter(d Deps) *gin.Engine {
	log := d.Log.With(slog.String("component", "http"))
	h := &Handler{bookings: d.Bookings, classes: d.Classes}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), requestTimeout(d.RequestTimeout))

	r.GET("/health", health(d.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	classes := r.Group("/classes")
	{
		classes.GET("", h.ListClasses)
		classes.POST("", h.CreateClass)
		classes.GET("/:id", h.GetClass)
		classes.PATCH("/:id", h.UpdateClass)
		classes.POST("/:id/cancel", h.CancelClass)
		classes.GET("/:id/events", h.ListClassEvents)
		classes.POST("/:id/check-in/:booking_id", h.CheckIn)
	}

	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
	}

	return r
}

func health(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// requestTimeout ограничивает время обработки; дедлайн доходит
// до транзакций через context запроса.
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		log.Log(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(started)),
		)
	}
}

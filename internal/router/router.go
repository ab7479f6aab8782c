// Package router registers the HTTP routes.  /api/auth/* is public;
// everything else under /api requires a valid access token and passes
// through the rate limiter.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medibook/doctor-appointment-booking/internal/handler"
	"github.com/medibook/doctor-appointment-booking/internal/middleware"
)

// Deps bundles everything the routes need.
type Deps struct {
	Auth           *handler.AuthHandler
	Appointments   *handler.AppointmentHandler
	Doctors        *handler.DoctorHandler
	Availability   *handler.AvailabilityHandler
	Specialization *handler.SpecializationHandler
	JWTSecret      string
	RateLimit      echo.MiddlewareFunc
}

// Register wires all routes onto the Echo instance.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	if d.RateLimit != nil {
		api.Use(d.RateLimit)
	}

	auth := api.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(d.JWTSecret))

	protected.POST("/appointments/book", d.Appointments.Book)
	protected.POST("/appointments/confirm", d.Appointments.Confirm)
	protected.GET("/appointments", d.Appointments.List)
	protected.PATCH("/appointments/:id/cancel", d.Appointments.Cancel)
	protected.PATCH("/appointments/:id/reschedule", d.Appointments.Reschedule)

	protected.GET("/specializations", d.Specialization.List)
	protected.GET("/doctors", d.Doctors.List)
	protected.GET("/doctors/discover", d.Doctors.Discover)
	protected.GET("/availability", d.Availability.List)
	protected.GET("/availability/:doctorId", d.Availability.ListByDoctor)
}

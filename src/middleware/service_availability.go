package middleware

import (
	"strings"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"limit-book/src/metrics"
	"limit-book/src/models"
)

const (
	reasonMaintenance = "maintenance"
	reasonOverloaded  = "overloaded"
)

// ServiceAvailability answers 503 while the book is in maintenance or when
// more than maxInFlight requests are being served (0 disables the cap).
// Health and metrics endpoints are always served.
type ServiceAvailability struct {
	maintenance atomic.Bool
	maxInFlight int64
	inFlight    atomic.Int64
}

func NewServiceAvailability(maxInFlight int64, maintenance bool) *ServiceAvailability {
	sa := &ServiceAvailability{maxInFlight: maxInFlight}
	sa.maintenance.Store(maintenance)

	log.Info().
		Bool("maintenance", maintenance).
		Int64("max_in_flight", maxInFlight).
		Msg("Service availability checks enabled")
	return sa
}

func (sa *ServiceAvailability) SetMaintenanceMode(enabled bool) {
	sa.maintenance.Store(enabled)
	log.Warn().Bool("maintenance", enabled).Msg("Service maintenance mode changed")
}

func (sa *ServiceAvailability) IsMaintenanceMode() bool {
	return sa.maintenance.Load()
}

func (sa *ServiceAvailability) GetInFlightRequests() int64 {
	return sa.inFlight.Load()
}

// unavailable reports why a request must be turned away, or "" if it may
// proceed.
func (sa *ServiceAvailability) unavailable() string {
	if sa.maintenance.Load() {
		return reasonMaintenance
	}
	if sa.maxInFlight > 0 && sa.inFlight.Load() >= sa.maxInFlight {
		return reasonOverloaded
	}
	return ""
}

func exempt(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/metrics")
}

func (sa *ServiceAvailability) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if exempt(c.Path()) {
			return c.Next()
		}

		if reason := sa.unavailable(); reason != "" {
			metrics.RecordRejected("request", reason)
			log.Warn().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Str("reason", reason).
				Int64("in_flight", sa.inFlight.Load()).
				Msg("Request rejected: service unavailable")
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
				Error: "order book is " + reason + ", try again later",
				Kind:  reason,
			})
		}

		sa.inFlight.Add(1)
		defer sa.inFlight.Add(-1)
		return c.Next()
	}
}

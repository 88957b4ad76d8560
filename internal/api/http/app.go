package httpapi

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/i474232898/weather-favorites/internal/accounts"
	"github.com/i474232898/weather-favorites/internal/store"
	"github.com/i474232898/weather-favorites/internal/weather"
)

// NewApp builds the Fiber app with the shared middleware and error envelope.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "weather-favorites",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          ErrorHandler,
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	return app
}

// ErrorHandler renders every error as {"error": message} with the status
// derived from the error kind.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	var se *weather.ServiceError

	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, store.ErrInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound), errors.Is(err, weather.ErrLocationNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return fiber.StatusConflict
	case errors.As(err, &se):
		if se.Kind == weather.KindSchema {
			return fiber.StatusBadGateway
		}
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-favorites/internal/accounts"
	"github.com/i474232898/weather-favorites/internal/favorites"
	"github.com/i474232898/weather-favorites/internal/store"
	"github.com/i474232898/weather-favorites/internal/weather"
)

var validate = validator.New()

const statusSuccess = "success"

// HealthChecker reports whether the database is usable.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// Services are the dependencies of the HTTP handlers.
type Services struct {
	DB        HealthChecker
	Favorites *store.FavoriteStore
	Accounts  *accounts.Service
	Weather   weather.Gateway
	Lookups   *favorites.Service
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc Services) {
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	api.Get("/db-check", func(c *fiber.Ctx) error {
		if err := svc.DB.Check(c.UserContext()); err != nil {
			log.Printf("ERROR: database check failed: %v", err)
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.JSON(fiber.Map{"database_status": "healthy"})
	})

	registerFavoriteRoutes(api, svc)
	registerUserRoutes(api, svc)
	registerWeatherRoutes(api, svc)
}

func registerFavoriteRoutes(api fiber.Router, svc Services) {
	api.Post("/add-favorite", func(c *fiber.Ctx) error {
		var req addFavoriteRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		if err := svc.Favorites.AddFavorite(c.UserContext(), req.UserID, req.LocationName); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"status":   statusSuccess,
			"location": req.LocationName,
		})
	})

	api.Delete("/delete-favorite/:user_id/:location_name", func(c *fiber.Ctx) error {
		userID, err := parseID("user_id", c.Params("user_id"))
		if err != nil {
			return err
		}
		name, err := url.PathUnescape(c.Params("location_name"))
		if err != nil || strings.TrimSpace(name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "invalid location_name")
		}
		if err := svc.Favorites.DeleteFavorite(c.UserContext(), userID, name); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": statusSuccess})
	})

	api.Get("/get-favorites", func(c *fiber.Ctx) error {
		userID, err := parseID("user_id", c.Query("user_id"))
		if err != nil {
			return err
		}
		locations, err := svc.Favorites.GetFavorites(c.UserContext(), userID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"status":    statusSuccess,
			"locations": locations,
		})
	})

	api.Get("/get-favorite-by-id/:location_id?", func(c *fiber.Ctx) error {
		raw := c.Params("location_id")
		if raw == "" {
			raw = c.Query("location_id")
		}
		id, err := parseID("location_id", raw)
		if err != nil {
			return err
		}
		fav, err := svc.Favorites.GetFavoriteByID(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"status":   statusSuccess,
			"favorite": fav,
		})
	})

	api.Get("/get-weather-for-favorite", func(c *fiber.Ctx) error {
		name, err := requireQuery(c, "location_name")
		if err != nil {
			return err
		}
		summary, err := svc.Lookups.WeatherForFavorite(c.UserContext(), name)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"status":  statusSuccess,
			"weather": summary,
		})
	})

	api.Get("/get-all-favorites-with-weather", func(c *fiber.Ctx) error {
		userID, err := parseID("user_id", c.Query("user_id"))
		if err != nil {
			return err
		}
		entries, err := svc.Lookups.FavoritesWithWeather(c.UserContext(), userID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"status":    statusSuccess,
			"locations": entries,
		})
	})
}

func registerUserRoutes(api fiber.Router, svc Services) {
	api.Post("/create-user", func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		if _, err := svc.Accounts.Register(c.UserContext(), req.Username, req.Password); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"status":   statusSuccess,
			"username": req.Username,
		})
	})

	api.Post("/login", func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		id, err := svc.Accounts.Login(c.UserContext(), req.Username, req.Password)
		if err != nil {
			return hideUnknownUser(err)
		}
		return c.JSON(fiber.Map{
			"status":  statusSuccess,
			"message": "login successful",
			"user_id": id,
		})
	})

	api.Post("/check-password", func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		if err := svc.Accounts.VerifyPassword(c.UserContext(), req.Username, req.Password); err != nil {
			return hideUnknownUser(err)
		}
		return c.JSON(fiber.Map{
			"status":  statusSuccess,
			"message": "passwords match",
		})
	})

	api.Put("/update-password", func(c *fiber.Ctx) error {
		var req updatePasswordRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		err := svc.Accounts.ChangePassword(c.UserContext(), req.Username, req.OldPassword, req.NewPassword)
		if err != nil {
			return hideUnknownUser(err)
		}
		return c.JSON(fiber.Map{
			"status":  statusSuccess,
			"message": fmt.Sprintf("password changed for %s", req.Username),
		})
	})

	api.Get("/get-id-by-username", func(c *fiber.Ctx) error {
		username, err := requireQuery(c, "username")
		if err != nil {
			return err
		}
		id, err := svc.Accounts.UserID(c.UserContext(), username)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"status":  statusSuccess,
			"user_id": id,
		})
	})
}

func registerWeatherRoutes(api fiber.Router, svc Services) {
	forecastHandler := func(lookup func(ctx context.Context, name string) (weather.Forecast, error)) fiber.Handler {
		return func(c *fiber.Ctx) error {
			name, err := requireQuery(c, "location_name")
			if err != nil {
				return err
			}
			forecast, err := lookup(c.UserContext(), name)
			if err != nil {
				return err
			}
			return c.JSON(fiber.Map{
				"status":   statusSuccess,
				"forecast": forecast,
			})
		}
	}

	api.Get("/get-hourly-forecast", forecastHandler(svc.Weather.HourlyForecast))
	api.Get("/get-daily-forecast", forecastHandler(svc.Weather.DailyForecast))

	api.Get("/get-dated-forecast", func(c *fiber.Ctx) error {
		var q datedForecastQuery
		if err := q.bind(c); err != nil {
			return err
		}
		summary, err := svc.Weather.DatedForecast(c.UserContext(), q.LocationName, q.Date)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"status":   statusSuccess,
			"forecast": summary,
		})
	})
}

// addFavoriteRequest is the body of POST /api/add-favorite.
type addFavoriteRequest struct {
	UserID       uint   `json:"user_id" validate:"required"`
	LocationName string `json:"location_name" validate:"required,notblank"`
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

type updatePasswordRequest struct {
	Username    string `json:"username" validate:"required,notblank"`
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// datedForecastQuery holds query parameters for the dated forecast endpoint.
type datedForecastQuery struct {
	LocationName string    `validate:"required,notblank"`
	Date         time.Time `validate:"required"`
}

func (q *datedForecastQuery) bind(c *fiber.Ctx) error {
	q.LocationName = c.Query("location_name")

	raw := c.Query("date")
	if raw == "" {
		return fiber.NewError(fiber.StatusBadRequest, "date query parameter is required")
	}
	date, err := time.Parse(weather.DateLayout, raw)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid date; use YYYY-MM-DD")
	}
	q.Date = date

	if err := validate.Struct(q); err != nil {
		return invalidInput(err)
	}
	return nil
}

func init() {
	if err := registerValidations(validate); err != nil {
		log.Fatalf("failed to register request validations: %v", err)
	}
}

// registerValidations names fields by their json tag and adds notblank,
// which rejects strings made only of whitespace.
func registerValidations(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// bindJSON decodes the request body into req and validates it.
func bindJSON(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return invalidInput(err)
	}
	return nil
}

// invalidInput lists the offending fields of a validation failure.
func invalidInput(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fiber.NewError(fiber.StatusBadRequest,
		"invalid input, required fields missing or empty: "+strings.Join(fields, ", "))
}

func requireQuery(c *fiber.Ctx, key string) (string, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, key+" query parameter is required")
	}
	return v, nil
}

func parseID(key, raw string) (uint, error) {
	if raw == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" is required")
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return uint(n), nil
}

// hideUnknownUser reports an unknown username like a wrong password.
func hideUnknownUser(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return accounts.ErrInvalidCredentials
	}
	return err
}

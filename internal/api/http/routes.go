package httpapi

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tripwatch/travel-safety-api/internal/cache"
	"github.com/tripwatch/travel-safety-api/internal/geo"
	"github.com/tripwatch/travel-safety-api/internal/travel"
)

var validate = validator.New()

// advisoryMapTTL bounds how long the bulk advisory map is served from the
// process cache. A miss just refetches the feed.
const advisoryMapTTL = 10 * time.Minute

// Searcher is the search cache entry point.
type Searcher interface {
	Search(ctx context.Context, q travel.Query) (*travel.SearchResult, error)
}

// AdvisorySource supplies the country-to-risk-level map for overlays.
type AdvisorySource interface {
	AllAdvisories(ctx context.Context) (map[string]int, error)
}

// CountrySource reads the country reference cache.
type CountrySource interface {
	Get(ctx context.Context, name, code string) (*travel.CountryInfo, error)
}

// EmergencySource reads the emergency-numbers reference cache.
type EmergencySource interface {
	Get(ctx context.Context, name, code string) (*travel.EmergencyInfo, error)
}

// CurrencySource reads the currency reference cache.
type CurrencySource interface {
	Get(ctx context.Context) (*travel.CurrencyRates, error)
}

// LocationSource resolves coordinates or client IPs to a place.
type LocationSource interface {
	FromCoordinates(ctx context.Context, lat, lon float64) (*geo.Place, error)
	FromIP(ctx context.Context, ip string) (*geo.Place, error)
}

// Handlers bundles the dependencies the HTTP surface needs.
type Handlers struct {
	Search     Searcher
	Advisories AdvisorySource
	Countries  CountrySource
	Emergency  EmergencySource
	Currency   CurrencySource
	Locator    LocationSource

	advisoryMap *cache.Cache[map[string]int]
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, h *Handlers) {
	h.advisoryMap = cache.New[map[string]int](advisoryMapTTL)

	v1 := app.Group("/api/v1")

	v1.Post("/travel/search", func(c *fiber.Ctx) error {
		var q travel.Query
		if err := c.BodyParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
		}

		result, err := h.Search.Search(c.Context(), q)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch travel data")
		}
		return c.JSON(result)
	})

	v1.Get("/travel/all", func(c *fiber.Ctx) error {
		if levels, ok := h.advisoryMap.Get("all"); ok {
			return c.JSON(levels)
		}

		levels, err := h.Advisories.AllAdvisories(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch advisories")
		}
		h.advisoryMap.Set("all", levels)
		return c.JSON(levels)
	})

	v1.Get("/country", func(c *fiber.Ctx) error {
		name, code := c.Query("name"), c.Query("code")
		if name == "" && code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name or code query parameter is required")
		}

		info, err := h.Countries.Get(c.Context(), name, code)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch country data")
		}
		if info == nil {
			return fiber.NewError(fiber.StatusNotFound, "no country data available")
		}
		return c.JSON(info)
	})

	v1.Get("/emergency", func(c *fiber.Ctx) error {
		name, code := c.Query("name"), c.Query("code")
		if name == "" && code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name or code query parameter is required")
		}

		info, err := h.Emergency.Get(c.Context(), name, code)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch emergency data")
		}
		if info == nil {
			return fiber.NewError(fiber.StatusNotFound, "no emergency data available")
		}
		return c.JSON(info)
	})

	v1.Get("/currency", func(c *fiber.Ctx) error {
		rates, err := h.Currency.Get(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch currency rates")
		}
		if rates == nil {
			return fiber.NewError(fiber.StatusNotFound, "no currency rates available")
		}
		return c.JSON(rates)
	})

	v1.Get("/geolocation", func(c *fiber.Ctx) error {
		latStr, lonStr := c.Query("lat"), c.Query("lon")

		// GPS coordinates win over IP detection.
		if latStr != "" && lonStr != "" {
			lat, errLat := strconv.ParseFloat(latStr, 64)
			lon, errLon := strconv.ParseFloat(lonStr, 64)
			if errLat != nil || errLon != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid coordinates")
			}

			place, err := h.Locator.FromCoordinates(c.Context(), lat, lon)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to resolve coordinates")
			}
			return c.JSON(fiber.Map{"location": place})
		}

		place, err := h.Locator.FromIP(c.Context(), clientIP(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to resolve location")
		}
		return c.JSON(fiber.Map{"location": place})
	})
}

func clientIP(c *fiber.Ctx) string {
	ip := c.Get("X-Forwarded-For")
	if ip == "" {
		return c.IP()
	}
	if idx := strings.Index(ip, ","); idx >= 0 {
		ip = ip[:idx]
	}
	return strings.TrimSpace(ip)
}

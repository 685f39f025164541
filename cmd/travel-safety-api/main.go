package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tripwatch/travel-safety-api/internal/advisory"
	httpapi "github.com/tripwatch/travel-safety-api/internal/api/http"
	"github.com/tripwatch/travel-safety-api/internal/config"
	"github.com/tripwatch/travel-safety-api/internal/geo"
	"github.com/tripwatch/travel-safety-api/internal/logger"
	"github.com/tripwatch/travel-safety-api/internal/refdata"
	"github.com/tripwatch/travel-safety-api/internal/scheduler"
	"github.com/tripwatch/travel-safety-api/internal/store"
	"github.com/tripwatch/travel-safety-api/internal/travel"
	"github.com/tripwatch/travel-safety-api/internal/travel/providers"
)

func main() {
	logger.Init()
	defer logger.Sync()
	mainLog := logger.GetLogger("main")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Persistence: mongo when configured, otherwise in-memory.
	var (
		recordStore    travel.RecordStore
		countryStore   refdata.CountryPersistence
		emergencyStore refdata.EmergencyPersistence
		currencyStore  refdata.CurrencyPersistence
		reclaimer      scheduler.Reclaimer
	)
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoStore, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		cancel()
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoStore.Close(ctx)
		}()

		recordStore = mongoStore
		countryStore = mongoStore
		emergencyStore = mongoStore
		currencyStore = mongoStore
		// Expiry is handled by mongo TTL indexes.
		mainLog.Infow("using mongo store", "database", cfg.MongoDatabase)
	} else {
		memStore := store.NewMemoryStore()
		recordStore = memStore
		countryStore = memStore
		emergencyStore = memStore
		currencyStore = memStore
		reclaimer = memStore
		mainLog.Warn("MONGODB_URI not set; using in-memory store")
	}

	// Provider adapters.
	weatherProvider := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey)
	airProvider := providers.NewAirQualityProvider(httpClient, cfg.AirQualityAPIKey)
	countriesProvider := providers.NewCountriesProvider(httpClient)
	emergencyProvider := providers.NewEmergencyNumbersProvider(httpClient)
	currencyProvider := providers.NewCurrencyProvider(httpClient)

	// Reference-data caches in front of the bulk providers.
	countryCache := refdata.NewCountryCache(countryStore, countriesProvider)
	emergencyCache := refdata.NewEmergencyCache(emergencyStore, emergencyProvider)
	currencyCache := refdata.NewCurrencyCache(currencyStore, currencyProvider)

	advisoryService := advisory.NewService(httpClient)

	aggregator := travel.NewAggregator(weatherProvider, airProvider, advisoryService, countryCache, emergencyCache)
	searchService := travel.NewSearchService(recordStore, aggregator)

	locator := geo.NewLocator(httpClient, cfg.IPGeolocationAPIKey, cfg.GeocoderAPIKey, weatherProvider)

	// Background warm refresh and storage reclaim.
	sched := scheduler.New(cfg.RefreshInterval,
		[]scheduler.Refresher{countryCache, emergencyCache, currencyCache},
		reclaimer,
	)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "travel-safety-api",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "travel-safety-api",
		})
	})

	httpapi.RegisterRoutes(app, &httpapi.Handlers{
		Search:     searchService,
		Advisories: advisoryService,
		Countries:  countryCache,
		Emergency:  emergencyCache,
		Currency:   currencyCache,
		Locator:    locator,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			mainLog.Errorw("fiber server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mainLog.Errorw("error during shutdown", "error", err)
	}
}

package api

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joacominatel/peerpods/internal/application"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
	"github.com/joacominatel/peerpods/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for route registration.
type RouterConfig struct {
	UpsertProfile   *application.UpsertProfileUseCase
	ListCommunities *application.ListCommunitiesUseCase
	CreateCommunity *application.CreateCommunityUseCase
	JoinCommunity   *application.JoinCommunityUseCase
	RecordActivity  *application.RecordActivityUseCase
	DiscoverPeers   *application.DiscoverPeersUseCase
	FindPartner     *application.FindPartnerUseCase
	EndPartnership  *application.EndPartnershipUseCase

	Validator TokenValidator
	Health    *HealthHandler
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
}

// RegisterRoutes sets up all API routes on the server.
func RegisterRoutes(e *echo.Echo, config RouterConfig) {
	// prometheus metrics endpoint (no auth, standard scraping path)
	if config.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
			config.Metrics.Registry,
			promhttp.HandlerOpts{
				Registry:          config.Metrics.Registry,
				EnableOpenMetrics: true,
			},
		)))

		e.Use(metrics.Middleware(config.Metrics))
	}

	if config.Health != nil {
		config.Health.RegisterHealthRoutes(e)
	}

	// every v1 route acts for the signed-in caller
	v1 := e.Group("/api/v1")
	v1.Use(AuthMiddleware(AuthConfig{
		Validator: config.Validator,
		Skipper:   PublicRoutesSkipper("/health", "/ready", "/metrics"),
	}))

	NewProfileHandler(config.UpsertProfile).RegisterRoutes(v1)
	NewCommunityHandler(config.ListCommunities, config.CreateCommunity, config.JoinCommunity, config.FindPartner).RegisterRoutes(v1)
	NewActivityHandler(config.RecordActivity).RegisterRoutes(v1)
	NewMatchHandler(config.DiscoverPeers, config.EndPartnership).RegisterRoutes(v1)

	config.Logger.Info("api routes registered",
		"version", "v1",
		"health_endpoints", []string{"/health", "/ready"},
		"metrics_enabled", config.Metrics != nil,
		"api_prefix", "/api/v1",
	)
}

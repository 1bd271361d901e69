package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joacominatel/peerpods/internal/application"
	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/api"
	"github.com/joacominatel/peerpods/internal/infrastructure/auth"
	"github.com/joacominatel/peerpods/internal/infrastructure/cache"
	"github.com/joacominatel/peerpods/internal/infrastructure/config"
	"github.com/joacominatel/peerpods/internal/infrastructure/database"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
	"github.com/joacominatel/peerpods/internal/infrastructure/messaging"
	"github.com/joacominatel/peerpods/internal/infrastructure/metrics"
	"github.com/joacominatel/peerpods/internal/infrastructure/postgres"
	"github.com/joacominatel/peerpods/internal/infrastructure/worker"
)

const (
	// communityCacheTTL bounds how stale an existence check may be
	communityCacheTTL = time.Minute

	// cacheCleanupInterval is how often expired existence entries are evicted
	cacheCleanupInterval = 5 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and serve the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := logging.NewWithLevel(logging.ParseLevel(cfg.Log.Level))
	logger.Info("peerpods starting up", "version", version)

	conn, err := database.New(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	migrator := database.NewMigrator(conn, logger)
	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	if err := migrator.Run(ctx); err != nil {
		return err
	}

	if err := conn.HealthCheck(ctx); err != nil {
		return err
	}

	logger.Info("peerpods infrastructure ready", "schema", conn.Schema())

	appMetrics := metrics.New()
	jwtValidator := auth.NewJWTValidator(cfg.Auth.JWTSecret)

	// repositories
	pool := conn.Pool()
	uow := postgres.NewUnitOfWork(pool)
	userRepo := postgres.NewUserRepository(pool)
	postgresCommunityRepo := postgres.NewCommunityRepository(pool)
	membershipRepo := postgres.NewMembershipRepository(pool)
	eventRepo := postgres.NewActivityEventRepository(pool)
	partnershipRepo := postgres.NewPartnershipRepository(pool)

	readiness := map[string]api.Pinger{"postgres": conn}

	// redis is optional, disabled if REDIS_URL is empty
	var communityRepo domain.CommunityRepository = postgresCommunityRepo
	redisClient, err := cache.NewRedisClient(cache.RedisConfig{
		URL:      cfg.Redis.URL,
		MatchTTL: cfg.Matching.CacheTTL,
	}, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		if err := redisClient.Connect(ctx); err != nil {
			logger.Warn("redis connection failed, continuing without cache", "error", err.Error())
			redisClient = nil
		} else {
			defer redisClient.Close()
			communityRepo = cache.NewCommunityRepositoryWithCache(postgresCommunityRepo, redisClient, logger)
			readiness["redis"] = redisClient
			logger.Info("redis match cache and pod ranking enabled")
		}
	}

	// nats is optional, disabled if NATS_URL is empty
	natsClient, err := messaging.NewNATSClient(messaging.DefaultNATSConfig(cfg.NATS.URL), logger)
	if err != nil {
		logger.Warn("nats connection failed, continuing without notifications", "error", err.Error())
		natsClient = nil
	}
	if natsClient != nil {
		defer natsClient.Close()
		readiness["nats"] = natsClient
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// start workers before accepting requests
	ingestionWorker := worker.NewActivityIngestionWorker(eventRepo, worker.DefaultActivityIngestionConfig(), logger).
		WithMetrics(appMetrics)
	ingestionWorker.Start(workerCtx)

	var notifier *worker.PartnershipNotifier
	if natsClient != nil {
		notifier = worker.NewPartnershipNotifier(natsClient, worker.DefaultPartnershipNotifierConfig(), logger)
		notifier.Start(workerCtx)
	}

	communityExistsCache := cache.NewCommunityExistsCache(postgresCommunityRepo, communityCacheTTL)
	go runCacheCleanup(workerCtx, communityExistsCache, logger)

	// use cases
	upsertProfile := application.NewUpsertProfileUseCase(userRepo, logger)
	listCommunities := application.NewListCommunitiesUseCase(communityRepo)
	createCommunity := application.NewCreateCommunityUseCase(communityRepo, userRepo, membershipRepo, uow, logger)
	joinCommunity := application.NewJoinCommunityUseCase(userRepo, communityRepo, membershipRepo, logger).
		WithCommunityChecker(communityExistsCache)
	recordActivity := application.NewRecordActivityUseCase(userRepo, communityRepo, membershipRepo, eventRepo, uow, logger).
		WithEventChannel(ingestionWorker.EventChannel()).
		WithCommunityChecker(communityExistsCache)
	discoverPeers := application.NewDiscoverPeersUseCase(userRepo, membershipRepo, eventRepo, application.DiscoveryOptions{
		CandidateLimit: cfg.Matching.CandidateLimit,
		DisplayGoals:   cfg.Matching.DisplayGoals,
		Workers:        cfg.Matching.Workers,
	}, logger).WithMetrics(appMetrics)
	findPartner := application.NewFindPartnerUseCase(userRepo, communityRepo, membershipRepo, partnershipRepo, uow, cfg.Matching.CandidateLimit, logger).
		WithCommunityChecker(communityExistsCache).
		WithMetrics(appMetrics)
	endPartnership := application.NewEndPartnershipUseCase(userRepo, partnershipRepo, logger)

	// only wire optional collaborators when they exist, a typed nil would pass the nil checks
	if redisClient != nil {
		upsertProfile.WithMatchCache(redisClient)
		createCommunity.WithPodRanking(redisClient)
		joinCommunity.WithPodRanking(redisClient).WithMatchCache(redisClient)
		discoverPeers.WithMatchCache(redisClient)
	}
	if notifier != nil {
		findPartner.WithNotifier(notifier)
	}

	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = ":" + cfg.Server.Port
	serverConfig.RequestTimeout = cfg.Server.RequestTimeout
	serverConfig.BodyLimit = cfg.Server.BodyLimit

	server := api.NewServer(serverConfig, logger)

	api.RegisterRoutes(server.Echo(), api.RouterConfig{
		UpsertProfile:   upsertProfile,
		ListCommunities: listCommunities,
		CreateCommunity: createCommunity,
		JoinCommunity:   joinCommunity,
		RecordActivity:  recordActivity,
		DiscoverPeers:   discoverPeers,
		FindPartner:     findPartner,
		EndPartnership:  endPartnership,
		Validator:       jwtValidator,
		Health:          api.NewHealthHandler(readiness, logger),
		Logger:          logger,
		Metrics:         appMetrics,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server error", "error", err.Error())
		}
	}

	logger.Info("peerpods shutting down")

	// stop taking requests first so no new events reach the workers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err.Error())
	}

	// drain buffered events and notifications
	workerCancel()
	ingestionWorker.Stop()
	if notifier != nil {
		notifier.Stop()
	}

	logger.Info("peerpods shutdown complete")
	return nil
}

// runCacheCleanup evicts expired community existence entries until ctx is cancelled.
func runCacheCleanup(ctx context.Context, c *cache.CommunityExistsCache, logger *logging.Logger) {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup()
			logger.Debug("community cache cleaned", "entries", c.Size())
		}
	}
}

package main

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/neopos/auth-service/internal/api"
	"github.com/neopos/auth-service/internal/controller"
	"github.com/neopos/auth-service/internal/migrations"
	"github.com/neopos/auth-service/internal/seclog"
	"github.com/neopos/auth-service/internal/service"
	"github.com/neopos/auth-service/internal/storage"
	"github.com/neopos/auth-service/internal/storage/memory"
	"github.com/neopos/auth-service/internal/storage/postgres"
	redisstorage "github.com/neopos/auth-service/internal/storage/redis"
	"github.com/neopos/auth-service/internal/util"

	_ "github.com/lib/pq"
)

func main() {
	ctx := context.Background()
	logger := util.NewZapLogger()

	serverConfig := util.NewServerConfig()
	if serverConfig.SentryDSN != "" {
		environment := "development"
		if serverConfig.Production {
			environment = "production"
		}
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         serverConfig.SentryDSN,
			Environment: environment,
		}); err != nil {
			logger.Fatalf("sentry init: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, dbCleanup, err := util.NewDBConnection(logger)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	if err := migrations.RunMigrations(db, logger, "./internal/migrations"); err != nil {
		logger.Fatal(zap.Error(err))
	}

	redisClient, redisCleanup, err := util.NewRedisClient(logger, util.NewRedisConfig())
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	cleanupFuncs := []func(){dbCleanup, redisCleanup}

	users := postgres.NewUserRepository(db)
	counters := redisstorage.NewCounterStore(redisClient)
	events := seclog.NewRecorder(logger)

	blacklistConfig := util.NewBlacklistConfig()
	var blacklist storage.BlacklistStore
	if blacklistConfig.Backend == "redis" {
		blacklist = redisstorage.NewBlacklist(redisClient)
	} else {
		inMemory := memory.NewBlacklist(logger)
		inMemory.StartSweeper(ctx, blacklistConfig.SweepInterval)
		blacklist = inMemory
	}

	tokenService := service.NewTokenService(util.NewTokenConfig(), blacklist, users, events)
	bruteForceGuard := service.NewBruteForceGuard(util.NewBruteForceConfig(), counters, events)
	authService := service.NewAuthService(users, bruteForceGuard, tokenService, events)

	csrfGuard := api.NewCsrfGuard(util.NewCsrfConfig(serverConfig.Production), events)

	c := controller.NewController(logger, authService, tokenService, users, csrfGuard, events, serverConfig.Production)

	apiServer := api.NewAPI(
		c,
		tokenService,
		csrfGuard,
		util.NewDocsConfig(serverConfig.Production),
		counters,
		events,
		serverConfig,
		logger,
		cleanupFuncs,
	)
	apiServer.Run(ctx)
}

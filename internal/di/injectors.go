//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"instametrics/internal"
	"instametrics/internal/collector"
	"instametrics/internal/controllers"
	"instametrics/internal/database"
	"instametrics/internal/graph"
	"instametrics/internal/providers"
	"instametrics/internal/repository"
	"instametrics/internal/services"
	"instametrics/internal/structures"
)

var infrastructureSet = wire.NewSet(
	providers.NewConfigProvider,
	providers.NewLogProvider,
	providers.NewMetricsProvider,
	database.NewDatabaseProvider,
	graph.NewClient,
)

var repositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewAuditRepository,
	repository.NewCredentialRepository,
	repository.NewHistoryRepository,
)

var serviceSet = wire.NewSet(
	services.NewAuthService,
	services.NewRegistryService,
	services.NewInsightService,
	services.NewGrowthService,
	collector.NewArchiveProvider,
	collector.NewScheduler,
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		infrastructureSet,
		repositorySet,
		serviceSet,
		providers.NewInstrumentedCacheProvider,
		NewTokenValidator,
		providers.NewAuthMiddleware,

		wire.Bind(new(controllers.Pinger), new(*database.DB)),
		controllers.NewApiController,
		controllers.NewInsightsController,
		controllers.NewFollowersController,
		controllers.NewTokenController,
		controllers.NewAuthController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}

func InitAdmin(cfg *structures.CliFlags) (*internal.Admin, error) {

	wire.Build(
		infrastructureSet,
		repositorySet,
		serviceSet,
		internal.NewAdmin,
	)

	return nil, nil
}

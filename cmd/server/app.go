package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"query-gateway/internal/config"
	"query-gateway/internal/controller"
	"query-gateway/internal/database"
	"query-gateway/internal/database/metadata"
	"query-gateway/internal/logging"
	"query-gateway/internal/repository"
	"query-gateway/internal/router"
	"query-gateway/internal/security"
	"query-gateway/internal/service"
)

const version = "1.0.0"

// app holds the long-lived components shared by every subcommand.
type app struct {
	cfg         *config.Config
	logger      *logrus.Logger
	db          *gorm.DB
	repo        repository.DataSourceRepository
	connector   *database.Connector
	health      *database.HealthChecker
	cache       *metadata.SchemaCache
	dataSources service.DataSourceService
	tables      *service.TableService
	queries     service.QueryService
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, err
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	db, err := config.InitDatabase(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metadata store: %w", err)
	}

	vault, err := security.NewCredentialVault(security.KeyFromString(cfg.Security.EncryptionKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create credential vault: %w", err)
	}

	sqlValidator, err := security.NewSQLValidator(0)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQL validator: %w", err)
	}

	registry := database.GetDriverRegistry()
	connector := database.NewConnector(registry)
	health := database.NewHealthChecker(connector, registry)
	cache := metadata.NewSchemaCache(cfg.Query.SchemaCacheSize, cfg.Query.SchemaCacheTTL)
	repo := repository.NewDataSourceRepository(db)

	dataSources := service.NewDataSourceService(repo, vault, health, cache, logger)
	tables := service.NewTableService(dataSources, connector, metadata.NewMetadataExtractor(logger),
		cache, cfg.Query.MSSQLDefaultSchema, logger)
	queries := service.NewQueryService(dataSources, connector, tables, sqlValidator, service.QueryOptions{
		DefaultPageSize:     cfg.Query.DefaultPageSize,
		MaxPageSize:         cfg.Query.MaxPageSize,
		ValidateIdentifiers: cfg.Query.ValidateIdentifiers,
		DefaultSchema:       cfg.Query.MSSQLDefaultSchema,
		Timeout:             cfg.Query.Timeout,
	}, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		repo:        repo,
		connector:   connector,
		health:      health,
		cache:       cache,
		dataSources: dataSources,
		tables:      tables,
		queries:     queries,
	}, nil
}

func (a *app) controllers() router.Controllers {
	return router.Controllers{
		DataSources: controller.NewDataSourceController(a.dataSources, a.logger),
		Queries:     controller.NewQueryController(a.queries, a.cfg.Query.DefaultGetPageSize, a.logger),
		Tables:      controller.NewTableController(a.tables, a.logger),
		Databases:   controller.NewDatabaseController(a.health),
		Health:      controller.NewHealthController(a.repo, a.connector, a.cache, version),
	}
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close metadata store")
		}
	}
}

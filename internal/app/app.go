package app

import (
	"go.uber.org/fx"

	"github.com/harvest-finance/harvest/internal/auth"
	"github.com/harvest-finance/harvest/internal/cache"
	"github.com/harvest-finance/harvest/internal/config"
	"github.com/harvest-finance/harvest/internal/database"
	"github.com/harvest-finance/harvest/internal/escrow"
	"github.com/harvest-finance/harvest/internal/logger"
	"github.com/harvest-finance/harvest/internal/messaging"
	"github.com/harvest-finance/harvest/internal/observability"
	repositoryorder "github.com/harvest-finance/harvest/internal/repository/order"
	grpcserver "github.com/harvest-finance/harvest/internal/server/grpc"
	httpserver "github.com/harvest-finance/harvest/internal/server/http"
	serviceorder "github.com/harvest-finance/harvest/internal/service/order"
	transporthttp "github.com/harvest-finance/harvest/internal/transport/http"
	"github.com/harvest-finance/harvest/internal/worker"
	workerorder "github.com/harvest-finance/harvest/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	logger.Module,
	observability.Module,
	database.Module,
	cache.Module,
	messaging.Module,
	auth.Module,
	escrow.Module,
	repositoryorder.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP and gRPC transports on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP

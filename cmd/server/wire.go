//go:build wireinject
// +build wireinject

package main

import (
	"log/slog"
	"net/http"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"

	"github.com/biatec-io/gdrive-account/internal/config"
	"github.com/biatec-io/gdrive-account/internal/handler"
	"github.com/biatec-io/gdrive-account/internal/repository"
	"github.com/biatec-io/gdrive-account/internal/server"
	"github.com/biatec-io/gdrive-account/internal/service"
)

type Application struct {
	Config  *config.Config
	Server  *http.Server
	Cleanup func()
}

func initializeApplication() (*Application, error) {
	wire.Build(
		config.ProviderSet,

		repository.ProviderSet,
		service.ProviderSet,
		handler.ProviderSet,

		server.ProviderSet,

		provideCleanup,

		wire.Struct(new(Application), "Config", "Server", "Cleanup"),
	)
	return nil, nil
}

func provideCleanup(rdb *redis.Client) func() {
	return func() {
		if err := rdb.Close(); err != nil {
			slog.Warn("redis close failed", "error", err)
		}
	}
}

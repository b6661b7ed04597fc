//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/riveredge/riveredge/internal/bootstrap"
	"github.com/riveredge/riveredge/internal/core/config"
	"github.com/riveredge/riveredge/internal/core/logic"
	"github.com/riveredge/riveredge/internal/core/registry"
	"github.com/riveredge/riveredge/internal/core/repo"
	"github.com/riveredge/riveredge/internal/core/router"
	"github.com/riveredge/riveredge/pkg/cache"
	"github.com/riveredge/riveredge/pkg/database"
)

func initApp(configPath string) (*bootstrap.App, func(), error) {
	panic(wire.Build(
		config.ProviderSet,
		database.ProviderSet,
		cache.ProviderSet,
		repo.ProviderSet,
		logic.ProviderSet,
		registry.ProviderSet,
		router.ProviderSet,
		bootstrap.NewApp,
	))
}

// Package di provides dependency injection configuration for the shelfkeeper server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/shelfkeeper/shelfkeeper/internal/auth"
	"github.com/shelfkeeper/shelfkeeper/internal/config"
	"github.com/shelfkeeper/shelfkeeper/internal/di/providers"
	"github.com/shelfkeeper/shelfkeeper/internal/logger"
	"github.com/shelfkeeper/shelfkeeper/internal/service"
	"github.com/shelfkeeper/shelfkeeper/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()
	Register(injector)
	return injector
}

// Register adds every provider to injector. A *config.Config provided
// beforehand is kept.
func Register(injector do.Injector) {
	// Core infrastructure
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		do.Provide(injector, providers.ProvideConfig)
	}
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideHasher)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideCollectionService)
	do.Provide(injector, providers.ProvideItemService)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)
}

// Bootstrap initializes all services. The HTTP server is listening once it
// returns without error.
func Bootstrap(injector do.Injector) error {
	steps := []func(do.Injector) error{
		invoke[*config.Config],
		invoke[*logger.Logger],
		invoke[providers.AuthKey],
		invoke[*providers.SSEManagerHandle],
		invoke[*providers.StoreHandle],
		invoke[*auth.TokenService],
		invoke[*validation.Validator],
		invoke[*service.AuthService],
		invoke[*service.CollectionService],
		invoke[*service.ItemService],
		invoke[*providers.RateLimiterHandle],
		invoke[*providers.HTTPServerHandle],
	}
	for _, step := range steps {
		if err := step(injector); err != nil {
			return err
		}
	}
	return nil
}

func invoke[T any](i do.Injector) error {
	_, err := do.Invoke[T](i)
	return err
}

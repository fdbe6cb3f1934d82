//go:build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/sandeepkv93/secure-session-auth-service/internal/app"
	"github.com/sandeepkv93/secure-session-auth-service/internal/config"
)

// InitializeApp builds the App. The returned cleanup flushes telemetry, then
// closes Redis and the database, and shuts the log pipeline down last.
func InitializeApp(ctx context.Context, cfg *config.Config) (*app.App, func(), error) {
	wire.Build(
		ConfigSet,
		StorageSet,
		SecuritySet,
		ServiceSet,
		HealthSet,
		app.New,
	)
	return nil, nil, nil
}

package main

import (
	"context"
	"io/fs"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	appkg "github.com/xenking/checkout-intent/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		// Local development secrets; deployments use real environment.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrap(err, "load .env")
		}
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		return appkg.Run(ctx, lg, m, cfg)
	})
}

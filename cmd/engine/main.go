package main

import (
	"context"
	"fmt"
	"os"

	"score/commons/config"
	"score/commons/server"
	internalConfig "score/internal/config"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

func main() {
	cmd := &cli.Command{
		Name:  "score-engine",
		Usage: "Run flow executions from compiled plans",
		Flags: config.Flags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			return run(ctx, config.FromCommand(command))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options(settings config.Settings) fx.Option {
	return fx.Options(
		fx.Supply(settings),
		fx.Provide(
			config.ProvideLogger,
			config.ProvideRouteDependencies,
			config.ProvideServerConfig,
			config.ProvideSQSClient,
			config.ProvideDynamoDBClient,
			config.ProvideSlackClient,
			config.ProvideZooKeeperCoordinator,
			config.ProvideRedisCache,
			internalConfig.ProvideCounterRepository,
			internalConfig.ProvideSplitRepository,
			internalConfig.ProvidePauseRepository,
			internalConfig.ProvideWorkerRepository,
			internalConfig.ProvideKeyLocker,
			internalConfig.ProvideCodec,
			internalConfig.ProvidePlanRegistry,
			internalConfig.ProvidePlanStore,
			internalConfig.ProvidePlanManager,
			internalConfig.ProvideEventBus,
			internalConfig.ProvideFailureNotifier,
			internalConfig.ProvideEngine,
			internalConfig.ProvideJoinReconciler,
			internalConfig.ProvideHealthHandler,
			internalConfig.ProvideExecutionHandler,
			internalConfig.ProvideWorkerHandler,
			internalConfig.ProvidePlanHandler,
			internalConfig.ProvideRouterConfig,
			internalConfig.ProvideRouteInitializer,
			config.ProvideRouter,
			server.NewHTTPServer,
		),
		// infrastructure first so its OnStop hook runs last
		fx.Invoke(internalConfig.ManageInfrastructureLifecycle),
		fx.Invoke(internalConfig.ManageEngineLifecycle),
	)
}

func run(ctx context.Context, settings config.Settings) error {
	app := fx.New(
		options(settings),
		fx.WithLogger(config.ProvideFxLogger),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	select {
	case <-app.Done():
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop engine: %w", err)
	}
	return nil
}

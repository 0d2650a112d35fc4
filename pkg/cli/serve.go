package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Quangdung1996/chat-sub001/pkg/cli/config"
	httpctrl "github.com/Quangdung1996/chat-sub001/pkg/controller/http"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/Quangdung1996/chat-sub001/pkg/service/worker"
	"github.com/Quangdung1996/chat-sub001/pkg/usecase"
	"github.com/Quangdung1996/chat-sub001/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var resyncInterval time.Duration
	var retryAttempts int
	var retryDelay time.Duration
	var bulkInterval time.Duration
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var rocketCfg config.Rocket

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("CHATSYNC_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "resync-interval",
			Usage:       "Interval between periodic mapping resyncs (0 disables the worker)",
			Value:       time.Hour,
			Sources:     cli.EnvVars("CHATSYNC_RESYNC_INTERVAL"),
			Destination: &resyncInterval,
		},
		&cli.IntFlag{
			Name:        "retry-attempts",
			Usage:       "Attempts for retryable platform failures",
			Value:       3,
			Sources:     cli.EnvVars("CHATSYNC_RETRY_ATTEMPTS"),
			Destination: &retryAttempts,
		},
		&cli.DurationFlag{
			Name:        "retry-delay",
			Usage:       "Delay between retry attempts",
			Value:       500 * time.Millisecond,
			Sources:     cli.EnvVars("CHATSYNC_RETRY_DELAY"),
			Destination: &retryDelay,
		},
		&cli.DurationFlag{
			Name:        "bulk-interval",
			Usage:       "Pacing between individual calls of a bulk membership operation",
			Value:       250 * time.Millisecond,
			Sources:     cli.EnvVars("CHATSYNC_BULK_INTERVAL"),
			Destination: &bulkInterval,
		},
	}

	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, rocketCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			orgConfig, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load application configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			rocketSvc, err := rocketCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure platform client")
			}

			ucOpts := []usecase.Option{
				usecase.WithRetry(retryAttempts, retryDelay),
				usecase.WithBulkRate(bulkInterval, 1),
			}
			if orgConfig != nil {
				ucOpts = append(ucOpts, usecase.WithOrgConfig(orgConfig))
				logging.Default().Info("Organization config loaded",
					"departments", len(orgConfig.Departments),
					"projects", len(orgConfig.Projects),
				)
			}

			uc := usecase.New(repo, rocketSvc, ucOpts...)

			var resyncWorker *worker.MappingResyncWorker
			if resyncInterval > 0 {
				resyncWorker = worker.NewMappingResyncWorker(uc.Identity, resyncInterval)
				if err := resyncWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start mapping resync worker")
				}
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if resyncWorker != nil {
					resyncWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				// End any live platform sessions
				for _, owner := range []types.OwnerClass{types.OwnerAdmin, types.OwnerBot} {
					if out := rocketSvc.Logout(shutdownCtx, owner); out.IsFailed() {
						logging.Default().Warn("failed to end platform session",
							"owner", owner, "error", out.Err().Error())
					}
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}

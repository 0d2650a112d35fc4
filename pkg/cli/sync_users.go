package cli

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Quangdung1996/chat-sub001/pkg/cli/config"
	"github.com/Quangdung1996/chat-sub001/pkg/usecase"
	"github.com/Quangdung1996/chat-sub001/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdSyncUsers() *cli.Command {
	var retryAttempts int
	var retryDelay time.Duration
	var repoCfg config.Repository
	var rocketCfg config.Rocket

	flags := []cli.Flag{
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
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, rocketCfg.Flags()...)

	return &cli.Command{
		Name:  "sync-users",
		Usage: "Refresh all user mappings against the platform once and exit",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
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

			uc := usecase.New(repo, rocketSvc, usecase.WithRetry(retryAttempts, retryDelay))

			refreshed, err := uc.Identity.RefreshAllMappings(ctx)
			if err != nil {
				return goerr.Wrap(err, "mapping refresh failed")
			}

			logging.Default().Info("User mapping refresh completed", "refreshed", refreshed)
			return nil
		},
	}
}

package config

import (
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/service/rocket"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Rocket holds CLI flags for the Rocket.Chat platform connection
type Rocket struct {
	baseURL       string
	adminUser     string
	adminPassword string
	botUser       string
	botPassword   string
	timeout       time.Duration
	tokenTTL      time.Duration
}

// Flags returns CLI flags for Rocket.Chat configuration
func (x *Rocket) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "rocket-base-url",
			Usage:       "Rocket.Chat base URL (e.g. https://chat.example.com)",
			Sources:     cli.EnvVars("CHATSYNC_ROCKET_BASE_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "rocket-admin-user",
			Usage:       "Rocket.Chat admin username",
			Sources:     cli.EnvVars("CHATSYNC_ROCKET_ADMIN_USER"),
			Destination: &x.adminUser,
		},
		&cli.StringFlag{
			Name:        "rocket-admin-password",
			Usage:       "Rocket.Chat admin password",
			Sources:     cli.EnvVars("CHATSYNC_ROCKET_ADMIN_PASSWORD"),
			Destination: &x.adminPassword,
		},
		&cli.StringFlag{
			Name:        "rocket-bot-user",
			Usage:       "Rocket.Chat bot username for message posting (falls back to admin)",
			Sources:     cli.EnvVars("CHATSYNC_ROCKET_BOT_USER"),
			Destination: &x.botUser,
		},
		&cli.StringFlag{
			Name:        "rocket-bot-password",
			Usage:       "Rocket.Chat bot password",
			Sources:     cli.EnvVars("CHATSYNC_ROCKET_BOT_PASSWORD"),
			Destination: &x.botPassword,
		},
		&cli.DurationFlag{
			Name:        "rocket-timeout",
			Usage:       "HTTP timeout for platform calls",
			Value:       rocket.DefaultTimeout,
			Sources:     cli.EnvVars("CHATSYNC_ROCKET_TIMEOUT"),
			Destination: &x.timeout,
		},
		&cli.DurationFlag{
			Name:        "rocket-token-ttl",
			Usage:       "Lifetime of cached auth tokens",
			Value:       30 * time.Minute,
			Sources:     cli.EnvVars("CHATSYNC_ROCKET_TOKEN_TTL"),
			Destination: &x.tokenTTL,
		},
	}
}

// Configure builds the platform service client from the flags
func (x *Rocket) Configure() (rocket.Service, error) {
	svc, err := rocket.New(rocket.Config{
		BaseURL:       x.baseURL,
		AdminUser:     x.adminUser,
		AdminPassword: x.adminPassword,
		BotUser:       x.botUser,
		BotPassword:   x.botPassword,
		Timeout:       x.timeout,
		TokenTTL:      x.tokenTTL,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure rocket client")
	}
	return svc, nil
}

package usecase

import (
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/interfaces"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/model/config"
	"github.com/Quangdung1996/chat-sub001/pkg/service/rocket"
	"golang.org/x/time/rate"
)

type UseCases struct {
	repo      interfaces.Repository
	rocket    rocket.Service
	orgConfig *config.OrgConfig
	retry     retryPolicy
	bulkRate  *rate.Limiter

	Identity *IdentityUseCase
	Room     *RoomUseCase
}

type Option func(*UseCases)

// WithOrgConfig enables department/project validation on room creation
func WithOrgConfig(cfg *config.OrgConfig) Option {
	return func(uc *UseCases) {
		uc.orgConfig = cfg
	}
}

// WithRetry overrides the bounded retry of retryable platform failures
func WithRetry(attempts int, delay time.Duration) Option {
	return func(uc *UseCases) {
		uc.retry = retryPolicy{attempts: attempts, delay: delay}
	}
}

// WithBulkRate overrides the shared pacing of bulk membership calls
func WithBulkRate(interval time.Duration, burst int) Option {
	return func(uc *UseCases) {
		uc.bulkRate = rate.NewLimiter(rate.Every(interval), burst)
	}
}

func New(repo interfaces.Repository, rocketSvc rocket.Service, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:   repo,
		rocket: rocketSvc,
		retry:  defaultRetryPolicy(),
		// One membership call per 250ms keeps bulk operations under the
		// platform's default rate limit
		bulkRate: rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Identity = NewIdentityUseCase(repo, rocketSvc, uc.retry)
	uc.Room = NewRoomUseCase(repo, rocketSvc, uc.orgConfig, uc.retry, uc.bulkRate)

	return uc
}

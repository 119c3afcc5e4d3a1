package jobs

import (
	"context"
	"time"

	"github.com/shamsucomsoft/onv-ncne-api/middleware"
)

// InvitationGrace is how long an expired invitation token is kept before
// the sweep clears it.
const InvitationGrace = 24 * time.Hour

type tokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

type invitationSweeper interface {
	ExpireInvitations(ctx context.Context, grace time.Duration) (int64, error)
}

// RefreshTokenCleanup deletes expired and revoked refresh tokens daily.
func RefreshTokenCleanup(tokens tokenCleaner) Task {
	return Task{Name: "refresh_token_cleanup", Interval: 24 * time.Hour, Run: tokens.CleanupExpiredTokens}
}

// InvitationSweep clears stale invitation tokens hourly.
func InvitationSweep(users invitationSweeper) Task {
	return Task{
		Name:     "invitation_sweep",
		Interval: time.Hour,
		Run: func(ctx context.Context) (int64, error) {
			return users.ExpireInvitations(ctx, InvitationGrace)
		},
	}
}

// RateLimiterCleanup forgets clients idle for more than an hour.
func RateLimiterCleanup(rl *middleware.RateLimiter) Task {
	return Task{
		Name:     "rate_limiter_cleanup",
		Interval: 10 * time.Minute,
		Run: func(context.Context) (int64, error) {
			return int64(rl.Cleanup(time.Hour)), nil
		},
	}
}

package middleware

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/keshon/musicbot/internal/command"
	"github.com/keshon/musicbot/pkg/cmd"

	"golang.org/x/time/rate"
)

// Cooldown hands out one token bucket per user and command. Buckets that
// have refilled completely are dropped once per window.
type Cooldown struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewCooldown allows uses invocations per window for each user and command.
func NewCooldown(uses int, window time.Duration) *Cooldown {
	if uses < 1 {
		uses = 1
	}
	return &Cooldown{
		limiters:  make(map[string]*rate.Limiter),
		limit:     rate.Every(window / time.Duration(uses)),
		burst:     uses,
		window:    window,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow reports whether userID may run command now.
func (cd *Cooldown) Allow(userID, command string) bool {
	key := userID + ":" + command
	cd.mu.Lock()
	now := cd.now()
	if now.Sub(cd.lastSweep) >= cd.window {
		cd.sweepLocked(now)
	}
	l, ok := cd.limiters[key]
	if !ok {
		l = rate.NewLimiter(cd.limit, cd.burst)
		cd.limiters[key] = l
	}
	cd.mu.Unlock()
	return l.AllowN(now, 1)
}

// sweepLocked forgets buckets that are full again. A new bucket starts
// full, so dropping one changes nothing for its user.
func (cd *Cooldown) sweepLocked(now time.Time) {
	for key, l := range cd.limiters {
		if l.TokensAt(now) >= float64(cd.burst) {
			delete(cd.limiters, key)
		}
	}
	cd.lastSweep = now
}

// WithCooldown limits how often a single user can run the named commands.
// With no names every command is limited.
func WithCooldown(cd *Cooldown, names ...string) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		if len(names) > 0 && !slices.Contains(names, c.Name()) {
			return c
		}
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			v, ok := inv.Data.(*command.SlashInteractionContext)
			if !ok {
				return c.Run(ctx, inv)
			}
			if !cd.Allow(command.UserOf(v.Event).ID, c.Name()) {
				return v.ReplyError(fmt.Sprintf("Slow down! `/%s` can be used again in a moment (limit %d per %s).", c.Name(), cd.burst, cd.window))
			}
			return c.Run(ctx, inv)
		})
	}
}

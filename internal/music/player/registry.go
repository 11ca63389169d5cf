package player

import (
	"errors"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultIdleTimeout matches how long an idle bot stays in a voice channel.
const DefaultIdleTimeout = 15 * time.Minute

type RegistryOption func(*Registry)

// WithIdleTimeout sets how long a session may sit idle before SweepIdle
// disconnects it. Zero disables the sweep.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTimeout = d }
}

// WithOnCreate registers a hook that runs once for every new session.
func WithOnCreate(fn func(guildID snowflake.ID, p *Player)) RegistryOption {
	return func(r *Registry) { r.onCreate = fn }
}

// Registry owns one Player per guild. Players are created on first use and
// removed on stop.
type Registry struct {
	mu          sync.RWMutex
	players     map[snowflake.ID]*Player
	connector   Connector
	idleTimeout time.Duration
	onCreate    func(snowflake.ID, *Player)
	cron        *cron.Cron
}

func NewRegistry(connector Connector, opts ...RegistryOption) *Registry {
	r := &Registry{
		players:     make(map[snowflake.ID]*Player),
		connector:   connector,
		idleTimeout: DefaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Get(guildID snowflake.ID) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[guildID]
	return p, ok
}

func (r *Registry) GetOrCreate(guildID snowflake.ID) *Player {
	if p, ok := r.Get(guildID); ok {
		return p
	}

	r.mu.Lock()
	if p, ok := r.players[guildID]; ok {
		r.mu.Unlock()
		return p
	}
	p := New(guildID.String(), r.connector)
	r.players[guildID] = p
	r.mu.Unlock()

	log.Debug().Str("guild", guildID.String()).Msg("[Registry] session created")
	if r.onCreate != nil {
		r.onCreate(guildID, p)
	}
	return p
}

// Stop stops the guild's session, disconnects voice and forgets it.
func (r *Registry) Stop(guildID snowflake.ID) error {
	p, ok := r.take(guildID)
	if !ok {
		return nil
	}
	defer p.Close()
	return p.Stop()
}

// Remove forgets the guild's session without disconnecting, for voice
// connections that were already closed elsewhere.
func (r *Registry) Remove(guildID snowflake.ID) {
	p, ok := r.take(guildID)
	if !ok {
		return
	}
	p.Detach()
	p.Close()
	log.Debug().Str("guild", guildID.String()).Msg("[Registry] session removed")
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// SweepIdle stops every session that has been idle for longer than the
// idle timeout and returns the guilds it stopped.
func (r *Registry) SweepIdle(now time.Time) []snowflake.ID {
	if r.idleTimeout <= 0 {
		return nil
	}

	r.mu.RLock()
	var stale []snowflake.ID
	for id, p := range r.players {
		if since, idle := p.IdleSince(); idle && now.Sub(since) >= r.idleTimeout {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		if err := r.Stop(id); err != nil {
			log.Warn().Err(err).Str("guild", id.String()).Msg("[Registry] idle disconnect failed")
			continue
		}
		log.Info().Str("guild", id.String()).Msg("[Registry] disconnected idle session")
	}
	return stale
}

// StartSweeper runs SweepIdle on the given cron schedule, e.g. "@every 1m".
func (r *Registry) StartSweeper(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { r.SweepIdle(time.Now()) }); err != nil {
		return err
	}
	r.mu.Lock()
	if r.cron != nil {
		r.mu.Unlock()
		return errors.New("sweeper already running")
	}
	r.cron = c
	r.mu.Unlock()
	c.Start()
	return nil
}

// Close stops the sweeper and every session.
func (r *Registry) Close() error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	ids := make([]snowflake.ID, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}

	var errs []error
	for _, id := range ids {
		if err := r.Stop(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) take(guildID snowflake.ID) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[guildID]
	if ok {
		delete(r.players, guildID)
	}
	return p, ok
}

package player

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreate(t *testing.T) {
	var created atomic.Int32
	r := NewRegistry(newFakeConnector(), WithOnCreate(func(snowflake.ID, *Player) { created.Add(1) }))
	defer r.Close()

	a := r.GetOrCreate(1)
	assert.Same(t, a, r.GetOrCreate(1))
	b := r.GetOrCreate(2)
	assert.NotSame(t, a, b)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, int32(2), created.Load())

	got, ok := r.Get(1)
	assert.True(t, ok)
	assert.Same(t, a, got)
	_, ok = r.Get(3)
	assert.False(t, ok)
}

func TestRegistryStopAndRemove(t *testing.T) {
	c := newFakeConnector()
	r := NewRegistry(c)
	defer r.Close()

	p := r.GetOrCreate(1)
	require.NoError(t, p.Connect("voice"))
	_, err := p.Enqueue(track("A"))
	require.NoError(t, err)

	require.NoError(t, r.Stop(1))
	assert.Equal(t, 0, r.Len())
	assert.True(t, c.transport("1").disconnected)
	assert.NoError(t, r.Stop(1), "stopping an unknown guild is a no-op")

	q := r.GetOrCreate(2)
	require.NoError(t, q.Connect("voice"))
	_, err = q.Enqueue(track("B"))
	require.NoError(t, err)

	r.Remove(2)
	assert.Equal(t, 0, r.Len())
	assert.False(t, c.transport("2").disconnected)
	assert.True(t, c.transport("2").closed, "the released transport is closed")
	assert.Equal(t, StateIdle, q.State())
	assert.NotSame(t, q, r.GetOrCreate(2))
}

func TestRegistrySweepIdle(t *testing.T) {
	c := newFakeConnector()
	r := NewRegistry(c, WithIdleTimeout(time.Minute))
	defer r.Close()

	idle := r.GetOrCreate(1)
	require.NoError(t, idle.Connect("voice"))

	busy := r.GetOrCreate(2)
	require.NoError(t, busy.Connect("voice"))
	_, err := busy.Enqueue(track("A"))
	require.NoError(t, err)

	assert.Empty(t, r.SweepIdle(time.Now()))

	swept := r.SweepIdle(time.Now().Add(2 * time.Minute))
	assert.Equal(t, []snowflake.ID{1}, swept)
	assert.True(t, c.transport("1").disconnected)
	_, ok := r.Get(2)
	assert.True(t, ok)

	disabled := NewRegistry(c, WithIdleTimeout(0))
	disabled.GetOrCreate(3)
	assert.Empty(t, disabled.SweepIdle(time.Now().Add(24*time.Hour)))
	require.NoError(t, disabled.Close())
}

func TestRegistrySweeper(t *testing.T) {
	r := NewRegistry(newFakeConnector())
	assert.Error(t, r.StartSweeper("not a schedule"))
	require.NoError(t, r.StartSweeper("@every 1m"))
	assert.Error(t, r.StartSweeper("@every 1m"))

	r.GetOrCreate(1)
	require.NoError(t, r.Close())
	assert.Equal(t, 0, r.Len())
}

func TestGuildsAreIndependent(t *testing.T) {
	c := newFakeConnector()
	r := NewRegistry(c)
	defer r.Close()

	slow := c.transport("2")
	slow.block = make(chan struct{})

	x := r.GetOrCreate(1)
	y := r.GetOrCreate(2)
	require.NoError(t, x.Connect("voice"))
	require.NoError(t, y.Connect("voice"))

	yDone := make(chan struct{})
	go func() {
		defer close(yDone)
		_, _ = y.Enqueue(track("Y"))
	}()

	xDone := make(chan struct{})
	go func() {
		defer close(xDone)
		_, _ = x.Enqueue(track("A"))
		_, _ = x.Enqueue(track("B"))
		assert.NoError(t, x.SetVolume(0.3))
		x.OnTrackFinished()
		_ = x.Pause()
	}()

	select {
	case <-xDone:
	case <-time.After(waitFor):
		t.Fatal("guild 1 blocked behind guild 2")
	}

	s := x.Describe()
	assert.Equal(t, "B", s.Current.Title)
	assert.Equal(t, StatePaused, s.State)
	assert.Equal(t, 0.3, s.Volume)

	select {
	case <-yDone:
		t.Fatal("guild 2 finished while its transport was blocked")
	default:
	}

	close(slow.block)
	<-yDone
	assert.Equal(t, "Y", currentTitle(y))
	assert.Equal(t, DefaultVolume, y.Volume())
}

func TestStopWhilePlayIsInFlight(t *testing.T) {
	t.Run("stop before connect", func(t *testing.T) {
		c := newFakeConnector()
		r := NewRegistry(c)
		defer r.Close()

		p := r.GetOrCreate(1)
		require.NoError(t, r.Stop(1))

		assert.ErrorIs(t, p.Connect("voice"), ErrNotConnected)
		_, err := p.Enqueue(track("A"))
		assert.ErrorIs(t, err, ErrSessionClosed)
		assert.Equal(t, 0, c.dials, "a closed session never dials voice")
		assert.Equal(t, 0, r.Len())
	})

	t.Run("stop between connect and enqueue", func(t *testing.T) {
		c := newFakeConnector()
		r := NewRegistry(c)
		defer r.Close()

		p := r.GetOrCreate(1)
		require.NoError(t, p.Connect("voice"))
		require.NoError(t, r.Stop(1))

		_, err := p.Enqueue(track("A"))
		assert.ErrorIs(t, err, ErrNotConnected)
		assert.Equal(t, 0, c.transport("1").playCount())
		assert.True(t, c.transport("1").disconnected)
	})

	t.Run("stop during dial", func(t *testing.T) {
		c := &gatedConnector{fakeConnector: newFakeConnector(), dialing: make(chan struct{}), release: make(chan struct{})}
		r := NewRegistry(c)
		defer r.Close()

		p := r.GetOrCreate(1)
		errc := make(chan error, 1)
		go func() { errc <- p.Connect("voice") }()

		<-c.dialing
		require.NoError(t, r.Stop(1))
		close(c.release)

		assert.ErrorIs(t, <-errc, ErrSessionClosed)
		assert.True(t, c.transport("1").disconnected, "the late transport is hung up")
		assert.Empty(t, p.ChannelID())
	})
}

type gatedConnector struct {
	*fakeConnector
	dialing chan struct{}
	release chan struct{}
}

func (c *gatedConnector) Connect(guildID, channelID string) (Transport, error) {
	close(c.dialing)
	<-c.release
	return c.fakeConnector.Connect(guildID, channelID)
}

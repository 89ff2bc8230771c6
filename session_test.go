package conductor_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/conductor"
	"pipelined.dev/conductor/engine"
	"pipelined.dev/conductor/graph"
	"pipelined.dev/conductor/mock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var decodeDescriptor = graph.Descriptor{
	Name: pipelineName,
	Stages: []graph.StageSpec{
		{Kind: "uridecodebin", Name: "source"},
		{Kind: "audioconvert", Name: "convert"},
		{Kind: "audioresample", Name: "resample"},
		{Kind: "autoaudiosink", Name: "sink"},
	},
	Links: []graph.LinkSpec{
		{From: "convert", To: "resample"},
		{From: "resample", To: "sink"},
	},
	Deferred: []graph.DeferredSpec{
		{From: "source", To: "convert", Accept: "audio/x-raw"},
	},
}

type runResult struct {
	err error
}

// startSession builds the graph and runs the session in a separate
// goroutine. Setup is called before the session is started.
func startSession(t *testing.T, e *mock.Engine, d graph.Descriptor, setup func(*mock.Pipeline), options ...conductor.Option) (*conductor.Session, *mock.Pipeline, context.CancelFunc, chan runResult) {
	t.Helper()
	g, err := graph.Build(e, d)
	require.NoError(t, err)
	if setup != nil {
		setup(e.Pipelines[0])
	}
	s, err := conductor.New(e, g, options...)
	require.NoError(t, err)
	ctx, cancelFn := context.WithCancel(context.Background())
	result := make(chan runResult, 1)
	go func() {
		result <- runResult{err: s.Run(ctx)}
	}()
	return s, e.Pipelines[0], cancelFn, result
}

func await(t *testing.T, result chan runResult) error {
	t.Helper()
	select {
	case r := <-result:
		return r.err
	case <-time.After(5 * time.Second):
		t.Fatal("session didn't finish")
	}
	return nil
}

func TestSessionTermination(t *testing.T) {
	testTermination := func(n engine.Notification, check func(*testing.T, error)) func(*testing.T) {
		return func(t *testing.T) {
			t.Helper()
			e := &mock.Engine{}
			s, p, cancelFn, result := startSession(t, e, decodeDescriptor, nil)
			defer cancelFn()
			p.Post(playing(pipelineName), n)
			err := await(t, result)
			check(t, err)

			assert.Equal(t, []engine.State{engine.StatePlaying, engine.StateNull}, p.States)
			require.NoError(t, s.Close())
			require.NoError(t, s.Close())
			assert.True(t, p.IsReleased())
			for _, el := range e.Elements {
				assert.True(t, el.IsReleased())
			}
		}
	}
	t.Run("eos", testTermination(engine.EndOfStream{Src: pipelineName}, func(t *testing.T, err error) {
		assert.NoError(t, err)
	}))
	t.Run("error", testTermination(engine.Error{Src: "source", Message: "Resource not found."}, func(t *testing.T, err error) {
		var engineErr *conductor.EngineError
		assert.True(t, errors.As(err, &engineErr))
	}))
}

func TestSessionCancel(t *testing.T) {
	e := &mock.Engine{}
	s, p, cancelFn, result := startSession(t, e, decodeDescriptor, nil)
	// child and duration notifications never stop the loop.
	p.Post(playing("sink"), engine.DurationChanged{Src: "source"}, playing(pipelineName))
	require.Eventually(t, func() bool {
		return s.State().Phase == conductor.PhasePlaying
	}, time.Second, time.Millisecond)
	cancelFn()
	assert.NoError(t, await(t, result))
	assert.Equal(t, engine.StateNull, p.State())
	assert.Equal(t, conductor.PhasePlaying, s.State().Phase)
	assert.NoError(t, s.Close())
}

func TestSessionDeferredLink(t *testing.T) {
	e := &mock.Engine{}
	s, p, cancelFn, result := startSession(t, e, decodeDescriptor, nil)
	defer s.Close()
	source := e.Made("uridecodebin")[0]
	convert := e.Made("audioconvert")[0]
	require.Eventually(t, func() bool {
		return source.Handlers() == 1
	}, time.Second, time.Millisecond)

	video := engine.NewCaps("video/x-raw")
	audio := engine.NewCaps("audio/x-raw")
	videoPad := source.EmitPadAdded("src_0", &video)
	audioPad := source.EmitPadAdded("src_1", &audio)
	// state is read in the loop, so both callbacks are already applied.
	s.State()
	assert.False(t, videoPad.IsLinked())
	assert.True(t, audioPad.IsLinked())
	assert.Equal(t, audioPad, convert.Pad("sink").Peer())

	p.Post(engine.EndOfStream{Src: pipelineName})
	assert.NoError(t, await(t, result))
	cancelFn()

	// callbacks after the loop is done are dropped.
	late := source.EmitPadAdded("src_2", &audio)
	assert.False(t, late.IsLinked())
}

func TestSessionStartFailure(t *testing.T) {
	e := &mock.Engine{}
	g, err := graph.Build(e, decodeDescriptor)
	require.NoError(t, err)
	p := e.Pipelines[0]
	p.ErrorOnSetState = errors.New("state change failed")
	s, err := conductor.New(e, g)
	require.NoError(t, err)
	defer s.Close()

	err = s.Run(context.Background())
	assert.ErrorIs(t, err, conductor.ErrStateChange)
	assert.Equal(t, []engine.State{engine.StatePlaying, engine.StateNull}, p.States)
	assert.ErrorIs(t, s.Run(context.Background()), conductor.ErrSessionStarted)
}

func TestSessionPoller(t *testing.T) {
	e := &mock.Engine{}
	var out bytes.Buffer
	cfg := conductor.DefaultPollerConfig()
	cfg.Interval = time.Millisecond
	s, p, cancelFn, result := startSession(t, e, decodeDescriptor, func(p *mock.Pipeline) {
		p.Seeking = engine.SeekRange{Seekable: true, Start: 0, End: 52 * engine.Second}
		p.Duration = 52 * engine.Second
		p.Positions = seconds(5, 11, 12, 35)
	}, conductor.WithPoller(cfg), conductor.WithOutput(&out))
	defer s.Close()

	p.Post(playing(pipelineName))
	require.Eventually(t, func() bool {
		return len(p.SeekCalls()) == 1
	}, time.Second, time.Millisecond)
	cancelFn()
	require.NoError(t, await(t, result))
	assert.Len(t, p.SeekCalls(), 1)
	assert.Contains(t, out.String(), "/ 00:00:52.000000000 \r")
}

func TestSessionSwapperFailure(t *testing.T) {
	e := &mock.Engine{}
	cfg := conductor.DefaultSwapperConfig()
	cfg.Interval = time.Millisecond
	s, p, cancelFn, result := startSession(t, e, swapDescriptor, func(*mock.Pipeline) {
		e.Made("videotestsrc")[0].ErrorOnSetState = errors.New("cannot stop")
	}, conductor.WithSwapper(cfg))
	defer cancelFn()
	defer s.Close()

	err := await(t, result)
	assert.ErrorIs(t, err, conductor.ErrSwap)
	assert.Equal(t, engine.StateNull, p.State())
}

func TestSessionControls(t *testing.T) {
	e := &mock.Engine{}
	s, p, cancelFn, result := startSession(t, e, decodeDescriptor, func(p *mock.Pipeline) {
		p.Seeking = engine.SeekRange{Seekable: true, End: 52 * engine.Second}
	})
	defer s.Close()

	assert.ErrorIs(t, conductor.Wait(s.Seek(20*engine.Second)), engine.ErrNotSeekable)
	p.Post(playing(pipelineName))
	require.Eventually(t, func() bool {
		return s.State().Seekable
	}, time.Second, time.Millisecond)

	require.NoError(t, conductor.Wait(s.Pause()))
	require.NoError(t, conductor.Wait(s.Play()))
	require.NoError(t, conductor.Wait(s.Stop()))
	require.NoError(t, conductor.Wait(s.Seek(20*engine.Second)))
	assert.Equal(t, []mock.Seek{{
		Target: 20 * engine.Second,
		Flags:  engine.SeekFlagFlush | engine.SeekFlagKeyUnit,
	}}, p.SeekCalls())

	cancelFn()
	require.NoError(t, await(t, result))
	assert.Equal(t, []engine.State{
		engine.StatePlaying,
		engine.StatePaused,
		engine.StatePlaying,
		engine.StateReady,
		engine.StateNull,
	}, p.States)
	assert.ErrorIs(t, conductor.Wait(s.Play()), conductor.ErrSessionDone)
}

func TestNewSession(t *testing.T) {
	e := &mock.Engine{}
	_, err := conductor.New(e, nil)
	assert.Error(t, err)

	g, err := graph.Build(e, decodeDescriptor)
	require.NoError(t, err)
	defer g.Teardown()
	cfg := conductor.DefaultSwapperConfig()
	cfg.Modulus = 0
	_, err = conductor.New(e, g, conductor.WithSwapper(cfg))
	assert.Error(t, err)
	_, err = conductor.New(e, g, conductor.WithPoller(conductor.PollerConfig{}))
	assert.Error(t, err)
}

func TestSessionNotStarted(t *testing.T) {
	e := &mock.Engine{}
	g, err := graph.Build(e, decodeDescriptor)
	require.NoError(t, err)
	s, err := conductor.New(e, g)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, conductor.PhaseIdle, s.State().Phase)
	assert.ErrorIs(t, conductor.Wait(s.Play()), conductor.ErrSessionNotStarted)
	assert.ErrorIs(t, conductor.Wait(s.Seek(engine.Second)), conductor.ErrSessionNotStarted)
}

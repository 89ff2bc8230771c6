package conductor_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/conductor"
	"pipelined.dev/conductor/engine"
	"pipelined.dev/conductor/metric"
	"pipelined.dev/conductor/mock"
)

const pipelineName = "test-pipeline"

func playing(src string) engine.StateChanged {
	return engine.StateChanged{Src: src, Old: engine.StatePaused, New: engine.StatePlaying, Pending: engine.StateNull}
}

func TestDispatchStateChanged(t *testing.T) {
	p := mock.NewPipeline(pipelineName)
	p.Seeking = engine.SeekRange{Seekable: true, Start: 0, End: 52 * engine.Second}
	st := conductor.NewSessionState()
	d := conductor.NewDispatcher(p, st, nil, nil)

	// children state changes are ignored.
	stop, err := d.Dispatch(playing("sink"))
	assert.False(t, stop)
	assert.NoError(t, err)
	assert.Equal(t, conductor.PhaseIdle, st.Phase)
	_, _, seeking := p.Counters()
	assert.Equal(t, 0, seeking)

	d.Dispatch(engine.StateChanged{Src: pipelineName, Old: engine.StateNull, New: engine.StateReady})
	assert.Equal(t, conductor.PhaseReady, st.Phase)
	d.Dispatch(playing(pipelineName))
	assert.Equal(t, conductor.PhasePlaying, st.Phase)
	assert.True(t, st.Seekable)
	assert.Equal(t, 52*engine.Second, st.SeekEnd)

	// seekability is queried only on the first entry to playing.
	d.Dispatch(engine.StateChanged{Src: pipelineName, Old: engine.StatePlaying, New: engine.StatePaused})
	assert.Equal(t, conductor.PhasePaused, st.Phase)
	d.Dispatch(playing(pipelineName))
	_, _, seeking = p.Counters()
	assert.Equal(t, 1, seeking)
}

func TestDispatchSeekingQueryFailure(t *testing.T) {
	p := mock.NewPipeline(pipelineName)
	p.SeekingFails = true
	m := metric.New(prometheus.NewRegistry())
	st := conductor.NewSessionState()
	d := conductor.NewDispatcher(p, st, nil, m)

	stop, err := d.Dispatch(playing(pipelineName))
	assert.False(t, stop)
	assert.NoError(t, err)
	assert.Equal(t, conductor.PhasePlaying, st.Phase)
	assert.False(t, st.Seekable)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryFailures.WithLabelValues(metric.SeekingQuery)))
}

func TestDispatchTermination(t *testing.T) {
	testTermination := func(n engine.Notification, phase conductor.Phase, expectedErr bool) func(*testing.T) {
		return func(t *testing.T) {
			t.Helper()
			p := mock.NewPipeline(pipelineName)
			st := conductor.NewSessionState()
			d := conductor.NewDispatcher(p, st, nil, nil)
			d.Dispatch(playing(pipelineName))

			stop, err := d.Dispatch(n)
			assert.True(t, stop)
			assert.Equal(t, expectedErr, err != nil)
			assert.Equal(t, phase, st.Phase)

			// terminal phase is never left.
			stop, _ = d.Dispatch(playing(pipelineName))
			assert.False(t, stop)
			assert.Equal(t, phase, st.Phase)

			// another terminal notification doesn't replace the phase.
			d.Dispatch(engine.EndOfStream{Src: pipelineName})
			d.Dispatch(engine.Error{Src: "sink", Message: "Internal data stream error."})
			assert.Equal(t, phase, st.Phase)
		}
	}
	t.Run("eos", testTermination(engine.EndOfStream{Src: pipelineName}, conductor.PhaseEndOfStream, false))
	t.Run("error", testTermination(engine.Error{Src: "source", Message: "Resource not found."}, conductor.PhaseError, true))
}

func TestDispatchError(t *testing.T) {
	d := conductor.NewDispatcher(mock.NewPipeline(pipelineName), conductor.NewSessionState(), nil, nil)
	_, err := d.Dispatch(engine.Error{Src: "source", Message: "Resource not found."})
	var engineErr *conductor.EngineError
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, "source", engineErr.Source)
	assert.Equal(t, "none", engineErr.DetailOrNone())
	assert.Contains(t, err.Error(), "(debugging information: none)")

	_, err = d.Dispatch(engine.Error{Src: "source", Message: "Resource not found.", Detail: "could not open /tmp/x.wav"})
	assert.Contains(t, err.Error(), "could not open /tmp/x.wav")
}

func TestDispatchDurationChanged(t *testing.T) {
	st := conductor.NewSessionState()
	st.Duration = 120 * engine.Second
	d := conductor.NewDispatcher(mock.NewPipeline(pipelineName), st, nil, nil)
	stop, err := d.Dispatch(engine.DurationChanged{Src: "source"})
	assert.False(t, stop)
	assert.NoError(t, err)
	assert.False(t, st.Duration.Valid())
}

func TestDispatchOther(t *testing.T) {
	p := mock.NewPipeline(pipelineName)
	p.StreamInfo = []engine.StreamInfo{
		{Type: engine.StreamVideo, Codec: "VP8"},
		{Type: engine.StreamAudio, Codec: "Vorbis", Language: "en", Bitrate: 80000},
	}
	m := metric.New(prometheus.NewRegistry())
	st := conductor.NewSessionState()
	d := conductor.NewDispatcher(p, st, nil, m)
	var analyzed []engine.StreamInfo
	d.OnStreams = func(s []engine.StreamInfo) {
		analyzed = s
	}

	for _, n := range []engine.Notification{
		engine.Application{Src: pipelineName, Name: engine.TagsChanged},
		engine.Application{Src: pipelineName, Name: "custom"},
		engine.Message{Src: "sink", Type: "qos"},
	} {
		stop, err := d.Dispatch(n)
		assert.False(t, stop)
		assert.NoError(t, err)
	}
	assert.Equal(t, conductor.PhaseIdle, st.Phase)
	assert.Len(t, analyzed, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues("application")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("qos")))
}

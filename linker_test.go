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
	"pipelined.dev/conductor/graph"
	"pipelined.dev/conductor/metric"
	"pipelined.dev/conductor/mock"
)

var (
	audioCaps = engine.NewCaps("audio/x-raw", "format", "F32LE", "rate", "48000")
	videoCaps = engine.NewCaps("video/x-raw", "format", "I420")
)

// linkerFixture returns decoder element and convert sink pad.
func linkerFixture() (*mock.Element, *mock.Pad) {
	decoder := mock.NewElement("uridecodebin", "source")
	convert := mock.NewElement("audioconvert", "convert")
	return decoder, convert.AddPad("sink", engine.Sink, nil)
}

func TestDeferredLinker(t *testing.T) {
	testLinker := func(caps *engine.Caps, accept string, expected conductor.Outcome) func(*testing.T) {
		return func(t *testing.T) {
			t.Helper()
			m := metric.New(prometheus.NewRegistry())
			decoder, target := linkerFixture()
			l := conductor.NewDeferredLinker(graph.Deferred{Source: decoder, Target: target, Accept: accept}, nil, m)
			pad := decoder.AddPad("src_0", engine.Src, caps)

			o, err := l.Link(decoder, pad)
			assert.NoError(t, err)
			assert.Equal(t, expected, o)
			assert.Equal(t, expected == conductor.Linked, target.IsLinked())
			assert.Equal(t, expected == conductor.Linked, pad.IsLinked())
			assert.Equal(t, 1.0, testutil.ToFloat64(m.LinkDecisions.WithLabelValues(expected.String())))
		}
	}
	t.Run("audio", testLinker(&audioCaps, "audio/x-raw", conductor.Linked))
	t.Run("video", testLinker(&videoCaps, "audio/x-raw", conductor.Rejected))
	t.Run("no caps", testLinker(nil, "audio/x-raw", conductor.Rejected))
	t.Run("accept any", testLinker(&videoCaps, "", conductor.Linked))
}

func TestDeferredLinkerIdempotent(t *testing.T) {
	m := metric.New(prometheus.NewRegistry())
	decoder, target := linkerFixture()
	l := conductor.NewDeferredLinker(graph.Deferred{Source: decoder, Target: target, Accept: "audio/x-raw"}, nil, m)

	first := decoder.AddPad("src_0", engine.Src, &audioCaps)
	o, err := l.Link(decoder, first)
	require.NoError(t, err)
	require.Equal(t, conductor.Linked, o)

	// engine re-notifies the same pad and then a second audio stream.
	second := decoder.AddPad("src_1", engine.Src, &audioCaps)
	for _, p := range []*mock.Pad{first, second} {
		o, err = l.Link(decoder, p)
		assert.NoError(t, err)
		assert.Equal(t, conductor.AlreadyLinked, o)
	}
	assert.Equal(t, first, target.Peer())
	assert.Equal(t, 1, target.Links)
	assert.False(t, second.IsLinked())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinkDecisions.WithLabelValues(metric.AlreadyLinked)))
}

func TestDeferredLinkerNegotiationFailure(t *testing.T) {
	errNegotiation := errors.New("not negotiated")
	decoder, target := linkerFixture()
	l := conductor.NewDeferredLinker(graph.Deferred{Source: decoder, Target: target, Accept: "audio/x-raw"}, nil, nil)
	pad := decoder.AddPad("src_0", engine.Src, &audioCaps)
	pad.ErrorOnLink = errNegotiation

	o, err := l.Link(decoder, pad)
	assert.Equal(t, conductor.NegotiationFailed, o)
	var linkErr *conductor.LinkNegotiationError
	require.True(t, errors.As(err, &linkErr))
	assert.Equal(t, "source", linkErr.Source)
	assert.Equal(t, "src_0", linkErr.Pad)
	assert.Equal(t, "convert.sink", linkErr.Target)
	assert.ErrorIs(t, err, errNegotiation)
	assert.False(t, target.IsLinked())
}

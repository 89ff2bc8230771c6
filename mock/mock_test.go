package mock_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/conductor/engine"
	"pipelined.dev/conductor/mock"
)

var errTest = errors.New("test error")

func TestMake(t *testing.T) {
	e := &mock.Engine{
		ErrorOnMake:      map[string]error{"broken": errTest},
		ErrorOnMakeAfter: map[string]int{"once": 1},
	}
	el, err := e.Make("convert", "c")
	require.NoError(t, err)
	_, ok := el.StaticPad("src")
	assert.True(t, ok)
	_, ok = el.StaticPad("sink")
	assert.True(t, ok)

	_, err = e.Make("broken", "b")
	assert.Equal(t, errTest, err)

	_, err = e.Make("once", "o1")
	assert.NoError(t, err)
	_, err = e.Make("once", "o2")
	assert.ErrorIs(t, err, engine.ErrUnknownKind)
	assert.Len(t, e.Made("once"), 1)
}

func TestLink(t *testing.T) {
	e := &mock.Engine{ErrorOnLink: map[string]error{"a->c": errTest}}
	a, _ := e.Make("k", "a")
	b, _ := e.Make("k", "b")
	c, _ := e.Make("k", "c")
	src, _ := a.StaticPad("src")
	sinkB, _ := b.StaticPad("sink")
	sinkC, _ := c.StaticPad("sink")

	assert.Equal(t, errTest, src.Link(sinkC))
	assert.ErrorIs(t, sinkB.Link(src), engine.ErrWrongDirection)
	require.NoError(t, src.Link(sinkB))
	assert.True(t, src.IsLinked())
	assert.True(t, sinkB.IsLinked())
	assert.ErrorIs(t, src.Link(sinkB), engine.ErrAlreadyLinked)
}

func TestPipeline(t *testing.T) {
	e := &mock.Engine{}
	pe, err := e.NewPipeline("p")
	require.NoError(t, err)
	p := pe.(*mock.Pipeline)

	a, _ := e.Make("k", "a")
	b, _ := e.Make("k", "b")
	require.NoError(t, p.Add(a, b))
	src, _ := a.StaticPad("src")
	sink, _ := b.StaticPad("sink")
	require.NoError(t, src.Link(sink))

	require.NoError(t, p.Remove(a))
	assert.Len(t, p.Elements(), 1)
	assert.False(t, sink.IsLinked())
	assert.ErrorIs(t, p.Remove(a), engine.ErrNotOwned)

	p.Positions = []engine.ClockTime{engine.Second, engine.ClockTimeNone, 2 * engine.Second}
	pos, ok := p.QueryPosition()
	assert.True(t, ok)
	assert.Equal(t, engine.Second, pos)
	_, ok = p.QueryPosition()
	assert.False(t, ok)
	pos, _ = p.QueryPosition()
	assert.Equal(t, 2*engine.Second, pos)
	pos, _ = p.QueryPosition()
	assert.Equal(t, 2*engine.Second, pos)

	_, ok = p.QueryDuration()
	assert.False(t, ok)
	positions, durations, _ := p.Counters()
	assert.Equal(t, 4, positions)
	assert.Equal(t, 1, durations)
}

func TestEmitPadAdded(t *testing.T) {
	el := mock.NewElement("decodebin", "source")
	var got []string
	el.OnPadAdded(func(src engine.Element, pad engine.Pad) {
		got = append(got, src.Name()+"."+pad.Name())
	})
	caps := engine.NewCaps("audio/x-raw")
	p := el.EmitPadAdded("src_0", &caps)

	assert.Equal(t, []string{"source.src_0"}, got)
	c, ok := p.CurrentCaps()
	assert.True(t, ok)
	assert.Equal(t, "audio/x-raw", c.Name)
	assert.Equal(t, 1, el.Handlers())
}

package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/conductor/engine"
)

func TestParseCaps(t *testing.T) {
	testParse := func(s string, expected engine.Caps, fails bool) func(*testing.T) {
		return func(t *testing.T) {
			c, err := engine.ParseCaps(s)
			if fails {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, expected, c)
		}
	}
	t.Run("name only", testParse("audio/x-raw", engine.Caps{Name: "audio/x-raw"}, false))
	t.Run("fields", testParse(
		"audio/x-raw, rate=44100 , channels=2",
		engine.NewCaps("audio/x-raw", "rate", "44100", "channels", "2"),
		false,
	))
	t.Run("empty", testParse("", engine.Caps{}, true))
	t.Run("malformed field", testParse("video/x-raw, width", engine.Caps{}, true))
}

func TestCapsString(t *testing.T) {
	c := engine.NewCaps("audio/x-raw", "rate", "48000", "channels", "1")
	assert.Equal(t, "audio/x-raw, channels=1, rate=48000", c.String())
	assert.True(t, c.HasPrefix("audio/x-raw"))
	assert.False(t, c.HasPrefix("video/"))

	assert.True(t, engine.Caps{Name: engine.AnyCaps}.Accepts(c))
	assert.True(t, engine.Caps{Name: "audio/x-raw"}.Accepts(c))
	assert.False(t, engine.Caps{Name: "video/x-raw"}.Accepts(c))
}

func TestClockTime(t *testing.T) {
	assert.Equal(t, "00:00:00.000000000", engine.ClockTime(0).String())
	assert.Equal(t, "01:01:01.500000000", (3661*engine.Second + engine.Second/2).String())
	assert.Equal(t, "--:--:--.---------", engine.ClockTimeNone.String())
	assert.False(t, engine.ClockTimeNone.Valid())
}

func TestStateNext(t *testing.T) {
	assert.Equal(t, engine.StateReady, engine.StateNull.Next(engine.StatePlaying))
	assert.Equal(t, engine.StatePaused, engine.StatePlaying.Next(engine.StateNull))
	assert.Equal(t, engine.StatePaused, engine.StatePaused.Next(engine.StatePaused))
	assert.Equal(t, "playing", engine.StatePlaying.String())
}

func TestSeekFlags(t *testing.T) {
	f := engine.SeekFlagFlush | engine.SeekFlagKeyUnit
	assert.True(t, f.Has(engine.SeekFlagFlush))
	assert.True(t, f.Has(engine.SeekFlagKeyUnit))
	assert.False(t, engine.SeekFlagFlush.Has(engine.SeekFlagKeyUnit))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "eos", engine.Kind(engine.EndOfStream{}))
	assert.Equal(t, "latency", engine.Kind(engine.Message{Type: "latency"}))
	assert.Equal(t, "state-changed", engine.Kind(engine.StateChanged{}))
}

package sim

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"

	"pipelined.dev/conductor/engine"
)

type (
	// media is the result of URI probing.
	media struct {
		duration engine.ClockTime
		streams  []stream
	}

	stream struct {
		info engine.StreamInfo
		caps engine.Caps
	}

	// probeError is posted on the bus as engine.Error.
	probeError struct {
		message string
		detail  string
	}
)

func (e *probeError) Error() string {
	return e.message + ": " + e.detail
}

// webProfile describes remote media: a webm file with VP8 video and
// Vorbis audio.
var webProfile = media{
	duration: 52 * engine.Second,
	streams: []stream{
		{
			info: engine.StreamInfo{Type: engine.StreamVideo, Codec: "On2 VP8"},
			caps: engine.NewCaps("video/x-raw", "format", "I420", "width", "854", "height", "480", "framerate", "24/1"),
		},
		{
			info: engine.StreamInfo{Type: engine.StreamAudio, Codec: "Vorbis", Language: "en", Bitrate: 80000},
			caps: engine.NewCaps("audio/x-raw", "format", "F32LE", "rate", "48000", "channels", "2"),
		},
	},
}

func probe(uri string) (media, error) {
	if uri == "" {
		return media{}, &probeError{message: "No URI specified to play from.", detail: "uri property is empty"}
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return media{}, &probeError{message: "Invalid URI \"" + uri + "\".", detail: fmt.Sprintf("parse uri: %v", err)}
	}
	switch u.Scheme {
	case "http", "https":
		return webProfile, nil
	case "file":
		return probeFile(u.Path)
	}
	return media{}, &probeError{
		message: fmt.Sprintf("No URI handler implemented for \"%s\".", u.Scheme),
		detail:  "unsupported scheme",
	}
}

func probeFile(path string) (media, error) {
	f, err := os.Open(path)
	if err != nil {
		return media{}, &probeError{message: "Resource not found.", detail: "could not open " + path}
	}
	defer f.Close()

	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return media{}, &probeError{message: "Could not determine type of stream.", detail: "no decoder for " + filepath.Base(path)}
	}
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return media{}, &probeError{message: "Could not determine type of stream.", detail: path + " is not a valid wav file"}
	}
	duration, err := d.Duration()
	if err != nil {
		return media{}, &probeError{message: "Internal data stream error.", detail: err.Error()}
	}
	format := d.Format()
	sampleFormat := "S" + strconv.Itoa(int(d.BitDepth)) + "LE"
	if d.BitDepth == 8 {
		sampleFormat = "U8"
	}
	return media{
		duration: engine.ClockTime(duration.Round(time.Millisecond)),
		streams: []stream{
			{
				info: engine.StreamInfo{
					Type:    engine.StreamAudio,
					Codec:   "WAV",
					Bitrate: uint(format.SampleRate * format.NumChannels * int(d.BitDepth)),
				},
				caps: engine.NewCaps("audio/x-raw",
					"format", sampleFormat,
					"rate", strconv.Itoa(format.SampleRate),
					"channels", strconv.Itoa(format.NumChannels),
				),
			},
		},
	}, nil
}
